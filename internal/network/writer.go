package network

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
)

// DispatchRow is one row of final consensus dispatch, one per (site, year,
// day, instant) — the primary artifact of a planning run, adapted from the
// teacher's backtest.LedgerRow (internal/backtest/ledger.go).
type DispatchRow struct {
	Site, Year, Day, Instant int
	PPF, QPF, PEss, QEss     float64
}

// IterationRow is one row of the Benders outer-loop trace: the UB/LB
// bookkeeping that mirrors the teacher's Engine.Run cumulative-PnL column
// (internal/backtest/engine.go), here accumulated per outer iteration
// instead of per interval.
type IterationRow struct {
	Iteration              int
	UpperBound, LowerBound float64
}

// Results bundles everything one planning run hands to ResultsWriter
// (spec.md §6 item 4).
type Results struct {
	RunID      string
	Converged  bool
	Dispatch   []DispatchRow
	Trace      []IterationRow
}

// CSVResultsWriter is the reference ResultsWriter: a dispatch ledger CSV plus
// a Benders outer-loop trace CSV, adapted line-for-line in style from the
// teacher's backtest.WriteLedgerCSV (internal/backtest/csv.go)'s
// accumulate-then-flush loop (SPEC_FULL §13).
type CSVResultsWriter struct{}

func (CSVResultsWriter) Write(dir string, res Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeDispatchCSV(filepath.Join(dir, "dispatch.csv"), res.Dispatch); err != nil {
		return err
	}
	return writeTraceCSV(filepath.Join(dir, "trace.csv"), res.Trace)
}

func writeDispatchCSV(path string, rows []DispatchRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"site", "year", "day", "instant", "p_pf", "q_pf", "p_ess", "q_ess"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Site), strconv.Itoa(r.Year), strconv.Itoa(r.Day), strconv.Itoa(r.Instant),
			fmtFloat(r.PPF), fmtFloat(r.QPF), fmtFloat(r.PEss), fmtFloat(r.QEss),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeTraceCSV(path string, rows []IterationRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"iteration", "upper_bound", "lower_bound"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{strconv.Itoa(r.Iteration), fmtFloat(r.UpperBound), fmtFloat(r.LowerBound)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
