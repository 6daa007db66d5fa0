package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVResultsWriterWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	res := Results{
		RunID:     "run-1",
		Converged: true,
		Dispatch: []DispatchRow{
			{Site: 0, Year: 0, Day: 0, Instant: 0, PPF: 1.5, QPF: 0.2, PEss: 0.1, QEss: 0},
		},
		Trace: []IterationRow{
			{Iteration: 1, UpperBound: 10, LowerBound: -5},
		},
	}

	require.NoError(t, (CSVResultsWriter{}).Write(dir, res))

	dispatch, err := os.ReadFile(filepath.Join(dir, "dispatch.csv"))
	require.NoError(t, err)
	require.Contains(t, string(dispatch), "site,year,day,instant,p_pf,q_pf,p_ess,q_ess")
	require.Contains(t, string(dispatch), "0,0,0,0,1.500000,0.200000,0.100000,0.000000")

	trace, err := os.ReadFile(filepath.Join(dir, "trace.csv"))
	require.NoError(t, err)
	require.Contains(t, string(trace), "iteration,upper_bound,lower_bound")
	require.Contains(t, string(trace), "1,10.000000,-5.000000")
}
