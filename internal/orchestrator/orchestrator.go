// Package orchestrator wires the coordination core's pieces into one
// runnable planning job: load a network description, solve the SESS
// investment master problem inside the Benders outer loop, drive the ADMM
// inner loop for each candidate, and write results (spec.md §4.6). It is the
// one place allowed to depend on both internal/master's investment LP and
// internal/network's reference NetworkLoader/NetworkModelBuilder/NlpSolver,
// keeping those two sides of spec.md §6's interface boundary apart
// everywhere else.
//
// Grounded on the teacher's cmd/cli/main.go top-level wiring: load inputs,
// build the engine, run it, write the ledger.
package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/admm"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/benders"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/consensus"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/master"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/network"
)

// PlanningOrchestrator runs one complete planning job end to end.
type PlanningOrchestrator struct {
	Log *zap.Logger
}

// New builds a PlanningOrchestrator. A nil logger is replaced with zap's
// no-op logger so callers never need a nil check.
func New(log *zap.Logger) *PlanningOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanningOrchestrator{Log: log}
}

// Run loads networkPath, validates params against it, and executes the full
// Benders(ADMM) coordination, returning a run ID and the final network.Results
// ready for a network.CSVResultsWriter (spec.md §4.6).
func (o *PlanningOrchestrator) Run(ctx context.Context, networkPath string, params core.Parameters) (string, network.Results, error) {
	runID := uuid.NewString()
	log := o.Log.With(zap.String("run_id", runID))

	loaded, err := network.LoadYAML(networkPath)
	if err != nil {
		return runID, network.Results{}, err
	}
	loaded.Params.ObjType = params.ObjType
	loaded.Params.Relaxation = params.Relaxation.Normalize()
	loaded.Params.Benders = params.Benders
	loaded.Params.Admm = params.Admm
	loaded.Params.ErrorPrecision = params.ErrorPrecision
	loaded.Params.WarmStartBaselineCountsAsIteration = params.WarmStartBaselineCountsAsIteration
	if params.SESS.Budget > 0 {
		loaded.Params.SESS.Budget = params.SESS.Budget
	}

	if err := loaded.Params.Validate(loaded.Dims); err != nil {
		return runID, network.Results{}, err
	}

	investCosts := make([]master.InvestmentCost, len(loaded.InvestmentCosts))
	for i, c := range loaded.InvestmentCosts {
		investCosts[i] = master.InvestmentCost{PowerPerMVA: c.PowerPerMVA, EnergyPerMVAh: c.EnergyPerMVAh}
	}
	mp := master.New(loaded.Dims, loaded.Params.SESS, investCosts, loaded.DiscountFactor)

	coord := &benders.Coordinator{
		Master: mp,
		Params: loaded.Params.Benders,
		Dims:   loaded.Dims,
		Log:    log,
	}

	var lastStore *consensus.Store
	innerSolver := func(ctx context.Context, candidate core.Candidate) (float64, core.Sensitivities, bool, error) {
		store := consensus.New(loaded.Dims)
		lastStore = store

		tsoModels := network.Build(loaded.TSO, loaded.Dims, candidate, loaded.Params.ObjType, loaded.Params.SESS, network.ModeADMM)
		tso := coupling.NewSubproblemCoupling(core.RoleTSO, -1, loaded.Dims, loaded.DiscountFactor, tsoModels, network.Solver{}, log)
		if err := tso.FixCapacity(candidate); err != nil {
			return 0, core.Sensitivities{}, false, err
		}

		dsos := make([]coupling.ISubproblem, loaded.Dims.NumSites())
		for site, nd := range loaded.DSOs {
			models := network.Build(nd, loaded.Dims, candidate, loaded.Params.ObjType, loaded.Params.SESS, network.ModeADMM)
			sub := coupling.NewSubproblemCoupling(core.RoleDSO, site, loaded.Dims, loaded.DiscountFactor, models, network.Solver{}, log)
			if err := sub.FixCapacity(candidate); err != nil {
				return 0, core.Sensitivities{}, false, err
			}
			dsos[site] = sub
		}

		ac := admm.New(loaded.Dims, loaded.Params.Admm, loaded.Params.ErrorPrecision, store, tso, dsos, loaded.Params.Benders.UpperBoundRole, log)
		res, err := ac.Run(ctx)
		if err != nil {
			return 0, core.Sensitivities{}, false, err
		}
		return res.UpperBound, res.Sensitivities, res.Converged, nil
	}

	result, err := coord.Run(ctx, innerSolver)
	if err != nil {
		return runID, network.Results{}, err
	}
	if !result.Converged {
		log.Warn("benders outer loop did not converge", zap.Int("iterations", result.Iterations))
	}

	dispatch := dispatchRows(loaded.Dims, lastStore)
	trace := make([]network.IterationRow, len(result.Trace))
	for i, t := range result.Trace {
		trace[i] = network.IterationRow{Iteration: t.Iteration, UpperBound: t.UpperBound, LowerBound: t.LowerBound}
	}

	return runID, network.Results{
		RunID:     runID,
		Converged: result.Converged,
		Dispatch:  dispatch,
		Trace:     trace,
	}, nil
}

// dispatchRows flattens the final consensus store's DSO-owned interface and
// ESS quantities into one row per (site, year, day, instant), the settled
// view of what each site actually delivered (spec.md §4.6).
func dispatchRows(dims core.Dimensions, store *consensus.Store) []network.DispatchRow {
	if store == nil {
		return nil
	}
	var out []network.DispatchRow
	for e := 0; e < dims.NumSites(); e++ {
		for y := 0; y < dims.NumYears(); y++ {
			for d := 0; d < dims.NumDays(); d++ {
				for t := 0; t < dims.NumInstants; t++ {
					out = append(out, network.DispatchRow{
						Site: e, Year: y, Day: d, Instant: t,
						PPF:  store.Read(consensus.SlotPPFDso, e, y, d, t),
						QPF:  store.Read(consensus.SlotQPFDso, e, y, d, t),
						PEss: store.Read(consensus.SlotPEssDso, e, y, d, t),
						QEss: store.Read(consensus.SlotQEssDso, e, y, d, t),
					})
				}
			}
		}
	}
	return out
}
