// Package admm implements the inner coordination loop: scaled-form ADMM
// over two coupled blocks, interface power flow and shared-ESS dispatch,
// between one TSO subproblem and one subproblem per DSO (spec.md §4.4).
package admm

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/consensus"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/metrics"
)

// Result is what one completed (or capped) ADMM run hands back to the
// Benders outer loop: the upper bound and day-weighted sensitivities it
// needs to build the next cut (spec.md §4.5).
type Result struct {
	UpperBound    float64
	Sensitivities core.Sensitivities
	Converged     bool
	Iterations    int
}

// Coordinator drives the TSO subproblem and every DSO subproblem through
// the push/solve/pull/dual-update cycle of spec.md §4.4.
type Coordinator struct {
	Dims    core.Dimensions
	Params  core.AdmmParameters
	ErrPrec float64

	Store   *consensus.Store
	TSO     coupling.ISubproblem
	DSOs    []coupling.ISubproblem // one per site, in Dims.Sites order

	// UpperBoundRole selects which role's SolveResult feeds the Benders
	// upper bound (spec.md §9 design note, core.BendersParameters.UpperBoundRole).
	// RoleDSO picks the first DSO (Dims.Sites index 0); the spec does not
	// disambiguate across multiple DSOs beyond naming "which operator".
	UpperBoundRole core.Role

	Penalty *PenaltyPolicy
	Log     *zap.Logger
}

// New builds a Coordinator with a fresh penalty policy seeded from params.
func New(dims core.Dimensions, params core.AdmmParameters, errPrec float64, store *consensus.Store, tso coupling.ISubproblem, dsos []coupling.ISubproblem, ubRole core.Role, log *zap.Logger) *Coordinator {
	return &Coordinator{
		Dims: dims, Params: params, ErrPrec: errPrec,
		Store: store, TSO: tso, DSOs: dsos,
		UpperBoundRole: ubRole,
		Penalty:        NewPenaltyPolicy(params), Log: log,
	}
}

// Run executes the iteration loop of spec.md §4.4 and returns once either
// both parts of the convergence test pass or num_max_iters is reached.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	if err := c.runBaselineAndBind(ctx); err != nil {
		return Result{}, err
	}

	var lastResult coupling.SolveResult
	dsoResults := make([]coupling.SolveResult, len(c.DSOs))
	converged := false
	iter := 0

	for k := 1; k <= c.Params.NumMaxIters; k++ {
		iter = k
		c.Store.SnapshotCurrentAsPrevious()
		fromWarmStart := k > 1

		// Step 2: TSO step strictly precedes all DSO solves (spec.md §4.4/§5).
		if err := c.TSO.PushIterationInputs(c.Store, c.Penalty.RhoPF[0], c.Penalty.RhoEss[0]); err != nil {
			return Result{}, err
		}
		tsoResult, err := c.TSO.Solve(ctx, fromWarmStart)
		if err != nil {
			metrics.RecordSolverFailure(core.RoleTSO.String())
			if c.Log != nil {
				c.Log.Warn("tso solve failed this iteration, continuing with last feasible outputs", zap.Int("iter", k), zap.Error(err))
			}
		}
		if err := c.TSO.PullOutputs(c.Store); err != nil {
			return Result{}, err
		}
		c.updateTSODuals()

		// Step 4: DSO solves are data-independent and run fork-join
		// (spec.md §5: "a simple fork-join suffices").
		g, gctx := errgroup.WithContext(ctx)
		for i, dso := range c.DSOs {
			i, dso := i, dso
			g.Go(func() error {
				rhoPF, rhoEss := c.Penalty.RhoPF[i+1], c.Penalty.RhoEss[i+1]
				if err := dso.PushIterationInputs(c.Store, rhoPF, rhoEss); err != nil {
					return err
				}
				dsoResult, err := dso.Solve(gctx, fromWarmStart)
				if err != nil {
					metrics.RecordSolverFailure(core.RoleDSO.String())
					if c.Log != nil {
						c.Log.Warn("dso solve failed this iteration, continuing with last feasible outputs",
							zap.Int("site", i), zap.Int("iter", k), zap.Error(err))
					}
				}
				dsoResults[i] = dsoResult
				if err := dso.PullOutputs(c.Store); err != nil {
					return err
				}
				c.updateDSODuals(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}

		if c.UpperBoundRole == core.RoleDSO && len(dsoResults) > 0 {
			lastResult = dsoResults[0]
		} else {
			lastResult = tsoResult
		}

		c.Penalty.Advance()

		// Both parts of the two-part test (spec.md §4.4.1) are evaluated
		// from the first iteration: SnapshotCurrentAsPrevious above already
		// captured a meaningful "previous" (the zero/warm-start state before
		// this iteration's solves), so a trivially-feasible case can converge
		// in one iteration (spec.md §8 Scenario A).
		ok, sc, ss := c.converged()
		metrics.RecordAdmmIteration(sc, ss)
		if ok {
			converged = true
			break
		}
	}

	return Result{
		UpperBound:    lastResult.ObjectiveValue,
		Sensitivities: lastResult.Sensitivities,
		Converged:     converged,
		Iterations:    iter,
	}, nil
}

// runBaselineAndBind executes the unbound "iteration 0" baseline solve
// (spec.md §9 warm-start design note) for the TSO and every DSO, seeds the
// consensus store's current values from it so the first real iteration's
// "previous" snapshot is meaningful, and calls BindForADMM on each
// subproblem exactly once with the resulting initial interface power
// (spec.md §4.3). It never counts against NumMaxIters.
func (c *Coordinator) runBaselineAndBind(ctx context.Context) error {
	if _, err := c.TSO.Solve(ctx, false); err != nil {
		metrics.RecordSolverFailure(core.RoleTSO.String())
		if c.Log != nil {
			c.Log.Warn("tso baseline solve failed, seeding consensus from zero", zap.Error(err))
		}
	}
	if err := c.TSO.PullOutputs(c.Store); err != nil {
		return err
	}
	initialTSO := c.snapshotInterface(consensus.SlotPPFTso, consensus.SlotQPFTso)
	if err := c.TSO.BindForADMM(initialTSO, c.Penalty.RhoPF[0], c.Penalty.RhoEss[0]); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, dso := range c.DSOs {
		i, dso := i, dso
		g.Go(func() error {
			if _, err := dso.Solve(gctx, false); err != nil {
				metrics.RecordSolverFailure(core.RoleDSO.String())
				if c.Log != nil {
					c.Log.Warn("dso baseline solve failed, seeding consensus from zero", zap.Int("site", i), zap.Error(err))
				}
			}
			if err := dso.PullOutputs(c.Store); err != nil {
				return err
			}
			initial := c.snapshotInterfaceAt(i, consensus.SlotPPFDso, consensus.SlotQPFDso)
			return dso.BindForADMM(initial, c.Penalty.RhoPF[i+1], c.Penalty.RhoEss[i+1])
		})
	}
	return g.Wait()
}

// snapshotInterface reads the interface power the given role wrote for
// every site at the first (year, day, instant) cell, used as the "initial
// interface power" bind_for_admm normalizes residuals against (spec.md
// §4.3). A single representative cell is sufficient since it only fixes a
// normalization constant, not a modeling input.
func (c *Coordinator) snapshotInterface(slotP, slotQ consensus.Slot) map[int]coupling.PFSnapshot {
	out := make(map[int]coupling.PFSnapshot, c.Dims.NumSites())
	for e := 0; e < c.Dims.NumSites(); e++ {
		out[e] = coupling.PFSnapshot{
			P: c.Store.Read(slotP, e, 0, 0, 0),
			Q: c.Store.Read(slotQ, e, 0, 0, 0),
		}
	}
	return out
}

func (c *Coordinator) snapshotInterfaceAt(site int, slotP, slotQ consensus.Slot) map[int]coupling.PFSnapshot {
	return map[int]coupling.PFSnapshot{
		site: {P: c.Store.Read(slotP, site, 0, 0, 0), Q: c.Store.Read(slotQ, site, 0, 0, 0)},
	}
}

// updateTSODuals applies spec.md §4.4 step 3. The source increments only
// dual.tso.q for the PF coupling; both components are updated for ESS.
// Implementers were told to expose both behaviors gated by a compatibility
// flag (spec.md §9); SymmetricPFDuals selects which is used.
func (c *Coordinator) updateTSODuals() {
	for e := 0; e < c.Dims.NumSites(); e++ {
		for y := 0; y < c.Dims.NumYears(); y++ {
			for d := 0; d < c.Dims.NumDays(); d++ {
				for t := 0; t < c.Dims.NumInstants; t++ {
					pTso := c.Store.Read(consensus.SlotPPFTso, e, y, d, t)
					pDso := c.Store.Read(consensus.SlotPPFDso, e, y, d, t)
					qTso := c.Store.Read(consensus.SlotQPFTso, e, y, d, t)
					qDso := c.Store.Read(consensus.SlotQPFDso, e, y, d, t)
					rhoPF := c.Penalty.RhoPF[0]
					if c.Params.SymmetricPFDuals {
						c.Store.AddDual(consensus.DualPFTsoP, e, y, d, t, rhoPF*(pTso-pDso))
					}
					c.Store.AddDual(consensus.DualPFTsoQ, e, y, d, t, rhoPF*(qTso-qDso))

					pEssTso := c.Store.Read(consensus.SlotPEssTso, e, y, d, t)
					pEssDso := c.Store.Read(consensus.SlotPEssDso, e, y, d, t)
					qEssTso := c.Store.Read(consensus.SlotQEssTso, e, y, d, t)
					qEssDso := c.Store.Read(consensus.SlotQEssDso, e, y, d, t)
					rhoEss := c.Penalty.RhoEss[0]
					c.Store.AddDual(consensus.DualEssTsoP, e, y, d, t, rhoEss*(pEssTso-pEssDso))
					c.Store.AddDual(consensus.DualEssTsoQ, e, y, d, t, rhoEss*(qEssTso-qEssDso))
				}
			}
		}
	}
}

// updateDSODuals applies spec.md §4.4 step 4's dual update for one DSO's
// site, which always updates both p and q on both couplings.
func (c *Coordinator) updateDSODuals(site int) {
	rhoPF := c.Penalty.RhoPF[site+1]
	rhoEss := c.Penalty.RhoEss[site+1]
	for y := 0; y < c.Dims.NumYears(); y++ {
		for d := 0; d < c.Dims.NumDays(); d++ {
			for t := 0; t < c.Dims.NumInstants; t++ {
				pDso := c.Store.Read(consensus.SlotPPFDso, site, y, d, t)
				pTso := c.Store.Read(consensus.SlotPPFTso, site, y, d, t)
				qDso := c.Store.Read(consensus.SlotQPFDso, site, y, d, t)
				qTso := c.Store.Read(consensus.SlotQPFTso, site, y, d, t)
				c.Store.AddDual(consensus.DualPFDsoP, site, y, d, t, rhoPF*(pDso-pTso))
				c.Store.AddDual(consensus.DualPFDsoQ, site, y, d, t, rhoPF*(qDso-qTso))

				pEssDso := c.Store.Read(consensus.SlotPEssDso, site, y, d, t)
				pEssTso := c.Store.Read(consensus.SlotPEssTso, site, y, d, t)
				qEssDso := c.Store.Read(consensus.SlotQEssDso, site, y, d, t)
				qEssTso := c.Store.Read(consensus.SlotQEssTso, site, y, d, t)
				c.Store.AddDual(consensus.DualEssDsoP, site, y, d, t, rhoEss*(pEssDso-pEssTso))
				c.Store.AddDual(consensus.DualEssDsoQ, site, y, d, t, rhoEss*(qEssDso-qEssTso))
			}
		}
	}
}

// converged implements the two-part test of spec.md §4.4.1: both the
// consensus residual and the role-weighted stationary residual must pass.
// It also returns the two raw residuals for metrics reporting.
func (c *Coordinator) converged() (ok bool, consensusResidual, stationaryResidual float64) {
	var sc, ss float64
	var nc int

	for e := 0; e < c.Dims.NumSites(); e++ {
		rhoPFTso := c.Penalty.RhoPF[0]
		rhoPFDso := c.Penalty.RhoPF[e+1]
		rhoEssTso := c.Penalty.RhoEss[0]
		rhoEssDso := c.Penalty.RhoEss[e+1]
		for y := 0; y < c.Dims.NumYears(); y++ {
			for d := 0; d < c.Dims.NumDays(); d++ {
				for t := 0; t < c.Dims.NumInstants; t++ {
					pTso := c.Store.Read(consensus.SlotPPFTso, e, y, d, t)
					pDso := c.Store.Read(consensus.SlotPPFDso, e, y, d, t)
					qTso := c.Store.Read(consensus.SlotQPFTso, e, y, d, t)
					qDso := c.Store.Read(consensus.SlotQPFDso, e, y, d, t)
					sc += 2 * (math.Abs(pTso-pDso) + math.Abs(qTso-qDso))

					pEssTso := c.Store.Read(consensus.SlotPEssTso, e, y, d, t)
					pEssDso := c.Store.Read(consensus.SlotPEssDso, e, y, d, t)
					qEssTso := c.Store.Read(consensus.SlotQEssTso, e, y, d, t)
					qEssDso := c.Store.Read(consensus.SlotQEssDso, e, y, d, t)
					sc += 2 * (math.Abs(pEssTso-pEssDso) + math.Abs(qEssTso-qEssDso))
					nc += 4

					dPTso := pTso - c.Store.ReadPrevious(consensus.SlotPPFTso, e, y, d, t)
					dQTso := qTso - c.Store.ReadPrevious(consensus.SlotQPFTso, e, y, d, t)
					dPDso := pDso - c.Store.ReadPrevious(consensus.SlotPPFDso, e, y, d, t)
					dQDso := qDso - c.Store.ReadPrevious(consensus.SlotQPFDso, e, y, d, t)
					ss += rhoPFTso*(math.Abs(dPTso)+math.Abs(dQTso)) + rhoPFDso*(math.Abs(dPDso)+math.Abs(dQDso))

					dPEssTso := pEssTso - c.Store.ReadPrevious(consensus.SlotPEssTso, e, y, d, t)
					dQEssTso := qEssTso - c.Store.ReadPrevious(consensus.SlotQEssTso, e, y, d, t)
					dPEssDso := pEssDso - c.Store.ReadPrevious(consensus.SlotPEssDso, e, y, d, t)
					dQEssDso := qEssDso - c.Store.ReadPrevious(consensus.SlotQEssDso, e, y, d, t)
					ss += rhoEssTso*(math.Abs(dPEssTso)+math.Abs(dQEssTso)) + rhoEssDso*(math.Abs(dPEssDso)+math.Abs(dQEssDso))
				}
			}
		}
	}

	if nc == 0 {
		return true, 0, 0
	}
	sc = round(sc, c.ErrPrec)
	ss = round(ss, c.ErrPrec)

	threshold := c.Params.Tol * float64(nc)
	consensusOK := sc <= threshold || nearEqual(sc, threshold, c.Params.ConvergenceRelTol)
	stationaryOK := ss <= threshold || nearEqual(ss, threshold, c.Params.ConvergenceRelTol)
	return consensusOK && stationaryOK, sc, ss
}

func round(v, precision float64) float64 {
	if precision <= 0 {
		return v
	}
	return math.Round(v/precision) * precision
}

func nearEqual(a, b, relTol float64) bool {
	if relTol <= 0 {
		return false
	}
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom == 0 {
		return true
	}
	return math.Abs(a-b)/denom <= relTol
}
