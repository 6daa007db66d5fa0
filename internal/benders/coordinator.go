// Package benders implements the outer Benders decomposition loop: it
// alternates between the SESS investment master problem and the inner ADMM
// operational solve, turning the inner solve's sensitivities into cuts that
// tighten the master's lower bound (spec.md §4.5).
package benders

import (
	"context"

	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/master"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/metrics"
)

// InnerSolver is the callable AdmmCoordinator hands the outer loop:
// solve_operations(candidate) → (upper_bound, sensitivities) (spec.md §4.5).
type InnerSolver func(ctx context.Context, candidate core.Candidate) (upperBound float64, sens core.Sensitivities, converged bool, err error)

// Result is what one completed (or capped) Benders run returns.
type Result struct {
	Candidate  core.Candidate
	UpperBound float64
	LowerBound float64
	Converged  bool
	Iterations int
	Trace      []IterationTrace
}

// IterationTrace records one outer iteration's UB/LB, for ResultsWriter.
type IterationTrace struct {
	Iteration  int
	UpperBound float64
	LowerBound float64
}

// Coordinator drives the outer loop of spec.md §4.5.
type Coordinator struct {
	Master *master.MasterProblem
	Params core.BendersParameters
	Dims   core.Dimensions
	Log    *zap.Logger
}

// Run executes spec.md §4.5 step by step: initialize LB/UB from the budget
// bound, then until the iteration cap or either gap tolerance is satisfied,
// solve inner, check for early termination at UB_k≈LB, append a cut, and
// resolve the master for the next candidate and tightened LB.
func (c *Coordinator) Run(ctx context.Context, solveInner InnerSolver) (Result, error) {
	bound := 1000 * c.Master.Budget()
	lb := -bound
	ub := bound
	candidate := c.Master.ZeroCandidate()

	var trace []IterationTrace
	converged := false
	k := 0

	for ; k < c.Params.NumMaxIters; k++ {
		if absDiff(ub, lb) <= c.Params.TolAbs || relGap(ub, lb) <= c.Params.TolRel {
			converged = true
			break
		}

		ubK, sens, innerConverged, err := solveInner(ctx, candidate)
		if err != nil {
			return Result{}, err
		}
		if !innerConverged && c.Log != nil {
			c.Log.Warn("inner ADMM solve did not converge this outer iteration", zap.Int("outer_iter", k+1))
		}
		ub = ubK
		trace = append(trace, IterationTrace{Iteration: k + 1, UpperBound: ub, LowerBound: lb})
		metrics.RecordBendersIteration(c.Master.NumCuts(), ub, lb)

		if nearEqual(ubK, lb, c.Params.TolRel) {
			converged = true
			k++
			break
		}

		cut := core.BendersCut{UpperBound: ubK, Sigma: sens, At: candidate}
		c.Master.AddCut(cut)

		newCandidate, alpha, err := c.Master.Solve()
		if err != nil {
			return Result{}, err
		}
		candidate = newCandidate
		lb = alpha
	}

	return Result{
		Candidate:  candidate,
		UpperBound: ub,
		LowerBound: lb,
		Converged:  converged,
		Iterations: k,
		Trace:      trace,
	}, nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func relGap(ub, lb float64) float64 {
	denom := lb
	if denom == 0 {
		denom = 1
	}
	return absDiff(ub, lb) / absAbs(denom)
}

func absAbs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func nearEqual(a, b, tol float64) bool {
	return absDiff(a, b) <= tol*absAbs(b)
}
