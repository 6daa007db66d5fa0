// Package coupling adapts one network role's per-(year, day) operational
// model to the narrow surface the coordination core needs (spec.md §4.3).
// Per the design note in spec.md §9, the core never reaches into solver
// expressions by name: it only ever sees the ISubproblem interface below,
// which both enables mocking in tests and isolates the choice of
// optimization framework behind internal/network's reference
// implementation.
package coupling

import (
	"context"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/consensus"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// PFSnapshot is the initial interface power-flow solution used to normalize
// residuals in the ADMM objective rewrite (spec.md §4.3: "residuals ...
// normalized by the magnitude of the initial interface power").
type PFSnapshot struct {
	P, Q float64
}

// DualPair is one coupling's scaled multiplier, in (p, q) component form.
type DualPair struct {
	P, Q float64
}

// SolveResult is what one opaque solve reports back. Sensitivities are only
// meaningful for the TSO role (spec.md §3: "Sensitivities returned by the
// TSO subproblem").
type SolveResult struct {
	Converged     bool
	ObjectiveValue float64
	Sensitivities core.Sensitivities
}

// ISubproblem is the adapter surface spec.md §4.3 names. One instance wraps
// a single network role (TSO, or one DSO) across every (year, day) the
// planning run covers.
type ISubproblem interface {
	// FixCapacity sets installed s, e and derives e_init/e_min/e_max on the
	// role's SESS entities from the given candidate.
	FixCapacity(candidate core.Candidate) error

	// BindForADMM sets the penalty and installs the residual normalization
	// for every (year, day) this subproblem covers. initialPF is keyed by
	// site index: the TSO reads one entry per active DN node, a DSO only the
	// entry for its own site.
	BindForADMM(initialPF map[int]PFSnapshot, rhoPF, rhoEss float64) error

	// PushIterationInputs fixes per-instant consensus/dual/penalty
	// parameters for the next solve, read from the given store snapshot.
	PushIterationInputs(store *consensus.Store, rhoPF, rhoEss float64) error

	// Solve invokes the underlying NlpSolver. fromWarmStart requests reuse
	// of prior bounds/duals and a tiny mu_init (spec.md §7).
	Solve(ctx context.Context, fromWarmStart bool) (SolveResult, error)

	// PullOutputs reads expected interface and SESS quantities and writes
	// them into the store under this subproblem's role.
	PullOutputs(store *consensus.Store) error
}
