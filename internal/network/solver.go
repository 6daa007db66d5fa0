package network

import (
	"context"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
)

// Solver is the reference NlpSolver (spec.md §6 item 3): it mutates a
// *ToyModel in place by running its closed-form dispatch and reports
// convergence for it (any other Model type is left untouched and reported
// as not converged), since the toy model has no iterative residual
// of its own — the real NLP this stands in for is where warm-start mechanics
// and genuine convergence checks would live (spec.md Non-goals: "does not
// implement solver warm-start mechanics itself").
type Solver struct{}

var _ coupling.NlpSolver = Solver{}

// Solve runs the closed-form dispatch. fromWarmStart is accepted but unused
// here — the toy model is stateless across calls except through the
// consensus store, so there is nothing to warm-start; a real NlpSolver would
// use it to reuse bound duals and request a tiny mu_init (spec.md §4.3).
func (Solver) Solve(_ context.Context, model coupling.Model, fromWarmStart bool) (bool, error) {
	tm, ok := model.(*ToyModel)
	if !ok {
		return false, nil
	}
	tm.solve()
	return true, nil
}
