package admm

import "github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"

// PenaltyPolicy is the single object governing ρ_pf/ρ_ess for every role.
// Per the design note in spec.md §9 ("the source applies the factor each
// iteration on both ρ_pf and ρ_ess but derives both updates from the
// current ρ_pf value ... implementers should expose it as a single policy
// object so the invariant is trivially inspectable"), both arrays are
// advanced together from a single growth factor, and Ess mirrors Pf's
// current value rather than growing independently.
type PenaltyPolicy struct {
	Adaptive bool
	Factor   float64 // γ_ρ

	RhoPF  []float64 // index 0 = TSO, 1..N = DSOs in site order
	RhoEss []float64
}

// NewPenaltyPolicy copies the initial per-role penalties out of Parameters.
func NewPenaltyPolicy(p core.AdmmParameters) *PenaltyPolicy {
	rhoPF := make([]float64, len(p.RhoPF))
	copy(rhoPF, p.RhoPF)
	rhoEss := make([]float64, len(p.RhoEss))
	copy(rhoEss, p.RhoEss)
	return &PenaltyPolicy{Adaptive: p.AdaptivePenalty, Factor: p.AdaptivePenaltyFactor, RhoPF: rhoPF, RhoEss: rhoEss}
}

// Advance grows every role's ρ_pf geometrically by (1+γ_ρ) and sets ρ_ess to
// match the just-grown ρ_pf, reproducing the source's "derive both updates
// from the current ρ_pf value" behavior. A no-op when Adaptive is false.
func (p *PenaltyPolicy) Advance() {
	if !p.Adaptive {
		return
	}
	for i := range p.RhoPF {
		p.RhoPF[i] *= 1 + p.Factor
		p.RhoEss[i] = p.RhoPF[i]
	}
}
