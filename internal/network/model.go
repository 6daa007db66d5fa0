package network

import (
	"math"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// siteState is one active-DN-node's mutable solve state inside a ToyModel:
// its installed capacity, derived SOC bounds, exogenous profile, and the
// per-instant consensus/dual inputs and solved outputs. The SOC-bound
// clipping is adapted from the teacher's model.Battery.ApplyDispatch /
// ClipDispatch (internal/model/battery.go), generalized from one fixed
// battery to a per-(site,year) installed capacity (SPEC_FULL §13).
type siteState struct {
	series *SiteSeries

	capacity    core.Capacity
	relInitSOC  float64
	minFrac     float64
	maxFrac     float64
	voltageBase float64

	bound         bool
	rhoPF, rhoEss float64
	normPF        float64 // magnitude of the initial interface power (spec.md §4.3)
	normEss       float64 // 2*rating, with rating:=1 (so 2) when unrated (spec.md §7)
	reqPPF, reqQPF, reqPEss, reqQEss []float64
	lamPF, lamQPF, lamEssP, lamEssQ  []float64

	outV, outPPF, outQPF, outPEss, outQEss []float64
	dPower, dEnergy                        float64
}

// ToyModel is the reference NetworkModelBuilder output for one role across a
// single (year, day): the opaque "Model" spec.md §6 item 2 describes. It is
// intentionally simple — a closed-form economic-dispatch surrogate rather
// than a real AC-OPF — since the real model assembly is explicitly out of
// the core's scope (spec.md §1).
type ToyModel struct {
	Role        core.Role
	NumInstants int
	objType     core.ObjectiveType

	sites map[int]*siteState
}

var _ coupling.Model = (*ToyModel)(nil)

func newToyModel(role core.Role, numInstants int, objType core.ObjectiveType) *ToyModel {
	return &ToyModel{Role: role, NumInstants: numInstants, objType: objType, sites: map[int]*siteState{}}
}

func (m *ToyModel) addSite(site int, series *SiteSeries, voltageBase float64, sess core.SESSParameters, idx int) {
	n := m.NumInstants
	m.sites[site] = &siteState{
		series:      series,
		voltageBase: voltageBase,
		relInitSOC:  sess.RelativeInitSOC[idx],
		minFrac:     sess.MinEnergyStoredFrac[idx],
		maxFrac:     sess.MaxEnergyStoredFrac[idx],
		normPF:      1,
		normEss:     1,
		reqPPF:      make([]float64, n), reqQPF: make([]float64, n),
		reqPEss: make([]float64, n), reqQEss: make([]float64, n),
		lamPF: make([]float64, n), lamQPF: make([]float64, n),
		lamEssP: make([]float64, n), lamEssQ: make([]float64, n),
		outV: make([]float64, n), outPPF: make([]float64, n), outQPF: make([]float64, n),
		outPEss: make([]float64, n), outQEss: make([]float64, n),
	}
}

func (m *ToyModel) FixCapacity(site int, installed core.Capacity) error {
	s, ok := m.sites[site]
	if !ok {
		return nil
	}
	s.capacity = installed
	return nil
}

func (m *ToyModel) SetConsensusRequest(site int, pPF, qPF, pEss, qEss float64, t int) {
	s, ok := m.sites[site]
	if !ok {
		return
	}
	s.bound = true
	s.reqPPF[t], s.reqQPF[t], s.reqPEss[t], s.reqQEss[t] = pPF, qPF, pEss, qEss
}

func (m *ToyModel) SetDual(site int, lambdaPF, lambdaEss coupling.DualPair, t int) {
	s, ok := m.sites[site]
	if !ok {
		return
	}
	s.lamPF[t], s.lamQPF[t] = lambdaPF.P, lambdaPF.Q
	s.lamEssP[t], s.lamEssQ[t] = lambdaEss.P, lambdaEss.Q
}

func (m *ToyModel) SetPenalty(rhoPF, rhoEss float64) {
	for _, s := range m.sites {
		s.rhoPF, s.rhoEss = rhoPF, rhoEss
	}
}

// Normalize implements bind_for_admm's residual normalization (spec.md
// §4.3): the PF residual is scaled by the magnitude of the initial
// interface power, the SESS residual by 2·rating, with rating:=1 (a divisor
// of 2) when the site carries no rated power yet (spec.md §7).
func (m *ToyModel) Normalize(site int, initial coupling.PFSnapshot) {
	s, ok := m.sites[site]
	if !ok {
		return
	}
	norm := math.Hypot(initial.P, initial.Q)
	if norm == 0 {
		norm = 1
	}
	s.normPF = norm

	rating := s.capacity.PowerMVA
	if rating <= 0 {
		rating = 1
	}
	s.normEss = 2 * rating
}

func (m *ToyModel) BaseMVA() float64 { return 100.0 }

func (m *ToyModel) ExpectedInterface(site, t int) (vmagSqr, p, q float64) {
	s, ok := m.sites[site]
	if !ok {
		return 1, 0, 0
	}
	return s.outV[t] * s.outV[t], s.outPPF[t], s.outQPF[t]
}

func (m *ToyModel) ExpectedEss(site, t int) (p, q float64) {
	s, ok := m.sites[site]
	if !ok {
		return 0, 0
	}
	return s.outPEss[t], s.outQEss[t]
}

func (m *ToyModel) Objective() float64 {
	var total float64
	for _, s := range m.sites {
		for t := 0; t < m.NumInstants; t++ {
			price := s.series.Price[s.series.index3(t)]
			cost := s.series.Congestion[s.series.index3(t)]
			if m.objType == core.ObjectiveCongestionManagement {
				price = cost
			}
			netAfterEss := s.series.NetLoadP[s.series.index3(t)] - s.outPEss[t]
			total += price * netAfterEss
		}
	}
	return total
}

func (m *ToyModel) Sensitivities(site int) (dPower, dEnergy float64) {
	s, ok := m.sites[site]
	if !ok {
		return 0, 0
	}
	return s.dPower, s.dEnergy
}

// index3 is a convenience used by ToyModel when it only ever sees one
// (year, day) slice of a SiteSeries: callers arrange for a SiteSeries whose
// backing arrays are already sliced down to one day's NumInstants points
// (see builder.go), so the local index is just t.
func (s *SiteSeries) index3(t int) int { return t }

// solve runs the per-instant closed-form dispatch described in DESIGN.md: a
// convex combination between the site's own economically-optimal dispatch
// and the ADMM-requested consensus value, weighted by the penalty ρ — the
// standard scaled-ADMM quadratic-penalty optimum for an otherwise-unconstrained
// quadratic subproblem. SOC bookkeeping and power-rating clipping are
// adapted from the teacher's model.Battery dispatch physics (SPEC_FULL §13).
func (m *ToyModel) solve() {
	for _, s := range m.sites {
		m.solveSite(s)
	}
}

func (m *ToyModel) solveSite(s *siteState) {
	ratedPower := s.capacity.PowerMVA
	ratedEnergy := s.capacity.EnergyMVAh
	if ratedEnergy <= 0 {
		ratedEnergy = 0
	}

	socMWh := s.relInitSOC * ratedEnergy
	minMWh := s.minFrac * ratedEnergy
	maxMWh := s.maxFrac * ratedEnergy

	var bindingPower, bindingEnergy bool

	for t := 0; t < m.NumInstants; t++ {
		price := s.series.Price[t]
		if m.objType == core.ObjectiveCongestionManagement {
			price = s.series.Congestion[t]
		}
		netLoadP := s.series.NetLoadP[t]
		netLoadQ := s.series.NetLoadQ[t]

		// Interface PF: quadratic penalty pull between the role's own
		// network-physics view (netLoad) and the peer's requested value.
		pPF := weightedTarget(netLoadP, s.lamPF[t], s.reqPPF[t], s.rhoPF, s.normPF, s.bound)
		qPF := weightedTarget(netLoadQ, s.lamQPF[t], s.reqQPF[t], s.rhoPF, s.normPF, s.bound)

		// Shared-ESS dispatch: economic target is price-greedy bang-bang,
		// pulled toward the ADMM request the same way.
		econTarget := 0.0
		if ratedPower > 0 {
			if price > 0 {
				econTarget = ratedPower
			} else if price < 0 {
				econTarget = -ratedPower
			}
		}
		pEss := weightedTarget(econTarget, s.lamEssP[t], s.reqPEss[t], s.rhoEss, s.normEss, s.bound)
		qEss := weightedTarget(0, s.lamEssQ[t], s.reqQEss[t], s.rhoEss, s.normEss, s.bound)

		if pEss > ratedPower {
			pEss = ratedPower
			bindingPower = true
		}
		if pEss < -ratedPower {
			pEss = -ratedPower
			bindingPower = true
		}

		if ratedEnergy > 0 {
			next := socMWh - pEss // pEss>0 discharges (draws down stored energy)
			if next > maxMWh {
				pEss = socMWh - maxMWh
				next = maxMWh
				bindingEnergy = true
			}
			if next < minMWh {
				pEss = socMWh - minMWh
				next = minMWh
				bindingEnergy = true
			}
			socMWh = next
		} else {
			pEss = 0
		}

		s.outPPF[t] = pPF
		s.outQPF[t] = qPF
		s.outPEss[t] = pEss
		s.outQEss[t] = qEss
		s.outV[t] = s.voltageBase
	}

	// Heuristic shadow-price sensitivity: a capacity constraint that bound at
	// any instant this (year, day) means relaxing it would have reduced cost,
	// approximated by the average price magnitude over the horizon. This
	// stands in for the real NLP's KKT-derived partials (spec.md §3); see
	// DESIGN.md.
	s.dPower, s.dEnergy = 0, 0
	if bindingPower {
		s.dPower = -avgAbs(s.series.Price)
	}
	if bindingEnergy {
		s.dEnergy = -avgAbs(s.series.Price)
	}
}

// weightedTarget implements p = (base*norm^2 - lambda*norm + rho*req) /
// (norm^2 + rho), the scaled-ADMM quadratic-penalty minimizer of
// 0.5*(p-base)^2 + lambda*r + (rho/2)*r^2 with the residual
// r = (p-req)/norm normalized by norm (spec.md §4.3's bind_for_admm
// residual normalization). norm==1 recovers the un-normalized form. When
// unbound (rho==0), it reduces to p = base.
func weightedTarget(base, lambda, req, rho, norm float64, bound bool) float64 {
	if !bound || rho == 0 {
		return base
	}
	if norm == 0 {
		norm = 1
	}
	return (base*norm*norm - lambda*norm + rho*req) / (norm*norm + rho)
}

func avgAbs(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum / float64(len(xs))
}
