package master

import (
	"math"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// MasterProblem holds the SESS investment LP: yearly
// investments s_inv/e_inv, derived installed capacities s_rated/e_rated tied
// to them by the calendar-life-window accounting, and the append-only
// Benders cut list that tightens the epigraph variable α (spec.md §4.2).
type MasterProblem struct {
	dims           core.Dimensions
	sess           core.SESSParameters
	invest         []InvestmentCost
	discountFactor float64

	cuts []core.BendersCut
}

// InvestmentCost is the per-year cost of one unit of rated power / rated
// energy investment (spec.md §6 item 1). Kept independent of
// internal/network's identical type so the master LP has no dependency on
// the reference external-collaborator package (spec.md §6's interface
// boundary); internal/orchestrator is the only place that bridges the two.
type InvestmentCost struct {
	PowerPerMVA   float64
	EnergyPerMVAh float64
}

// New builds a MasterProblem with no cuts yet, lower-bounded initially by
// -budget·1000 (spec.md §4.2/§4.5 step 1).
func New(dims core.Dimensions, sess core.SESSParameters, investmentCosts []InvestmentCost, discountFactor float64) *MasterProblem {
	return &MasterProblem{dims: dims, sess: sess, invest: investmentCosts, discountFactor: discountFactor}
}

// AddCut appends a Benders cut. Cuts are never retracted (spec.md §5/§8
// "Benders cut list grows monotonically").
func (m *MasterProblem) AddCut(cut core.BendersCut) {
	m.cuts = append(m.cuts, cut)
}

// NumCuts reports the current cut count (used by tests asserting monotonic
// growth, spec.md §8).
func (m *MasterProblem) NumCuts() int { return len(m.cuts) }

// Budget reports the SESS investment budget this master problem enforces,
// used by Coordinator to size the initial epigraph bound (spec.md §4.5
// step 1: "LB = -budget·1000, UB = +budget·1000").
func (m *MasterProblem) Budget() float64 { return m.sess.Budget }

func (m *MasterProblem) annualization(y int) float64 {
	return 1.0 / math.Pow(1+m.discountFactor, float64(y))
}

// window returns the calendar-life window of year indices an investment
// made in year y at site e contributes installed capacity to (spec.md
// §4.2): the next ⌈t_cal(e,y)/w_y⌉ year indices starting at y, bounded by
// the horizon end.
func (m *MasterProblem) window(e, y int) (start, end int) {
	wy := m.dims.Years[y].WeightYear
	if wy <= 0 {
		wy = 1
	}
	tcal := m.sess.CalendarLifeYears[e]
	length := int(math.Ceil(tcal / wy))
	if length < 1 {
		length = 1
	}
	end = y + length - 1
	if end > m.dims.NumYears()-1 {
		end = m.dims.NumYears() - 1
	}
	return y, end
}

// variable layout: for each (e, y) in row-major (e outer, y inner) order,
// four slots [sInv, eInv, sRated, eRated], then one trailing free α.
func (m *MasterProblem) numVars() int { return 4*m.dims.NumSites()*m.dims.NumYears() + 1 }

func (m *MasterProblem) idx(e, y, slot int) int {
	return (e*m.dims.NumYears()+y)*4 + slot
}

const (
	slotSInv = iota
	slotEInv
	slotSRated
	slotERated
)

func (m *MasterProblem) alphaIdx() int { return m.numVars() - 1 }

// Solve builds and solves the current LP relaxation and returns the new
// candidate capacity allocation plus the optimized epigraph bound α.
func (m *MasterProblem) Solve() (core.Candidate, float64, error) {
	n, y := m.dims.NumSites(), m.dims.NumYears()
	p := Problem{NumVars: m.numVars(), Free: make([]bool, m.numVars()), Obj: make([]float64, m.numVars())}
	p.Free[m.alphaIdx()] = true

	// Objective: discounted investment cost + α.
	for e := 0; e < n; e++ {
		for yr := 0; yr < y; yr++ {
			a := m.annualization(yr)
			cost := InvestmentCost{}
			if yr < len(m.invest) {
				cost = m.invest[yr]
			}
			p.Obj[m.idx(e, yr, slotSInv)] = a * cost.PowerPerMVA
			p.Obj[m.idx(e, yr, slotEInv)] = a * cost.EnergyPerMVAh
		}
	}
	p.Obj[m.alphaIdx()] = 1

	// Window accounting: s_rated[e,x] - Σ s_inv[e,y] = 0 over y whose window
	// covers x, and likewise for e_rated.
	for e := 0; e < n; e++ {
		ratedS := make([]map[int]float64, y)
		ratedE := make([]map[int]float64, y)
		for x := 0; x < y; x++ {
			ratedS[x] = map[int]float64{m.idx(e, x, slotSRated): 1}
			ratedE[x] = map[int]float64{m.idx(e, x, slotERated): 1}
		}
		for yr := 0; yr < y; yr++ {
			start, end := m.window(e, yr)
			for x := start; x <= end; x++ {
				ratedS[x][m.idx(e, yr, slotSInv)] -= 1
				ratedE[x][m.idx(e, yr, slotEInv)] -= 1
			}
		}
		for x := 0; x < y; x++ {
			p.Constraints = append(p.Constraints, Constraint{Coeffs: ratedS[x], Sense: EQ, RHS: 0})
			p.Constraints = append(p.Constraints, Constraint{Coeffs: ratedE[x], Sense: EQ, RHS: 0})
		}
	}

	// (a) e_rated <= max_capacity. (b) min_pe*e_rated <= s_rated <= max_pe*e_rated.
	for e := 0; e < n; e++ {
		for yr := 0; yr < y; yr++ {
			p.Constraints = append(p.Constraints,
				Constraint{Coeffs: map[int]float64{m.idx(e, yr, slotERated): 1}, Sense: LE, RHS: m.sess.MaxCapacityMVAh},
				Constraint{Coeffs: map[int]float64{
					m.idx(e, yr, slotSRated): 1,
					m.idx(e, yr, slotERated): -m.sess.MaxPEFactor,
				}, Sense: LE, RHS: 0},
				Constraint{Coeffs: map[int]float64{
					m.idx(e, yr, slotERated): m.sess.MinPEFactor,
					m.idx(e, yr, slotSRated): -1,
				}, Sense: LE, RHS: 0},
			)
		}
	}

	// (c) discounted investment cost <= budget.
	budgetRow := map[int]float64{}
	for e := 0; e < n; e++ {
		for yr := 0; yr < y; yr++ {
			a := m.annualization(yr)
			cost := InvestmentCost{}
			if yr < len(m.invest) {
				cost = m.invest[yr]
			}
			budgetRow[m.idx(e, yr, slotSInv)] += a * cost.PowerPerMVA
			budgetRow[m.idx(e, yr, slotEInv)] += a * cost.EnergyPerMVAh
		}
	}
	p.Constraints = append(p.Constraints, Constraint{Coeffs: budgetRow, Sense: LE, RHS: m.sess.Budget})

	// Initial epigraph lower bound: α >= -budget*1000.
	p.Constraints = append(p.Constraints, Constraint{
		Coeffs: map[int]float64{m.alphaIdx(): 1}, Sense: GE, RHS: -m.sess.Budget * 1000,
	})

	// Append-only Benders cuts: α - Σ(σs·s_rated + σe·e_rated) >= UB - Σ(σs·ŝ + σe·ê).
	for _, cut := range m.cuts {
		row := map[int]float64{m.alphaIdx(): 1}
		rhs := cut.UpperBound
		for e := 0; e < n; e++ {
			for yr := 0; yr < y; yr++ {
				sigS := cut.Sigma.DPower[e][yr]
				sigE := cut.Sigma.DEnergy[e][yr]
				row[m.idx(e, yr, slotSRated)] -= sigS
				row[m.idx(e, yr, slotERated)] -= sigE
				rhs += -sigS*cut.At.Rated[e][yr].PowerMVA - sigE*cut.At.Rated[e][yr].EnergyMVAh
			}
		}
		p.Constraints = append(p.Constraints, Constraint{Coeffs: row, Sense: GE, RHS: rhs})
	}

	sol, err := Solve(p)
	if err != nil {
		return core.Candidate{}, 0, err
	}

	candidate := core.NewCandidate(m.dims)
	for e := 0; e < n; e++ {
		for yr := 0; yr < y; yr++ {
			candidate.Rated[e][yr] = core.Capacity{
				PowerMVA:   sol.X[m.idx(e, yr, slotSRated)],
				EnergyMVAh: sol.X[m.idx(e, yr, slotERated)],
			}
		}
	}
	return candidate, sol.X[m.alphaIdx()], nil
}

// ZeroCandidate is the master's initial candidate before any cuts exist
// (spec.md §4.5 step 1: "ĉ from zero-investment").
func (m *MasterProblem) ZeroCandidate() core.Candidate {
	return core.NewCandidate(m.dims)
}
