package coupling

import (
	"context"
	"fmt"
	"math"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/consensus"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// Model is the per-(year, day) operational expression set NetworkModelBuilder
// produces (spec.md §6 item 2). The TSO's model spans every active DN node
// (interface) at once; a DSO's model only ever sees its own site index, but
// the interface is kept uniform so SubproblemCoupling can drive either.
type Model interface {
	FixCapacity(site int, installed core.Capacity) error
	SetConsensusRequest(site int, pPF, qPF, pEss, qEss float64, t int)
	SetDual(site int, lambdaPF, lambdaEss DualPair, t int)
	SetPenalty(rhoPF, rhoEss float64)
	// Normalize fixes the residual-normalization constants bind_for_admm
	// installs (spec.md §4.3): the PF residual is scaled by the magnitude of
	// the given initial interface power, the SESS residual by 2·rating (with
	// rating:=1, a divisor of 2, when the site is unrated).
	Normalize(site int, initial PFSnapshot)
	BaseMVA() float64
	ExpectedInterface(site, t int) (vmagSqr, p, q float64)
	ExpectedEss(site, t int) (p, q float64)
	Objective() float64
	// Sensitivities returns ∂L/∂s, ∂L/∂e for one site at this (year, day);
	// only the TSO role's models populate these meaningfully.
	Sensitivities(site int) (dPower, dEnergy float64)
}

// NlpSolver is the opaque nonlinear solver spec.md §6 describes: it mutates
// a Model in place and reports whether the solve converged.
type NlpSolver interface {
	Solve(ctx context.Context, model Model, fromWarmStart bool) (converged bool, err error)
}

// YearDay identifies one (year, day) operational model within a role's
// subproblem.
type YearDay struct {
	Year, Day int
}

// SubproblemCoupling is the concrete ISubproblem: one instance per network
// role, owning that role's per-(year, day) Model set and driving them
// through a shared NlpSolver (spec.md §4.3).
//
// solve is wrapped in a gobreaker.CircuitBreaker: after two consecutive
// SolverFailures it trips, and later Solve calls fail fast with the
// breaker's error instead of calling the solver. Neither the ADMM nor the
// Benders loop ends a run early on such failures; the ADMM loop logs them
// and keeps the last pulled outputs.
type SubproblemCoupling struct {
	Role core.Role
	Site int // meaningful for DSO roles; -1 for the TSO's global role

	models map[YearDay]Model
	solver NlpSolver
	log    *zap.Logger
	cb     *gobreaker.CircuitBreaker

	lastSensitivities core.Sensitivities
	lastObjective     float64

	dims           core.Dimensions
	discountFactor float64
}

// annualization returns 1/(1+δ)^y, the same discounting MasterProblem
// applies to investment cost, used here to discount the operational
// objective into the upper bound (spec.md §4.5: "annualization(y)").
func annualization(discountFactor float64, y int) float64 {
	return 1.0 / math.Pow(1+discountFactor, float64(y))
}

// sites returns the site indices this subproblem is responsible for: every
// active DN node for the TSO role, or just its own site for a DSO.
func (c *SubproblemCoupling) sites() []int {
	if c.Role != core.RoleTSO {
		return []int{c.Site}
	}
	out := make([]int, c.dims.NumSites())
	for i := range out {
		out[i] = i
	}
	return out
}

// NewSubproblemCoupling wires a role's per-(year, day) models to a solver,
// with a circuit breaker tripping after consecutive solve failures.
func NewSubproblemCoupling(role core.Role, site int, dims core.Dimensions, discountFactor float64, models map[YearDay]Model, solver NlpSolver, log *zap.Logger) *SubproblemCoupling {
	name := fmt.Sprintf("subproblem-%s-%d", role, site)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})
	return &SubproblemCoupling{Role: role, Site: site, dims: dims, discountFactor: discountFactor, models: models, solver: solver, log: log, cb: cb}
}

func (c *SubproblemCoupling) FixCapacity(candidate core.Candidate) error {
	for yd, m := range c.models {
		for _, site := range c.sites() {
			if err := m.FixCapacity(site, candidate.Rated[site][yd.Year]); err != nil {
				return &core.SolverFailure{Role: c.Role, Site: c.Site, Err: err}
			}
		}
	}
	return nil
}

// BindForADMM sets the penalty and installs each site's residual
// normalization on every (year, day) model this subproblem covers
// (spec.md §4.3). It is a one-time setup step, invoked once by
// AdmmCoordinator before the iteration loop begins, never per-iteration.
func (c *SubproblemCoupling) BindForADMM(initialPF map[int]PFSnapshot, rhoPF, rhoEss float64) error {
	for _, m := range c.models {
		m.SetPenalty(rhoPF, rhoEss)
		for _, site := range c.sites() {
			snap := initialPF[site]
			m.Normalize(site, snap)
		}
	}
	return nil
}

func (c *SubproblemCoupling) PushIterationInputs(store *consensus.Store, rhoPF, rhoEss float64) error {
	dims := store.Dims()
	for yd, m := range c.models {
		m.SetPenalty(rhoPF, rhoEss)
		for _, site := range c.sites() {
			for t := 0; t < dims.NumInstants; t++ {
				pPF, qPF, pEss, qEss := c.peerRequest(store, site, yd, t)
				m.SetConsensusRequest(site, pPF, qPF, pEss, qEss, t)
				lambdaPF, lambdaEss := c.ownDuals(store, site, yd, t)
				m.SetDual(site, lambdaPF, lambdaEss, t)
			}
		}
	}
	return nil
}

// peerRequest reads the other role's current interface/ESS quantities: the
// consensus request a subproblem is being asked to track this iteration
// (spec.md §4.4 steps 2/4: "push current DSO-owned quantities ... as
// inputs to the TSO adapter", and symmetrically for the DSO step).
func (c *SubproblemCoupling) peerRequest(store *consensus.Store, site int, yd YearDay, t int) (pPF, qPF, pEss, qEss float64) {
	if c.Role == core.RoleTSO {
		return store.Read(consensus.SlotPPFDso, site, yd.Year, yd.Day, t),
			store.Read(consensus.SlotQPFDso, site, yd.Year, yd.Day, t),
			store.Read(consensus.SlotPEssDso, site, yd.Year, yd.Day, t),
			store.Read(consensus.SlotQEssDso, site, yd.Year, yd.Day, t)
	}
	return store.Read(consensus.SlotPPFTso, site, yd.Year, yd.Day, t),
		store.Read(consensus.SlotQPFTso, site, yd.Year, yd.Day, t),
		store.Read(consensus.SlotPEssTso, site, yd.Year, yd.Day, t),
		store.Read(consensus.SlotQEssTso, site, yd.Year, yd.Day, t)
}

func (c *SubproblemCoupling) ownDuals(store *consensus.Store, site int, yd YearDay, t int) (pf, ess DualPair) {
	if c.Role == core.RoleTSO {
		return DualPair{P: store.ReadDual(consensus.DualPFTsoP, site, yd.Year, yd.Day, t), Q: store.ReadDual(consensus.DualPFTsoQ, site, yd.Year, yd.Day, t)},
			DualPair{P: store.ReadDual(consensus.DualEssTsoP, site, yd.Year, yd.Day, t), Q: store.ReadDual(consensus.DualEssTsoQ, site, yd.Year, yd.Day, t)}
	}
	return DualPair{P: store.ReadDual(consensus.DualPFDsoP, site, yd.Year, yd.Day, t), Q: store.ReadDual(consensus.DualPFDsoQ, site, yd.Year, yd.Day, t)},
		DualPair{P: store.ReadDual(consensus.DualEssDsoP, site, yd.Year, yd.Day, t), Q: store.ReadDual(consensus.DualEssDsoQ, site, yd.Year, yd.Day, t)}
}

func (c *SubproblemCoupling) Solve(ctx context.Context, fromWarmStart bool) (SolveResult, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		var totalObj float64
		sens := core.NewSensitivities(c.dims)
		converged := true
		for yd, m := range c.models {
			ok, err := c.solver.Solve(ctx, m, fromWarmStart)
			if err != nil {
				return nil, &core.SolverFailure{Role: c.Role, Site: c.Site, Err: err}
			}
			converged = converged && ok

			// UB = Σ_{y,d} w_y · w_d · annualization(y) · ObjPerRepresentativeDay
			// (spec.md §4.5). WeightDays already carries the day's share of a
			// year (days/year), and WeightYear its share of the horizon.
			wy := c.dims.Years[yd.Year].WeightYear
			wd := c.dims.Days[yd.Day].WeightDays
			totalObj += wy * wd * annualization(c.discountFactor, yd.Year) * m.Objective()

			// σ = Σ_d (w_d/365) · ∂L/∂· (spec.md §4.5): day-weighted only, no
			// year weighting or annualization on the sensitivities themselves.
			delta := core.NewSensitivities(c.dims)
			for _, site := range c.sites() {
				dP, dE := m.Sensitivities(site)
				delta.DPower[site][yd.Year] = dP
				delta.DEnergy[site][yd.Year] = dE
			}
			sens.Add(delta, wd/365)
		}
		return SolveResult{Converged: converged, ObjectiveValue: totalObj, Sensitivities: sens}, nil
	})
	if err != nil {
		if c.log != nil {
			c.log.Warn("subproblem solve failed, reusing last feasible outputs",
				zap.Stringer("role", c.Role), zap.Int("site", c.Site), zap.Error(err))
		}
		return SolveResult{Converged: false, ObjectiveValue: c.lastObjective, Sensitivities: c.lastSensitivities}, err
	}
	res := result.(SolveResult)
	c.lastObjective = res.ObjectiveValue
	c.lastSensitivities = res.Sensitivities
	return res, nil
}

func (c *SubproblemCoupling) PullOutputs(store *consensus.Store) error {
	dims := store.Dims()
	pfSlotP, pfSlotQ := consensus.SlotPPFDso, consensus.SlotQPFDso
	essSlotP, essSlotQ := consensus.SlotPEssDso, consensus.SlotQEssDso
	if c.Role == core.RoleTSO {
		pfSlotP, pfSlotQ = consensus.SlotPPFTso, consensus.SlotQPFTso
		essSlotP, essSlotQ = consensus.SlotPEssTso, consensus.SlotQEssTso
	}
	for yd, m := range c.models {
		for _, site := range c.sites() {
			for t := 0; t < dims.NumInstants; t++ {
				vSqr, p, q := m.ExpectedInterface(site, t)
				store.Write(pfSlotP, site, yd.Year, yd.Day, t, p)
				store.Write(pfSlotQ, site, yd.Year, yd.Day, t, q)
				if c.Role == core.RoleTSO {
					store.Write(consensus.SlotV, site, yd.Year, yd.Day, t, vSqr)
				}
				essP, essQ := m.ExpectedEss(site, t)
				store.Write(essSlotP, site, yd.Year, yd.Day, t, essP)
				store.Write(essSlotQ, site, yd.Year, yd.Day, t, essQ)
			}
		}
	}
	return nil
}
