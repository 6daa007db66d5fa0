package core

// ObjectiveType selects the subproblem's objective shape (spec.md §6.3).
type ObjectiveType string

const (
	ObjectiveCost                ObjectiveType = "COST"
	ObjectiveCongestionManagement ObjectiveType = "CONGESTION_MANAGEMENT"
)

// RelaxationSwitches are the boolean modeling switches recognized by the
// core's Configuration surface (spec.md §6.3). They affect only the
// opaque subproblem's relaxation surface; the core never inspects them
// beyond threading them through to NetworkModelBuilder.
type RelaxationSwitches struct {
	TransformerRegulation bool
	EnergyStorageRegulation bool
	FlexibleLoadRegulation  bool
	RenewableCurtailment    bool
	LoadCurtailment         bool
	RelaxedModel            bool
	EnergyStorageRelax      bool
	FlexibleLoadRelax       bool
	EnforceVoltageGuarantee bool
	SlackLineLimits         bool
	SlackVoltageLimits      bool
}

// Normalize applies the spec's "relaxed_model forces ess_relax and fl_relax"
// rule (spec.md §6.3) and returns the corrected switches.
func (s RelaxationSwitches) Normalize() RelaxationSwitches {
	if s.RelaxedModel {
		s.EnergyStorageRelax = true
		s.FlexibleLoadRelax = true
	}
	return s
}

// SESSParameters bundles the SESS-investment constants shared by every site
// (budget, capacity bounds, power/energy ratio bounds) plus the per-site
// constants used to derive operational SOC bounds from rated energy
// (spec.md §4.3, §6.3).
type SESSParameters struct {
	Budget       float64
	MaxCapacityMVAh float64
	MinPEFactor  float64
	MaxPEFactor  float64

	// Per-site constants, indexed the same way as Dimensions.Sites.
	CalendarLifeYears  []float64 // t_cal(e, y, d) is expressed here as a constant per site
	RelativeInitSOC    []float64
	MinEnergyStoredFrac []float64
	MaxEnergyStoredFrac []float64
}

// BendersParameters bounds the outer loop (spec.md §4.5/§6.3).
type BendersParameters struct {
	NumMaxIters int
	TolAbs      float64
	TolRel      float64
	// UpperBoundRole selects which operator's objective feeds the upper
	// bound (design note in spec.md §9: "implementers should parameterize
	// which operator's objective is the UB source"). Default is RoleTSO.
	UpperBoundRole Role
}

// AdmmParameters bounds and tunes the inner loop (spec.md §4.4/§6.3).
type AdmmParameters struct {
	NumMaxIters int
	Tol         float64

	// RhoPF/RhoEss are per-role penalties; index 0 is TSO, index 1..N are
	// DSOs in Dimensions.Sites order.
	RhoPF  []float64
	RhoEss []float64

	AdaptivePenalty       bool
	AdaptivePenaltyFactor float64

	// ConvergenceRelTol governs the "S_c ≈ tol·N_c within..." near-equality
	// rule in spec.md §4.4.1.
	ConvergenceRelTol float64

	// SymmetricPFDuals resolves the Open Question in spec.md §9: when false
	// (the default, matching the source), only dual.tso.q is incremented on
	// the TSO side of the PF coupling, while DSO increments both p and q.
	// When true, both sides update both components symmetrically.
	SymmetricPFDuals bool
}

// Parameters is the immutable bundle of tolerances, penalties, budgets, and
// mode flags the core runs with (spec.md §6.3, design note in §9: "pass
// them via the Parameters bundle" rather than module-level constants).
type Parameters struct {
	ObjType     ObjectiveType
	Relaxation  RelaxationSwitches
	Benders     BendersParameters
	Admm        AdmmParameters
	SESS        SESSParameters

	// ErrorPrecision is the rounding scale used to suppress solver noise in
	// residual computations (spec.md §4.4.1, "ERR_PREC").
	ErrorPrecision float64

	// WarmStartBaselineCountsAsIteration resolves the second Open Question
	// in spec.md §9. Recommendation adopted: false (the baseline-mode solve
	// is iteration 0, not counted). admm.Coordinator does not read this
	// field: the baseline solve is never counted against NumMaxIters,
	// whatever its value.
	WarmStartBaselineCountsAsIteration bool
}

// Validate checks the enumerated/boolean Configuration surface before any
// solve is attempted, per spec.md §7 ("InvalidConfiguration: terminate
// before any solve").
func (p Parameters) Validate(dims Dimensions) error {
	switch p.ObjType {
	case ObjectiveCost, ObjectiveCongestionManagement:
	default:
		return &InvalidConfigurationError{Reason: "unknown obj_type: " + string(p.ObjType)}
	}
	if p.Benders.NumMaxIters <= 0 {
		return &InvalidConfigurationError{Reason: "benders.num_max_iters must be > 0"}
	}
	if p.Admm.NumMaxIters <= 0 {
		return &InvalidConfigurationError{Reason: "admm.num_max_iters must be > 0"}
	}
	if p.SESS.MinPEFactor <= 0 || p.SESS.MaxPEFactor < p.SESS.MinPEFactor {
		return &InvalidConfigurationError{Reason: "sess.min_pe_factor/max_pe_factor out of order"}
	}
	n := dims.NumSites()
	if len(p.Admm.RhoPF) != n+1 || len(p.Admm.RhoEss) != n+1 {
		return &InvalidConfigurationError{Reason: "admm rho arrays must have one entry for TSO plus one per DSO"}
	}
	if len(p.SESS.CalendarLifeYears) != n || len(p.SESS.RelativeInitSOC) != n ||
		len(p.SESS.MinEnergyStoredFrac) != n || len(p.SESS.MaxEnergyStoredFrac) != n {
		return &InvalidConfigurationError{Reason: "sess per-site parameter arrays must have one entry per site"}
	}
	return nil
}
