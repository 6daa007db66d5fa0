package models

// PlanRequest is the request body for POST /api/v1/plans: a planning run
// over a network description file, with optional overrides onto its
// Parameters (spec.md §6.3).
type PlanRequest struct {
	NetworkFile string `json:"network_file" binding:"required"`

	Objective string `json:"objective,omitempty"` // "COST" or "CONGESTION_MANAGEMENT", default "COST"

	Benders BendersConfig `json:"benders,omitempty"`
	Admm    AdmmConfig    `json:"admm,omitempty"`
	SESS    SESSConfig    `json:"sess,omitempty"`
}

// BendersConfig overrides the outer loop's bounds (core.BendersParameters).
type BendersConfig struct {
	NumMaxIters int     `json:"num_max_iters,omitempty"`
	TolAbs      float64 `json:"tol_abs,omitempty"`
	TolRel      float64 `json:"tol_rel,omitempty"`
}

// AdmmConfig overrides the inner loop's bounds (core.AdmmParameters).
type AdmmConfig struct {
	NumMaxIters       int       `json:"num_max_iters,omitempty"`
	Tol               float64   `json:"tol,omitempty"`
	RhoPF             []float64 `json:"rho_pf,omitempty"`
	RhoEss            []float64 `json:"rho_ess,omitempty"`
	ConvergenceRelTol float64   `json:"convergence_rel_tol,omitempty"`
}

// SESSConfig overrides SESS investment parameters (core.SESSParameters).
// Zero/empty fields fall back to whatever the network file's own
// planning_parameters block specifies.
type SESSConfig struct {
	Budget float64 `json:"budget,omitempty"`
}

// NodeRankRequest is the query for GET /api/v1/nodes/rank.
type NodeRankRequest struct {
	NetworkFile string `form:"network_file" binding:"required"`
	Limit       int    `form:"limit,omitempty"` // default: 10
}
