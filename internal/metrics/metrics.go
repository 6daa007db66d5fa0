// Package metrics exposes Prometheus instrumentation for the coordination
// core: outer (Benders) and inner (ADMM) iteration counts, convergence
// residuals, and the append-only Benders cut count. Grounded on
// jordigilh-kubernaut's pkg/metrics package-level promauto collectors plus
// Record* helper functions; this is a domain-stack addition spec.md has no
// Non-goal excluding (ambient observability is carried regardless of
// feature-scoped Non-goals, SPEC_FULL §11).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BendersIterationsTotal counts every outer-loop iteration across every
	// planning run (spec.md §4.5).
	BendersIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planning_benders_iterations_total",
		Help: "Total number of Benders outer-loop iterations executed.",
	})

	// BendersCutsTotal tracks the monotonically growing cut count of the
	// most recently solved master problem (spec.md §4.2/§8).
	BendersCutsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planning_benders_cuts",
		Help: "Number of Benders cuts accumulated in the current master problem.",
	})

	// BendersGapRatio is the most recent |UB-LB|/|LB| relative gap
	// (spec.md §4.5).
	BendersGapRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planning_benders_gap_ratio",
		Help: "Most recent Benders outer-loop relative optimality gap.",
	})

	// AdmmIterationsTotal counts every inner-loop iteration across every
	// outer iteration and planning run (spec.md §4.4).
	AdmmIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planning_admm_iterations_total",
		Help: "Total number of ADMM inner-loop iterations executed.",
	})

	// AdmmConsensusResidual is the most recent consensus residual S_c
	// (spec.md §4.4.1).
	AdmmConsensusResidual = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planning_admm_consensus_residual",
		Help: "Most recent ADMM consensus residual.",
	})

	// AdmmStationaryResidual is the most recent stationary residual S_s
	// (spec.md §4.4.1).
	AdmmStationaryResidual = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planning_admm_stationary_residual",
		Help: "Most recent ADMM stationary residual.",
	})

	// SolverFailuresTotal counts subproblem solve failures by role
	// (spec.md §7).
	SolverFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_solver_failures_total",
		Help: "Total number of subproblem solve failures, by role.",
	}, []string{"role"})

	// PlanningRunDuration records wall-clock duration of a full planning
	// run (outer loop start to finish).
	PlanningRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planning_run_duration_seconds",
		Help:    "Wall-clock duration of a complete planning run.",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordBendersIteration increments the outer-loop counter and updates the
// gap-ratio and cut-count gauges for one completed iteration.
func RecordBendersIteration(cuts int, upperBound, lowerBound float64) {
	BendersIterationsTotal.Inc()
	BendersCutsTotal.Set(float64(cuts))
	denom := lowerBound
	if denom == 0 {
		denom = 1
	}
	gap := upperBound - lowerBound
	if gap < 0 {
		gap = -gap
	}
	if denom < 0 {
		denom = -denom
	}
	BendersGapRatio.Set(gap / denom)
}

// RecordAdmmIteration increments the inner-loop counter and updates the
// residual gauges for one completed iteration.
func RecordAdmmIteration(consensusResidual, stationaryResidual float64) {
	AdmmIterationsTotal.Inc()
	AdmmConsensusResidual.Set(consensusResidual)
	AdmmStationaryResidual.Set(stationaryResidual)
}

// RecordSolverFailure increments the failure counter for one role.
func RecordSolverFailure(role string) {
	SolverFailuresTotal.WithLabelValues(role).Inc()
}

// RecordPlanningRun observes one planning run's total duration.
func RecordPlanningRun(d time.Duration) {
	PlanningRunDuration.Observe(d.Seconds())
}
