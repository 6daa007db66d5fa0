package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/models"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/network"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/orchestrator"
)

// PlansHandler runs planning requests through the orchestrator and keeps
// completed runs around for later retrieval, the same role the teacher's
// BacktestHandler plays for backtest results (internal/api/handlers/backtest.go),
// minus the result-caching TODO that handler never resolved.
type PlansHandler struct {
	orch *orchestrator.PlanningOrchestrator

	mu      sync.RWMutex
	results map[string]network.Results
}

// NewPlansHandler builds a PlansHandler around a ready-to-use orchestrator.
func NewPlansHandler(orch *orchestrator.PlanningOrchestrator) *PlansHandler {
	return &PlansHandler{orch: orch, results: map[string]network.Results{}}
}

// CreatePlan handles POST /api/v1/plans. The orchestrator runs synchronously
// and the completed result is both returned and cached under its run ID.
func (h *PlansHandler) CreatePlan(c *gin.Context) {
	var req models.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	params := buildParameters(req)

	runID, res, err := h.orch.Run(c.Request.Context(), req.NetworkFile, params)
	if err != nil {
		writeCoreError(c, err)
		return
	}

	h.mu.Lock()
	h.results[runID] = res
	h.mu.Unlock()

	c.JSON(http.StatusOK, toPlanResponse(res))
}

// GetPlan handles GET /api/v1/plans/:id.
func (h *PlansHandler) GetPlan(c *gin.Context) {
	id := c.Param("id")

	h.mu.RLock()
	res, ok := h.results[id]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "unknown run id: " + id},
		})
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(res))
}

func buildParameters(req models.PlanRequest) core.Parameters {
	objective := req.Objective
	if objective == "" {
		objective = string(core.ObjectiveCost)
	}
	return core.Parameters{
		ObjType: core.ObjectiveType(objective),
		Benders: core.BendersParameters{
			NumMaxIters: req.Benders.NumMaxIters,
			TolAbs:      req.Benders.TolAbs,
			TolRel:      req.Benders.TolRel,
		},
		Admm: core.AdmmParameters{
			NumMaxIters:       req.Admm.NumMaxIters,
			Tol:               req.Admm.Tol,
			RhoPF:             req.Admm.RhoPF,
			RhoEss:            req.Admm.RhoEss,
			ConvergenceRelTol: req.Admm.ConvergenceRelTol,
		},
		SESS: core.SESSParameters{Budget: req.SESS.Budget},
	}
}

func toPlanResponse(res network.Results) models.PlanResponse {
	status := "not_converged"
	if res.Converged {
		status = "converged"
	}
	trace := make([]models.IterationPoint, len(res.Trace))
	for i, t := range res.Trace {
		trace[i] = models.IterationPoint{Iteration: t.Iteration, UpperBound: t.UpperBound, LowerBound: t.LowerBound}
	}
	dispatch := make([]models.DispatchPoint, len(res.Dispatch))
	for i, d := range res.Dispatch {
		dispatch[i] = models.DispatchPoint{
			Site: d.Site, Year: d.Year, Day: d.Day, Instant: d.Instant,
			PPF: d.PPF, QPF: d.QPF, PEss: d.PEss, QEss: d.QEss,
		}
	}
	return models.PlanResponse{
		RunID:     res.RunID,
		Status:    status,
		Converged: res.Converged,
		Trace:     trace,
		Dispatch:  dispatch,
	}
}
