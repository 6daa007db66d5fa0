package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/models"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// writeCoreError maps the core's structured sentinel errors (spec.md §7) onto
// an HTTP status and an ErrorResponse, the same role the teacher's GridStatusError
// status-code switch plays in internal/api/handlers/backtest.go.
func writeCoreError(c *gin.Context, err error) {
	var cfgErr *core.InvalidConfigurationError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_CONFIGURATION", Message: cfgErr.Error()},
		})
		return
	}
	var dataErr *core.DataFileError
	if errors.As(err, &dataErr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "DATA_FILE_ERROR", Message: dataErr.Error()},
		})
		return
	}
	var solverErr *core.SolverFailure
	if errors.As(err, &solverErr) {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "SOLVER_FAILURE", Message: solverErr.Error()},
		})
		return
	}
	var convErr *core.NonConvergence
	if errors.As(err, &convErr) {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NON_CONVERGENCE", Message: convErr.Error()},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()},
	})
}
