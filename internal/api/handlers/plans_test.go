package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/models"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/orchestrator"
)

func testPlanRequestBody(t *testing.T, networkFile string) []byte {
	t.Helper()
	req := models.PlanRequest{
		NetworkFile: networkFile,
		Benders:     models.BendersConfig{NumMaxIters: 3, TolAbs: 1, TolRel: 0.05},
		Admm: models.AdmmConfig{
			NumMaxIters:       5,
			Tol:               1e-3,
			RhoPF:             []float64{1, 1},
			RhoEss:            []float64{1, 1},
			ConvergenceRelTol: 1e-3,
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return raw
}

func TestCreatePlanRunsAndCachesResult(t *testing.T) {
	networkPath := writeMiniNetwork(t)
	h := NewPlansHandler(orchestrator.New(nil))

	c, w := newTestContext(http.MethodPost, "/api/v1/plans", testPlanRequestBody(t, networkPath))
	h.CreatePlan(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	require.NotEmpty(t, resp.Trace)

	c2, w2 := newTestContext(http.MethodGet, "/api/v1/plans/"+resp.RunID, nil)
	c2.Params = gin.Params{{Key: "id", Value: resp.RunID}}
	h.GetPlan(c2)
	require.Equal(t, http.StatusOK, w2.Code)
}

func TestGetPlanUnknownIDReturns404(t *testing.T) {
	h := NewPlansHandler(orchestrator.New(nil))
	c, w := newTestContext(http.MethodGet, "/api/v1/plans/does-not-exist", nil)
	c.Params = gin.Params{{Key: "id", Value: "does-not-exist"}}
	h.GetPlan(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePlanRejectsMissingNetworkFile(t *testing.T) {
	h := NewPlansHandler(orchestrator.New(nil))
	c, w := newTestContext(http.MethodPost, "/api/v1/plans", []byte(`{}`))
	h.CreatePlan(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePlanSurfacesDataFileErrorAs400(t *testing.T) {
	h := NewPlansHandler(orchestrator.New(nil))
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	c, w := newTestContext(http.MethodPost, "/api/v1/plans", testPlanRequestBody(t, missing))
	h.CreatePlan(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	require.Equal(t, "DATA_FILE_ERROR", errResp.Error.Code)
}
