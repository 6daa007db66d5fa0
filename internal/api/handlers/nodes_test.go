package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/models"
)

func TestRankNodesReturnsRankings(t *testing.T) {
	networkPath := writeMiniNetwork(t)
	h := NewNodesHandler()

	c, w := newTestContext(http.MethodGet, "/api/v1/nodes/rank?network_file="+networkPath, nil)
	h.RankNodes(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.NodeRankResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rankings, 1)
	require.Equal(t, 1, resp.Rankings[0].Rank)
}

func TestRankNodesRejectsMissingNetworkFileParam(t *testing.T) {
	h := NewNodesHandler()
	c, w := newTestContext(http.MethodGet, "/api/v1/nodes/rank", nil)
	h.RankNodes(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankNodesSurfacesDataFileError(t *testing.T) {
	h := NewNodesHandler()
	c, w := newTestContext(http.MethodGet, "/api/v1/nodes/rank?network_file=/does/not/exist.yaml", nil)
	h.RankNodes(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	require.Equal(t, "DATA_FILE_ERROR", errResp.Error.Code)
}
