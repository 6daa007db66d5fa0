package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/models"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/network"
)

// NodesHandler exposes node-attractiveness ranking, the SPEC_FULL-supplemented
// counterpart of the teacher's RankHandler (internal/api/handlers/rank.go),
// now over network-description files instead of live Grid Status queries.
type NodesHandler struct{}

// NewNodesHandler creates a new nodes handler.
func NewNodesHandler() *NodesHandler {
	return &NodesHandler{}
}

// RankNodes handles GET /api/v1/nodes/rank.
func (h *NodesHandler) RankNodes(c *gin.Context) {
	var req models.NodeRankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	loaded, err := network.LoadYAML(req.NetworkFile)
	if err != nil {
		writeCoreError(c, err)
		return
	}

	ranked := network.RankCandidateSites(loaded.Dims, loaded.TSO)

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	rankings := make([]models.NodeRanking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.NodeRanking{
			Rank:         i + 1,
			Site:         r.Site,
			Label:        r.Label,
			Count:        r.Count,
			MinLMP:       r.MinLMP,
			MaxLMP:       r.MaxLMP,
			MeanLMP:      r.MeanLMP,
			SpreadP95P05: r.SpreadP95P05,
			OracleProfit: r.OracleProfit,
		}
	}

	c.JSON(http.StatusOK, models.NodeRankResponse{Rankings: rankings})
}
