package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

func TestRankCandidateSitesOrdersByOracleProfitDescending(t *testing.T) {
	dims := core.Dimensions{
		Years:       []core.YearMeta{{Label: "y0", WeightYear: 1}},
		Days:        []core.DayMeta{{Label: "d0", WeightDays: 365}},
		NumInstants: 4,
		Sites:       []string{"flat", "volatile"},
	}
	tso := NewNetworkData(core.RoleTSO, -1, dims, []int{0, 1}, 1.0)
	// "flat" never moves, so a perfect-foresight battery can't profit from it.
	tso.Set(0, 0, 0, 0, 0, 0, 10, 0)
	tso.Set(0, 0, 0, 1, 0, 0, 10, 0)
	tso.Set(0, 0, 0, 2, 0, 0, 10, 0)
	tso.Set(0, 0, 0, 3, 0, 0, 10, 0)
	// "volatile" swings between cheap and expensive, a clear arbitrage.
	tso.Set(1, 0, 0, 0, 0, 0, 1, 0)
	tso.Set(1, 0, 0, 1, 0, 0, 50, 0)
	tso.Set(1, 0, 0, 2, 0, 0, 1, 0)
	tso.Set(1, 0, 0, 3, 0, 0, 50, 0)

	ranked := RankCandidateSites(dims, tso)
	require.Len(t, ranked, 2)
	require.Equal(t, "volatile", ranked[0].Label)
	require.Greater(t, ranked[0].OracleProfit, ranked[1].OracleProfit)
	require.InDelta(t, 0.0, ranked[1].OracleProfit, 1e-9)
}

func TestPercentileBoundaries(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	require.InDelta(t, 1.0, percentile(sorted, 0), 1e-9)
	require.InDelta(t, 5.0, percentile(sorted, 1), 1e-9)
	require.InDelta(t, 3.0, percentile(sorted, 0.5), 1e-9)
}
