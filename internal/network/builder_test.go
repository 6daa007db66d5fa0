package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
)

func testNetworkData() (*NetworkData, core.Dimensions) {
	dims := core.Dimensions{
		Years:       []core.YearMeta{{Label: "y0", WeightYear: 1}, {Label: "y1", WeightYear: 1}},
		Days:        []core.DayMeta{{Label: "d0", WeightDays: 365}},
		NumInstants: 2,
		Sites:       []string{"dn1"},
	}
	nd := NewNetworkData(core.RoleDSO, 0, dims, []int{0}, 1.0)
	// Distinct per-instant values so sliceDay's flatten/unflatten can be
	// checked against the exact (year, day, instant) cell it should read.
	nd.Set(0, 0, 0, 0, 1, 0.1, 10, 1)
	nd.Set(0, 0, 0, 1, 2, 0.2, 20, 2)
	nd.Set(0, 1, 0, 0, 3, 0.3, 30, 3)
	nd.Set(0, 1, 0, 1, 4, 0.4, 40, 4)
	return nd, dims
}

func testSESSParams() core.SESSParameters {
	return core.SESSParameters{
		RelativeInitSOC:     []float64{0.5},
		MinEnergyStoredFrac: []float64{0},
		MaxEnergyStoredFrac: []float64{1},
	}
}

func TestBuildProducesOneModelPerYearDay(t *testing.T) {
	nd, dims := testNetworkData()
	candidate := core.NewCandidate(dims)
	candidate.Rated[0][0] = core.Capacity{PowerMVA: 2, EnergyMVAh: 4}
	candidate.Rated[0][1] = core.Capacity{PowerMVA: 3, EnergyMVAh: 6}

	models := Build(nd, dims, candidate, core.ObjectiveCost, testSESSParams(), ModeADMM)
	require.Len(t, models, dims.NumYears()*dims.NumDays())

	m1, ok := models[coupling.YearDay{Year: 1, Day: 0}].(*ToyModel)
	require.True(t, ok)
	require.InDelta(t, 3.0, m1.sites[0].capacity.PowerMVA, 1e-9)
	require.InDelta(t, 6.0, m1.sites[0].capacity.EnergyMVAh, 1e-9)
}

func TestSliceDaySelectsCorrectInstants(t *testing.T) {
	nd, dims := testNetworkData()
	full := nd.series(0)
	out := sliceDay(full, dims, 1, 0, dims.NumInstants)

	require.InDelta(t, 3.0, out.NetLoadP[0], 1e-9)
	require.InDelta(t, 4.0, out.NetLoadP[1], 1e-9)
	require.InDelta(t, 0.3, out.NetLoadQ[0], 1e-9)
	require.InDelta(t, 0.4, out.NetLoadQ[1], 1e-9)
	require.InDelta(t, 30.0, out.Price[0], 1e-9)
	require.InDelta(t, 3.0, out.Congestion[0], 1e-9)
}
