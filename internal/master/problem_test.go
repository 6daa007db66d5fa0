package master

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

func dims3y1site() core.Dimensions {
	return core.Dimensions{
		Years: []core.YearMeta{
			{Label: "y0", WeightYear: 1},
			{Label: "y1", WeightYear: 1},
			{Label: "y2", WeightYear: 1},
		},
		Days:        []core.DayMeta{{Label: "d0", WeightDays: 365}},
		NumInstants: 1,
		Sites:       []string{"dn1"},
	}
}

func sessParams() core.SESSParameters {
	return core.SESSParameters{
		Budget:              1000,
		MaxCapacityMVAh:     10,
		MinPEFactor:          0.25,
		MaxPEFactor:          4,
		CalendarLifeYears:    []float64{2},
		RelativeInitSOC:      []float64{0.5},
		MinEnergyStoredFrac:  []float64{0},
		MaxEnergyStoredFrac:  []float64{1},
	}
}

func TestWindowCoversCalendarLifeYears(t *testing.T) {
	m := New(dims3y1site(), sessParams(), nil, 0)

	start, end := m.window(0, 0)
	require.Equal(t, 0, start)
	require.Equal(t, 1, end)

	start, end = m.window(0, 1)
	require.Equal(t, 1, start)
	require.Equal(t, 2, end)

	// Year 2's window would run past the horizon end; it must clip.
	start, end = m.window(0, 2)
	require.Equal(t, 2, start)
	require.Equal(t, 2, end)
}

func TestSolveWithNoCutsGivesZeroInvestment(t *testing.T) {
	dims := dims3y1site()
	m := New(dims, sessParams(), []InvestmentCost{{PowerPerMVA: 1, EnergyPerMVAh: 1}, {}, {}}, 0)

	candidate, alpha, err := m.Solve()
	require.NoError(t, err)
	require.InDelta(t, -1000*sessParams().Budget, alpha, 1e-6)
	for e := 0; e < dims.NumSites(); e++ {
		for y := 0; y < dims.NumYears(); y++ {
			require.InDelta(t, 0.0, candidate.Rated[e][y].PowerMVA, 1e-6)
			require.InDelta(t, 0.0, candidate.Rated[e][y].EnergyMVAh, 1e-6)
		}
	}
}

func TestAddCutTightensLowerBound(t *testing.T) {
	dims := dims3y1site()
	m := New(dims, sessParams(), []InvestmentCost{{PowerPerMVA: 1, EnergyPerMVAh: 1}, {}, {}}, 0)

	zero := m.ZeroCandidate()
	sens := core.NewSensitivities(dims)
	cut := core.BendersCut{UpperBound: 50, Sigma: sens, At: zero}
	m.AddCut(cut)
	require.Equal(t, 1, m.NumCuts())

	_, alpha, err := m.Solve()
	require.NoError(t, err)
	require.GreaterOrEqual(t, alpha, 50.0-1e-6)
}

func TestBudgetAccessor(t *testing.T) {
	m := New(dims3y1site(), sessParams(), nil, 0)
	require.Equal(t, 1000.0, m.Budget())
}
