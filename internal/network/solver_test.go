package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
)

func TestSolverRunsDispatchAndReportsConverged(t *testing.T) {
	m := newToyModel(core.RoleTSO, 1, core.ObjectiveCost)
	series := &SiteSeries{NetLoadP: []float64{1}, NetLoadQ: []float64{0}, Price: []float64{5}, Congestion: []float64{0}}
	m.addSite(0, series, 1.0, core.SESSParameters{
		RelativeInitSOC: []float64{0.5}, MinEnergyStoredFrac: []float64{0}, MaxEnergyStoredFrac: []float64{1},
	}, 0)
	require.NoError(t, m.FixCapacity(0, core.Capacity{PowerMVA: 1, EnergyMVAh: 1}))

	converged, err := Solver{}.Solve(context.Background(), m, false)
	require.NoError(t, err)
	require.True(t, converged)
	// solve() must have populated the output arrays, not left them zeroed.
	vSqr, _, _ := m.ExpectedInterface(0, 0)
	require.InDelta(t, 1.0, vSqr, 1e-9)
}

func TestSolverRejectsForeignModelType(t *testing.T) {
	converged, err := Solver{}.Solve(context.Background(), fakeModel{}, false)
	require.NoError(t, err)
	require.False(t, converged)
}

type fakeModel struct{}

func (fakeModel) FixCapacity(int, core.Capacity) error                             { return nil }
func (fakeModel) SetConsensusRequest(int, float64, float64, float64, float64, int) {}
func (fakeModel) SetDual(int, coupling.DualPair, coupling.DualPair, int)           {}
func (fakeModel) SetPenalty(float64, float64)                                      {}
func (fakeModel) Normalize(int, coupling.PFSnapshot)                               {}
func (fakeModel) BaseMVA() float64                                                 { return 1 }
func (fakeModel) ExpectedInterface(int, int) (float64, float64, float64)           { return 1, 0, 0 }
func (fakeModel) ExpectedEss(int, int) (float64, float64)                          { return 0, 0 }
func (fakeModel) Objective() float64                                               { return 0 }
func (fakeModel) Sensitivities(int) (float64, float64)                            { return 0, 0 }
