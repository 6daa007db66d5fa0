package coupling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// fakeModel is a minimal coupling.Model double: a fixed objective and
// sensitivity pair per site, with no real physics, used to pin down the
// weighting arithmetic SubproblemCoupling.Solve performs around it.
type fakeModel struct {
	objective float64
	dPower    float64
	dEnergy   float64

	normalizedSites []int
}

func (f *fakeModel) FixCapacity(int, core.Capacity) error                { return nil }
func (f *fakeModel) SetConsensusRequest(int, float64, float64, float64, float64, int) {}
func (f *fakeModel) SetDual(int, DualPair, DualPair, int)                {}
func (f *fakeModel) SetPenalty(float64, float64)                         {}
func (f *fakeModel) Normalize(site int, _ PFSnapshot)                    { f.normalizedSites = append(f.normalizedSites, site) }
func (f *fakeModel) BaseMVA() float64                                    { return 100 }
func (f *fakeModel) ExpectedInterface(int, int) (float64, float64, float64) { return 1, 0, 0 }
func (f *fakeModel) ExpectedEss(int, int) (float64, float64)              { return 0, 0 }
func (f *fakeModel) Objective() float64                                   { return f.objective }
func (f *fakeModel) Sensitivities(int) (float64, float64)                 { return f.dPower, f.dEnergy }

type fakeSolver struct{}

func (fakeSolver) Solve(ctx context.Context, model Model, fromWarmStart bool) (bool, error) {
	return true, nil
}

func twoYearOneSiteDims() core.Dimensions {
	return core.Dimensions{
		Years:       []core.YearMeta{{Label: "y0", WeightYear: 1}, {Label: "y1", WeightYear: 2}},
		Days:        []core.DayMeta{{Label: "d0", WeightDays: 200}, {Label: "d1", WeightDays: 165}},
		NumInstants: 1,
		Sites:       []string{"dn1"},
	}
}

func TestSolveWeightsObjectiveByYearDayAndAnnualization(t *testing.T) {
	dims := twoYearOneSiteDims()
	models := map[YearDay]Model{
		{Year: 0, Day: 0}: &fakeModel{objective: 10, dPower: 1, dEnergy: 2},
		{Year: 1, Day: 1}: &fakeModel{objective: 20, dPower: 3, dEnergy: 4},
	}
	sub := NewSubproblemCoupling(core.RoleTSO, -1, dims, 0.1, models, fakeSolver{}, nil)

	res, err := sub.Solve(context.Background(), false)
	require.NoError(t, err)

	want := dims.Years[0].WeightYear*dims.Days[0].WeightDays*annualization(0.1, 0)*10 +
		dims.Years[1].WeightYear*dims.Days[1].WeightDays*annualization(0.1, 1)*20
	require.InDelta(t, want, res.ObjectiveValue, 1e-9)
}

func TestSolveWeightsSensitivitiesByDayShareOfYear(t *testing.T) {
	dims := twoYearOneSiteDims()
	models := map[YearDay]Model{
		{Year: 0, Day: 0}: &fakeModel{dPower: 6, dEnergy: 12},
		{Year: 0, Day: 1}: &fakeModel{dPower: 3, dEnergy: 9},
	}
	sub := NewSubproblemCoupling(core.RoleTSO, -1, dims, 0, models, fakeSolver{}, nil)

	res, err := sub.Solve(context.Background(), false)
	require.NoError(t, err)

	wantPower := (dims.Days[0].WeightDays/365)*6 + (dims.Days[1].WeightDays/365)*3
	wantEnergy := (dims.Days[0].WeightDays/365)*12 + (dims.Days[1].WeightDays/365)*9
	require.InDelta(t, wantPower, res.Sensitivities.DPower[0][0], 1e-9)
	require.InDelta(t, wantEnergy, res.Sensitivities.DEnergy[0][0], 1e-9)
}

func TestBindForADMMNormalizesEveryModelAtEachSite(t *testing.T) {
	dims := twoYearOneSiteDims()
	m00 := &fakeModel{}
	m11 := &fakeModel{}
	models := map[YearDay]Model{
		{Year: 0, Day: 0}: m00,
		{Year: 1, Day: 1}: m11,
	}
	sub := NewSubproblemCoupling(core.RoleTSO, -1, dims, 0, models, fakeSolver{}, nil)

	require.NoError(t, sub.BindForADMM(map[int]PFSnapshot{0: {P: 3, Q: 4}}, 1, 1))

	require.Equal(t, []int{0}, m00.normalizedSites)
	require.Equal(t, []int{0}, m11.normalizedSites)
}
