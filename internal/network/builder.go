package network

import (
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/coupling"
)

// BuildMode mirrors spec.md §6 item 2's mode ∈ {baseline, admm}: baseline
// models have no consensus/dual parameters bound; admm models do.
type BuildMode string

const (
	ModeBaseline BuildMode = "baseline"
	ModeADMM     BuildMode = "admm"
)

// Build is the reference NetworkModelBuilder(network, candidate, mode): for
// one role's NetworkData it returns one ToyModel per (year, day), each
// already FixCapacity'd against the given candidate (spec.md §6 item 2).
// mode is not read: the models are built the same way in both modes and are
// always capable of both (the toy's SetConsensusRequest /
// SetDual are no-ops worth of data until PushIterationInputs calls them).
func Build(nd *NetworkData, dims core.Dimensions, candidate core.Candidate, objType core.ObjectiveType, sess core.SESSParameters, _ BuildMode) map[coupling.YearDay]coupling.Model {
	out := make(map[coupling.YearDay]coupling.Model, dims.NumYears()*dims.NumDays())
	sites := siteList(nd)
	for y := 0; y < dims.NumYears(); y++ {
		for d := 0; d < dims.NumDays(); d++ {
			m := newToyModel(nd.Role, dims.NumInstants, objType)
			for _, site := range sites {
				full := nd.series(site)
				daySlice := sliceDay(full, nd.dims, y, d, dims.NumInstants)
				m.addSite(site, daySlice, nd.VoltageBase, sess, site)
				_ = m.FixCapacity(site, candidate.Rated[site][y])
			}
			out[coupling.YearDay{Year: y, Day: d}] = m
		}
	}
	return out
}

func siteList(nd *NetworkData) []int {
	out := make([]int, 0, len(nd.sites))
	for s := range nd.sites {
		out = append(out, s)
	}
	return out
}

// sliceDay extracts one (year, day)'s worth of points into a fresh,
// zero-based SiteSeries so ToyModel can index it by plain t (spec.md §9's
// flatten-to-array design note, applied per-model instead of globally).
func sliceDay(full *SiteSeries, dims core.Dimensions, y, d, numInstants int) *SiteSeries {
	out := newSiteSeries(numInstants)
	for t := 0; t < numInstants; t++ {
		i := full.index(dims, y, d, t)
		out.NetLoadP[t] = full.NetLoadP[i]
		out.NetLoadQ[t] = full.NetLoadQ[i]
		out.Price[t] = full.Price[i]
		out.Congestion[t] = full.Congestion[i]
	}
	return out
}
