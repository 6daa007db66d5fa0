// Package network provides reference implementations of the four external
// collaborators spec.md §6 describes as "deliberately out of scope":
// NetworkLoader, NetworkModelBuilder, NlpSolver, and ResultsWriter. The core
// (internal/core, internal/consensus, internal/coupling, internal/admm,
// internal/master, internal/benders, internal/orchestrator) only ever talks
// to these through the coupling.Model / coupling.NlpSolver interfaces; this
// package is an intentionally simple stand-in for the real spreadsheet/JSON
// ingestion, AC-OPF model assembly, and nonlinear solver a production
// deployment would plug in instead (spec.md §1, §6).
package network

import "github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"

// SiteSeries holds one site's exogenous operating profile for one role's
// model, flattened the same way internal/consensus flattens its arrays: a
// single slice indexed by ((y*numDays)+d)*numInstants+t (spec.md §9's
// "flatten nested mappings into a single array" design note, applied here to
// NetworkData instead of ConsensusStore).
type SiteSeries struct {
	NetLoadP   []float64 // MW, exogenous net active demand at the interface before SESS
	NetLoadQ   []float64 // MVAr, exogenous net reactive demand
	Price      []float64 // $/MWh marginal energy price
	Congestion []float64 // $/MWh congestion component (obj_type=CONGESTION_MANAGEMENT)
}

func newSiteSeries(n int) *SiteSeries {
	return &SiteSeries{
		NetLoadP:   make([]float64, n),
		NetLoadQ:   make([]float64, n),
		Price:      make([]float64, n),
		Congestion: make([]float64, n),
	}
}

func (s *SiteSeries) index(dims core.Dimensions, y, d, t int) int {
	return (y*dims.NumDays()+d)*dims.NumInstants + t
}

// NetworkData is one role's (TSO, or one DSO) ingested network description:
// its exogenous per-(site,year,day,instant) operating profile plus the
// nominal interface voltage the toy model reports as expected_interface_vmag_sqr
// when undisturbed (spec.md §6 item 2).
type NetworkData struct {
	Role        core.Role
	Site        int // -1 for the TSO (spans every active DN node); DSO's own site otherwise
	VoltageBase float64

	dims  core.Dimensions
	sites map[int]*SiteSeries
}

// NewNetworkData allocates zeroed series for the given sites.
func NewNetworkData(role core.Role, site int, dims core.Dimensions, sites []int, voltageBase float64) *NetworkData {
	nd := &NetworkData{Role: role, Site: site, VoltageBase: voltageBase, dims: dims, sites: map[int]*SiteSeries{}}
	n := dims.NumYears() * dims.NumDays() * dims.NumInstants
	for _, s := range sites {
		nd.sites[s] = newSiteSeries(n)
	}
	return nd
}

func (nd *NetworkData) series(site int) *SiteSeries { return nd.sites[site] }

// Set writes one (site, year, day, instant) cell of the exogenous profile.
func (nd *NetworkData) Set(site, y, d, t int, netLoadP, netLoadQ, price, congestion float64) {
	s := nd.sites[site]
	i := s.index(nd.dims, y, d, t)
	s.NetLoadP[i] = netLoadP
	s.NetLoadQ[i] = netLoadQ
	s.Price[i] = price
	s.Congestion[i] = congestion
}

// InvestmentCost is the per-year cost of one unit of rated power / rated
// energy investment (spec.md §6 item 1: investment_costs).
type InvestmentCost struct {
	PowerPerMVA  float64
	EnergyPerMVAh float64
}

// LoadedNetwork is everything NetworkLoader produces for one planning run
// (spec.md §6 item 1).
type LoadedNetwork struct {
	Dims            core.Dimensions
	DiscountFactor  float64
	InvestmentCosts []InvestmentCost // indexed by year
	Params          core.Parameters

	TSO  *NetworkData
	DSOs []*NetworkData // one per site, in Dims.Sites order
}
