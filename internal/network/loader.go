package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// yamlNetwork is the on-disk shape a planning run's network description is
// read from, grounded on the teacher's internal/data/json.go and
// internal/data/locations.go file-based ingestion (same flat, explicit
// field-per-concept style, now YAML instead of the teacher's JSON since
// spec.md §6 names both "spreadsheets/JSON" as the real system's ingestion
// formats and this stand-in only needs one).
type yamlNetwork struct {
	Years          []yamlYear    `yaml:"years"`
	Days           []yamlDay     `yaml:"days"`
	NumInstants    int           `yaml:"num_instants"`
	DiscountFactor float64       `yaml:"discount_factor"`
	ActiveDNNodes  []string      `yaml:"active_dn_nodes"`
	InvestmentCost []yamlInvCost `yaml:"investment_costs"`
	Planning       yamlPlanning  `yaml:"planning_parameters"`

	// Series holds one entry per (role, node); role is "tso" or "dso".
	Series []yamlSeries `yaml:"series"`
}

type yamlYear struct {
	Label  string  `yaml:"label"`
	Weight float64 `yaml:"weight_years"`
}

type yamlDay struct {
	Label  string  `yaml:"label"`
	Weight float64 `yaml:"weight_days"`
}

type yamlInvCost struct {
	Year         int     `yaml:"year"`
	PowerPerMVA  float64 `yaml:"power"`
	EnergyPerMVAh float64 `yaml:"energy"`
}

type yamlPlanning struct {
	Budget          float64   `yaml:"budget"`
	MaxCapacityMVAh float64   `yaml:"max_capacity"`
	MinPEFactor     float64   `yaml:"min_pe_factor"`
	MaxPEFactor     float64   `yaml:"max_pe_factor"`
	TCal            []float64 `yaml:"t_cal"`
	RelativeInitSOC []float64 `yaml:"relative_init_soc"`
	MinEnergyFrac   []float64 `yaml:"min_energy_stored"`
	MaxEnergyFrac   []float64 `yaml:"max_energy_stored"`
}

type yamlSeries struct {
	Node        string      `yaml:"node"` // must name one of active_dn_nodes
	Role        string      `yaml:"role"` // "tso" or "dso"
	VoltageBase float64     `yaml:"voltage_base"`
	Points      []yamlPoint `yaml:"points"` // one per (year, day, instant), row-major
}

type yamlPoint struct {
	NetLoadP   float64 `yaml:"net_load_p"`
	NetLoadQ   float64 `yaml:"net_load_q"`
	Price      float64 `yaml:"price"`
	Congestion float64 `yaml:"congestion"`
}

// LoadYAML reads a network description from disk and builds the LoadedNetwork
// the rest of the core consumes (spec.md §6 item 1). A malformed file is a
// DataFileError, terminal before any solve is attempted (spec.md §7).
func LoadYAML(path string) (*LoadedNetwork, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DataFileError{Path: path, Reason: err.Error()}
	}
	var y yamlNetwork
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("parse: %v", err)}
	}
	return y.toLoadedNetwork(path)
}

func (y yamlNetwork) toLoadedNetwork(path string) (*LoadedNetwork, error) {
	dims := core.Dimensions{NumInstants: y.NumInstants, Sites: y.ActiveDNNodes}
	for _, yr := range y.Years {
		dims.Years = append(dims.Years, core.YearMeta{Label: yr.Label, WeightYear: yr.Weight})
	}
	var totalDayWeight float64
	for _, d := range y.Days {
		dims.Days = append(dims.Days, core.DayMeta{Label: d.Label, WeightDays: d.Weight})
		totalDayWeight += d.Weight
	}
	if totalDayWeight > 365.0001 {
		return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("representative-day weights sum to %.2f, exceeds 365", totalDayWeight)}
	}
	if dims.NumSites() == 0 || dims.NumYears() == 0 || dims.NumDays() == 0 || dims.NumInstants == 0 {
		return nil, &core.DataFileError{Path: path, Reason: "years, days, num_instants and active_dn_nodes must all be non-empty"}
	}

	investCosts := make([]InvestmentCost, dims.NumYears())
	for _, ic := range y.InvestmentCost {
		if ic.Year < 0 || ic.Year >= dims.NumYears() {
			return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("investment_costs year %d out of range", ic.Year)}
		}
		investCosts[ic.Year] = InvestmentCost{PowerPerMVA: ic.PowerPerMVA, EnergyPerMVAh: ic.EnergyPerMVAh}
	}

	n := dims.NumSites()
	pl := y.Planning
	if len(pl.TCal) != n || len(pl.RelativeInitSOC) != n || len(pl.MinEnergyFrac) != n || len(pl.MaxEnergyFrac) != n {
		return nil, &core.DataFileError{Path: path, Reason: "planning_parameters per-site arrays must have one entry per active_dn_node"}
	}
	params := core.Parameters{
		SESS: core.SESSParameters{
			Budget:              pl.Budget,
			MaxCapacityMVAh:     pl.MaxCapacityMVAh,
			MinPEFactor:         pl.MinPEFactor,
			MaxPEFactor:         pl.MaxPEFactor,
			CalendarLifeYears:   pl.TCal,
			RelativeInitSOC:     pl.RelativeInitSOC,
			MinEnergyStoredFrac: pl.MinEnergyFrac,
			MaxEnergyStoredFrac: pl.MaxEnergyFrac,
		},
	}

	siteIndex := map[string]int{}
	for i, s := range dims.Sites {
		siteIndex[s] = i
	}

	allSites := make([]int, n)
	for i := range allSites {
		allSites[i] = i
	}
	tso := NewNetworkData(core.RoleTSO, -1, dims, allSites, 1.0)
	dsos := make([]*NetworkData, n)

	for _, s := range y.Series {
		site, ok := siteIndex[s.Node]
		if !ok {
			return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("series for unknown node %q", s.Node)}
		}
		expected := dims.NumYears() * dims.NumDays() * dims.NumInstants
		if len(s.Points) != expected {
			return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("series for node %q has %d points, expected %d", s.Node, len(s.Points), expected)}
		}
		var target *NetworkData
		switch s.Role {
		case "tso":
			target = tso
			target.VoltageBase = orDefault(s.VoltageBase, 1.0)
		case "dso":
			if dsos[site] == nil {
				dsos[site] = NewNetworkData(core.RoleDSO, site, dims, []int{site}, orDefault(s.VoltageBase, 1.0))
			}
			target = dsos[site]
		default:
			return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("series for node %q has unknown role %q", s.Node, s.Role)}
		}
		idx := 0
		for yI := 0; yI < dims.NumYears(); yI++ {
			for dI := 0; dI < dims.NumDays(); dI++ {
				for t := 0; t < dims.NumInstants; t++ {
					p := s.Points[idx]
					target.Set(site, yI, dI, t, p.NetLoadP, p.NetLoadQ, p.Price, p.Congestion)
					idx++
				}
			}
		}
	}
	for i, d := range dsos {
		if d == nil {
			return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("missing dso series for node %q", dims.Sites[i])}
		}
	}

	return &LoadedNetwork{
		Dims:            dims,
		DiscountFactor:  y.DiscountFactor,
		InvestmentCosts: investCosts,
		Params:          params,
		TSO:             tso,
		DSOs:            dsos,
	}, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
