package network

import (
	"math"
	"sort"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// SitePotential is a node-level arbitrage-potential summary, adapted from the
// teacher's analysis.ArbitragePotential (internal/analysis/potential.go):
// price-spread statistics plus an oracle profit figure, now computed per
// active DN node instead of per battery-eligible location (SPEC_FULL §13).
// This is diagnostic only — it never feeds the Benders master's math, only
// the ranking surface an operator uses to decide where to investigate
// siting first (DESIGN.md).
type SitePotential struct {
	Site  int
	Label string

	Count   int
	MinLMP  float64
	MaxLMP  float64
	MeanLMP float64
	P05LMP  float64
	P95LMP  float64

	SpreadP95P05 float64
	OracleProfit float64 // perfect-foresight, lossless; see oracleProfitCanonical
}

// RankCandidateSites ranks every active DN node by descending OracleProfit,
// adapted from the teacher's analysis.RankByOracleProfit
// (internal/analysis/rank.go).
func RankCandidateSites(dims core.Dimensions, tso *NetworkData) []SitePotential {
	out := make([]SitePotential, 0, dims.NumSites())
	for site := 0; site < dims.NumSites(); site++ {
		series := tso.series(site)
		if series == nil {
			continue
		}
		out = append(out, computePotential(site, dims.Sites[site], series.Price))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OracleProfit > out[j].OracleProfit })
	return out
}

func computePotential(site int, label string, prices []float64) SitePotential {
	p := SitePotential{Site: site, Label: label, Count: len(prices)}
	if len(prices) == 0 {
		return p
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var sum float64
	minv, maxv := math.Inf(1), math.Inf(-1)
	for _, v := range prices {
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	p.MinLMP, p.MaxLMP = minv, maxv
	p.MeanLMP = sum / float64(len(prices))
	p.P05LMP = percentile(sorted, 0.05)
	p.P95LMP = percentile(sorted, 0.95)
	p.SpreadP95P05 = p.P95LMP - p.P05LMP
	p.OracleProfit = oracleProfitCanonical(prices)
	return p
}

func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// oracleProfitCanonical is a perfect-foresight DP over a lossless battery
// that, each interval, charges one unit, discharges one unit or idles, at
// that interval's price. Its charge runs over 0..len(prices) units and
// starts at the middle level; only paths that end at least as full as they
// started count, so selling the starting charge is not profit. Unchanged in
// spirit from the teacher's analysis.oracleProfitCanonical.
func oracleProfitCanonical(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	steps := len(prices)
	nStates := steps + 1
	negInf := -1e100
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	init := steps / 2
	dp[init] = 0

	for _, price := range prices {
		for i := range next {
			next[i] = negInf
		}
		for soc := 0; soc <= steps; soc++ {
			if dp[soc] <= negInf/2 {
				continue
			}
			if dp[soc] > next[soc] {
				next[soc] = dp[soc]
			}
			if soc < steps && dp[soc]-price > next[soc+1] {
				next[soc+1] = dp[soc] - price
			}
			if soc > 0 && dp[soc]+price > next[soc-1] {
				next[soc-1] = dp[soc] + price
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for soc := init; soc <= steps; soc++ {
		if dp[soc] > best {
			best = dp[soc]
		}
	}
	if best <= negInf/2 {
		return 0
	}
	return best
}
