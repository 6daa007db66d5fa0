package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/orchestrator"
)

// demoNetworkYAML is a trivial 2-year, 1-day, 1-site scenario: one active DN
// node with an obvious arbitrage spread, enough to show the outer Benders
// loop invest in a small SESS and the inner ADMM loop converge on a dispatch.
const demoNetworkYAML = `
years:
  - {label: "y0", weight_years: 1}
  - {label: "y1", weight_years: 1}
days:
  - {label: "d0", weight_days: 365}
num_instants: 4
discount_factor: 0.05
active_dn_nodes: ["demo-node"]
investment_costs:
  - {year: 0, power: 50000, energy: 30000}
  - {year: 1, power: 50000, energy: 30000}
planning_parameters:
  budget: 200000
  max_capacity: 5
  min_pe_factor: 0.25
  max_pe_factor: 4
  t_cal: [10]
  relative_init_soc: [0.5]
  min_energy_stored: [0.1]
  max_energy_stored: [0.9]
series:
  - node: "demo-node"
    role: "tso"
    voltage_base: 1.0
    points:
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
  - node: "demo-node"
    role: "dso"
    voltage_base: 1.0
    points:
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 10, congestion: 0}
      - {net_load_p: 2, net_load_q: 0.2, price: 80, congestion: 0}
`

// Demo: write the embedded scenario to a temp file, run it through the
// orchestrator end to end, and print just enough of the trace and dispatch
// to show how the pieces fit together.
func main() {
	n := flag.Int("n", 12, "Number of dispatch rows to print")
	flag.Parse()

	f, err := os.CreateTemp("", "demo-network-*.yaml")
	if err != nil {
		panic(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(demoNetworkYAML); err != nil {
		panic(err)
	}
	f.Close()

	log := zap.NewNop()

	params := core.Parameters{
		ObjType: core.ObjectiveCost,
		Benders: core.BendersParameters{NumMaxIters: 10, TolAbs: 1, TolRel: 0.02},
		Admm: core.AdmmParameters{
			NumMaxIters:       30,
			Tol:               1e-3,
			RhoPF:             []float64{1, 1},
			RhoEss:            []float64{1, 1},
			ConvergenceRelTol: 1e-3,
		},
		ErrorPrecision: 1e-6,
	}

	orch := orchestrator.New(log)
	runID, res, err := orch.Run(context.Background(), f.Name(), params)
	if err != nil {
		panic(err)
	}

	fmt.Printf("run %s: converged=%v after %d outer iterations\n", runID, res.Converged, len(res.Trace))
	fmt.Println("outer-loop trace:")
	for _, t := range res.Trace {
		fmt.Printf("  iter=%-3d ub=%10.2f lb=%10.2f\n", t.Iteration, t.UpperBound, t.LowerBound)
	}

	fmt.Println("dispatch (first rows):")
	for i := 0; i < *n && i < len(res.Dispatch); i++ {
		d := res.Dispatch[i]
		fmt.Printf("  site=%d y=%d d=%d t=%d p_pf=%7.3f q_pf=%7.3f p_ess=%7.3f q_ess=%7.3f\n",
			d.Site, d.Year, d.Day, d.Instant, d.PPF, d.QPF, d.PEss, d.QEss)
	}
}
