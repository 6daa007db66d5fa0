package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/config"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/network"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/orchestrator"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "plan":
		cmdPlan(os.Args[2:])
	case "rank":
		cmdRank(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  planner plan --config planner.yaml --out results/")
	fmt.Println("  planner rank --network network.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - plan runs the Benders/ADMM coordinated planning loop and writes dispatch.csv + trace.csv")
	fmt.Println("  - rank scores active DN nodes by price-spread/oracle-profit, diagnostic only")
}

func cmdPlan(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML planner config")
	outDir := fs.String("out", "results", "Output directory for dispatch.csv and trace.csv")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitWithCoreError(err)
	}
	params, err := cfg.ToParameters()
	if err != nil {
		exitWithCoreError(err)
	}

	orch := orchestrator.New(log)
	runID, res, err := orch.Run(context.Background(), cfg.NetworkFile, params)
	if err != nil {
		exitWithCoreError(err)
	}

	if err := (network.CSVResultsWriter{}).Write(*outDir, res); err != nil {
		panic(err)
	}

	fmt.Printf("run %s: converged=%v, %d outer iterations, %d dispatch rows\n",
		runID, res.Converged, len(res.Trace), len(res.Dispatch))
	fmt.Printf("wrote %s/dispatch.csv and %s/trace.csv\n", *outDir, *outDir)
}

func cmdRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	networkPath := fs.String("network", "", "Path to YAML network description")
	_ = fs.Parse(args)

	if *networkPath == "" {
		fmt.Println("--network is required")
		os.Exit(2)
	}

	loaded, err := network.LoadYAML(*networkPath)
	if err != nil {
		panic(err)
	}

	ranked := network.RankCandidateSites(loaded.Dims, loaded.TSO)
	fmt.Printf("%-4s %-16s %-8s %-10s %-12s\n", "rank", "node", "count", "p95-p05", "oracle$")
	for i, r := range ranked {
		fmt.Printf("%-4d %-16s %-8d %-10.2f %-12.2f\n", i+1, r.Label, r.Count, r.SpreadP95P05, r.OracleProfit)
	}
}

func exitWithCoreError(err error) {
	var cfgErr *core.InvalidConfigurationError
	var dataErr *core.DataFileError
	var solverErr *core.SolverFailure
	var convErr *core.NonConvergence
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintln(os.Stderr, cfgErr.Error())
		os.Exit(int(core.ExitInvalidConfiguration))
	case errors.As(err, &dataErr):
		fmt.Fprintln(os.Stderr, dataErr.Error())
		os.Exit(int(core.ExitDataFileError))
	case errors.As(err, &solverErr):
		fmt.Fprintln(os.Stderr, solverErr.Error())
		os.Exit(int(core.ExitSolverFailure))
	case errors.As(err, &convErr):
		fmt.Fprintln(os.Stderr, convErr.Error())
		os.Exit(int(core.ExitNonConvergence))
	default:
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
