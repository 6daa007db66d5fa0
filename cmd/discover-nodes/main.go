package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/marketdata"
)

func main() {
	var (
		scenario   = flag.String("scenario", "day-ahead", "Market scenario to refresh the registry against")
		outputPath = flag.String("output", "", "Output file path (default: ./data/nodes.json)")
		seedFile   = flag.String("seed", "", "Path to an existing node registry to use as seed")
		days       = flag.Int("days", 7, "Number of days to look back when confirming a node has data")
	)
	flag.Parse()

	apiKey := os.Getenv("MARKETDATA_API_KEY")
	if apiKey == "" {
		log.Fatal("MARKETDATA_API_KEY environment variable is required")
	}

	if *outputPath == "" {
		*outputPath = marketdata.DefaultNodeRegistryPath()
	}

	zlog, _ := zap.NewProduction()
	defer zlog.Sync()
	client := marketdata.NewClient(apiKey, "", zlog)

	var seed []marketdata.Node
	seedPath := *seedFile
	if seedPath == "" {
		seedPath = marketdata.DefaultNodeRegistryPath()
	}
	if reg, err := marketdata.LoadNodeRegistry(seedPath); err == nil {
		seed = reg.Nodes
		fmt.Printf("Loaded %d existing nodes from %s\n", len(seed), seedPath)
	}
	if len(seed) == 0 {
		seed = []marketdata.Node{
			{ID: "demo-node-1", Name: "Demo Substation 1"},
			{ID: "demo-node-2", Name: "Demo Substation 2"},
		}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -*days)

	confirmed := make([]marketdata.Node, 0, len(seed))
	for _, n := range seed {
		_, err := client.Query(marketdata.QueryParams{Scenario: *scenario, Node: n.ID, StartTime: start, EndTime: end})
		if err != nil {
			fmt.Printf("  skipping %s: %v\n", n.ID, err)
			continue
		}
		n.Scenario = *scenario
		confirmed = append(confirmed, n)
		fmt.Printf("  confirmed: %s (%s)\n", n.ID, n.Name)
	}

	reg := &marketdata.NodeRegistry{
		Scenario:  *scenario,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Nodes:     confirmed,
	}
	if err := marketdata.SaveNodeRegistry(reg, *outputPath); err != nil {
		log.Fatalf("failed to save node registry: %v", err)
	}
	fmt.Printf("Saved %d nodes to %s\n", len(confirmed), *outputPath)
}
