package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/graph"
	"github.com/azybler/ev_router/pkg/logger"
	"github.com/azybler/ev_router/pkg/routing"
	"github.com/azybler/ev_router/pkg/vehicle"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed road graph")
	vehiclePath := flag.String("vehicle", "", "Path to the vehicle profile (YAML)")
	register := flag.String("chargers", "", "Path to the BNetzA Ladesaeulenregister CSV")
	output := flag.String("output", "chargers", "Output prefix; writes <prefix>.json and <prefix>.edges")
	lower := flag.Float64("lower-limit", 50, "Lowest battery share an edge may use, in percent")
	upper := flag.Float64("upper-limit", 90, "Highest battery share an edge may use, in percent")
	noPlugFilter := flag.Bool("no-filter-plug-type", false, "Keep chargers without a connector the vehicle supports")
	minPower := flag.Float64("min-power", 0, "Drop chargers whose strongest plug is below this many kW")
	fastOnly := flag.Bool("fast-only", false, "Keep only fast chargers")
	epsilon := flag.Float64("epsilon", 30, "Cluster radius in meters")
	minCluster := flag.Int("min-cluster-size", 2, "Chargers needed to form a cluster")
	geojsonPath := flag.String("geojson", "", "Also write the charger edges as GeoJSON to this path")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if *vehiclePath == "" || *register == "" {
		fmt.Fprintln(os.Stderr, "Usage: chargergraph --vehicle <car.yaml> --chargers <register.csv> [--graph graph.bin] [--output chargers]")
		os.Exit(1)
	}

	zl, err := logger.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	start := time.Now()

	v, err := vehicle.Load(*vehiclePath)
	if err != nil {
		log.Fatalf("Failed to load vehicle: %v", err)
	}
	log.Infof("Vehicle %q: %.1f kWh/100km, %.0f kg, %.1f kWh", v.Name, v.WLTP, v.Weight, v.Capacity/1e6)

	// Step 1: Load road graph.
	log.Infof("Loading road graph from %s...", *graphPath)
	g, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	engine := routing.NewEngine(g, zl)

	cfg := chargergraph.DefaultBuilderConfig()
	cfg.LowerLimitPercent = *lower
	cfg.UpperLimitPercent = *upper
	cfg.FilterPlugTypes = !*noPlugFilter
	var filters []charger.Filter
	if *minPower > 0 {
		filters = append(filters, charger.ByMinPower(*minPower*1e6))
	}
	if *fastOnly {
		filters = append(filters, charger.FastOnly())
	}
	if len(filters) > 0 {
		cfg.Filter = charger.All(filters...)
	}
	cfg.Cluster.Epsilon = *epsilon
	cfg.Cluster.MinClusterSize = *minCluster
	b, err := chargergraph.NewBuilder(engine, v, cfg, zl)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Step 2: Parse the register.
	f, err := os.Open(*register)
	if err != nil {
		log.Fatalf("Failed to open charger register: %v", err)
	}
	raw, err := b.ParseRegister(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to parse charger register: %v", err)
	}
	log.Infof("Parsed %d chargers", len(raw))

	// Step 3: Anchor, cluster and connect.
	log.Info("Building charger graph...")
	cg, err := b.Build(context.Background(), raw)
	if err != nil {
		log.Fatalf("Failed to build charger graph: %v", err)
	}
	log.Infof("Charger graph: %d chargers, %d edges", cg.NumChargers(), cg.NumEdges())

	// Step 4: Persist.
	chargersPath, edgesPath := *output+".json", *output+".edges"
	if err := cg.Save(chargersPath, edgesPath); err != nil {
		log.Fatalf("Failed to write charger graph: %v", err)
	}
	if *geojsonPath != "" {
		data, err := json.Marshal(cg.GeoJSON(v))
		if err == nil {
			err = os.WriteFile(*geojsonPath, data, 0o644)
		}
		if err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
		log.Infof("Wrote edge GeoJSON to %s", *geojsonPath)
	}

	log.Infof("Done in %s. Output: %s, %s", time.Since(start).Round(time.Second), chargersPath, edgesPath)
}
