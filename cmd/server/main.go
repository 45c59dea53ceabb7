package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/azybler/ev_router/pkg/api"
	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/evroute"
	"github.com/azybler/ev_router/pkg/graph"
	"github.com/azybler/ev_router/pkg/logger"
	"github.com/azybler/ev_router/pkg/routing"
	"github.com/azybler/ev_router/pkg/vehicle"
)

// env returns the EVROUTER_<key> variable, or def when unset.
func env(key, def string) string {
	if v, ok := os.LookupEnv("EVROUTER_" + key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env(key, "")); err == nil {
		return v
	}
	return def
}

func main() {
	// A missing .env file is fine; the environment and flags still apply.
	_ = godotenv.Load()

	graphPath := flag.String("graph", env("GRAPH", "graph.bin"), "Path to preprocessed road graph")
	chargers := flag.String("chargers", env("CHARGERS", "chargers"), "Charger graph prefix written by chargergraph")
	vehiclePath := flag.String("vehicle", env("VEHICLE", ""), "Path to the vehicle profile the charger graph was built for")
	port := flag.Int("port", envInt("PORT", 8080), "HTTP port")
	corsOrigin := flag.String("cors-origin", env("CORS_ORIGIN", ""), "CORS allowed origin (empty = same-origin)")
	anchorCache := flag.Int("anchor-cache", envInt("ANCHOR_CACHE", 4096), "Number of snapped query points to cache")
	heap := flag.Bool("heap-frontier", env("HEAP_FRONTIER", "") == "true", "Search the charger graph with a binary heap")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	zl, err := logger.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	if *vehiclePath == "" {
		log.Fatal("A vehicle profile is required (--vehicle or EVROUTER_VEHICLE)")
	}

	start := time.Now()

	log.Infof("Loading road graph from %s...", *graphPath)
	g, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	engine := routing.NewEngine(g, zl)
	router, err := routing.NewAnchorCache(engine, *anchorCache)
	if err != nil {
		log.Fatalf("Failed to create anchor cache: %v", err)
	}

	v, err := vehicle.Load(*vehiclePath)
	if err != nil {
		log.Fatalf("Failed to load vehicle: %v", err)
	}

	var opts []chargergraph.Option
	if *heap {
		opts = append(opts, chargergraph.WithHeapFrontier())
	}
	cg, err := chargergraph.Load(*chargers+".json", *chargers+".edges", opts...)
	if err != nil {
		log.Fatalf("Failed to load charger graph: %v", err)
	}
	log.Infof("Loaded %d chargers, %d charger edges", cg.NumChargers(), cg.NumEdges())
	log.Infof("Ready in %s", time.Since(start).Round(time.Millisecond))

	cfg := api.DefaultConfig(fmt.Sprintf(":%d", *port))
	cfg.CORSOrigin = *corsOrigin
	cfg.Logger = zl

	stats := api.StatsResponse{
		NumNodes:        g.NumNodes,
		NumEdges:        int(g.NumEdges),
		NumChargers:     cg.NumChargers(),
		NumChargerEdges: cg.NumEdges(),
	}
	planner := evroute.NewPlanner(router, cg, v, zl)
	handlers := api.NewHandlers(router, planner, stats, zl)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv, zl); err != nil {
		log.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}
