package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/azybler/ev_router/pkg/graph"
	"github.com/azybler/ev_router/pkg/logger"
	osmparser "github.com/azybler/ev_router/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "Output binary graph file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 48.9,8.2,49.1,8.6)")
	germany := flag.Bool("germany", false, "Shortcut for --bbox 47.2,5.8,55.1,15.1 (Germany bounding box)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--germany | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	zl, err := logger.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	opts := osmparser.ParseOptions{Logger: zl}
	if *germany {
		opts.BBox = osmparser.BBox{MinLat: 47.2, MaxLat: 55.1, MinLng: 5.8, MaxLng: 15.1}
		log.Info("Using Germany bounding box filter: lat [47.2, 55.1], lng [5.8, 15.1]")
	} else if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng)
		if err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Infof("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Info("Parsing OSM data...")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}
	log.Infof("Parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

	// Step 2: Build graph with travel times and energy factors.
	log.Info("Building graph...")
	g := graph.Build(parseResult)
	log.Infof("Graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

	// Step 3: Extract largest connected component.
	log.Info("Extracting largest connected component...")
	componentNodes := graph.LargestComponent(g)
	log.Infof("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes)*100)
	g = graph.FilterToComponent(g, componentNodes)
	log.Infof("Filtered graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

	// Step 4: Serialize to binary.
	log.Infof("Writing binary to %s...", *output)
	if err := graph.WriteBinary(*output, g); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	log.Infof("Done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
