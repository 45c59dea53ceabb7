package graph

import (
	"math"
	"sort"

	"github.com/paulmach/osm"

	"github.com/azybler/ev_router/pkg/energy"
	osmparser "github.com/azybler/ev_router/pkg/osm"
)

// minDuration keeps zero-length segments from creating zero-cost cycles.
const minDuration = 0.1

// edgeData is one directed edge with its costs, independent of CSR position.
type edgeData struct {
	from, to         uint32
	duration, length float32
	driving, resist  float32
}

// Build creates a CSR Graph from parsed OSM edges. Travel time follows from
// length and speed; the energy factors are precomputed per edge.
func Build(result *osmparser.ParseResult) *Graph {
	edges := result.Edges
	if len(edges) == 0 {
		return &Graph{}
	}

	// Compact node ids in first-seen order.
	nodeSet := make(map[osm.NodeID]uint32)
	var nodeIDs []osm.NodeID
	addNode := func(id osm.NodeID) uint32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := uint32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}
	for i := range edges {
		addNode(edges[i].FromNodeID)
		addNode(edges[i].ToNodeID)
	}

	compact := make([]edgeData, len(edges))
	for i, e := range edges {
		driving, resist := energy.Factors(e.Length, e.SpeedKmh, e.Height)
		compact[i] = edgeData{
			from:     nodeSet[e.FromNodeID],
			to:       nodeSet[e.ToNodeID],
			duration: float32(travelTime(e.Length, e.SpeedKmh)),
			length:   float32(e.Length),
			driving:  float32(driving),
			resist:   float32(resist),
		}
	}

	nodeLat := make([]float64, len(nodeIDs))
	nodeLon := make([]float64, len(nodeIDs))
	for id, idx := range nodeSet {
		nodeLat[idx] = result.NodeLat[id]
		nodeLon[idx] = result.NodeLon[id]
	}

	return fromEdges(uint32(len(nodeIDs)), compact, nodeLat, nodeLon)
}

// travelTime returns seconds to cover length meters at speed km/h.
func travelTime(length, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = 5
	}
	return math.Max(minDuration, length/(speedKmh/3.6))
}

// fromEdges sorts edges by (from, to), keeps the cheapest of parallel edges
// and lays them out as CSR.
func fromEdges(numNodes uint32, edges []edgeData, nodeLat, nodeLon []float64) *Graph {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		if edges[i].to != edges[j].to {
			return edges[i].to < edges[j].to
		}
		return edges[i].duration < edges[j].duration
	})

	// Parallel edges would make FindEdge ambiguous.
	unique := edges[:0]
	for _, e := range edges {
		if n := len(unique); n > 0 && unique[n-1].from == e.from && unique[n-1].to == e.to {
			continue
		}
		unique = append(unique, e)
	}
	edges = unique

	numEdges := uint32(len(edges))
	g := &Graph{
		NumNodes:         numNodes,
		NumEdges:         numEdges,
		FirstOut:         make([]uint32, numNodes+1),
		Head:             make([]uint32, numEdges),
		Duration:         make([]float32, numEdges),
		Length:           make([]float32, numEdges),
		DrivingFactor:    make([]float32, numEdges),
		ResistanceFactor: make([]float32, numEdges),
		NodeLat:          nodeLat,
		NodeLon:          nodeLon,
	}

	for i, e := range edges {
		g.Head[i] = e.to
		g.Duration[i] = e.duration
		g.Length[i] = e.length
		g.DrivingFactor[i] = e.driving
		g.ResistanceFactor[i] = e.resist
		g.FirstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		g.FirstOut[i] += g.FirstOut[i-1]
	}
	return g
}
