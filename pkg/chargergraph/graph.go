package chargergraph

import (
	"fmt"

	"github.com/azybler/ev_router/pkg/charger"
)

// Graph is the immutable charger graph. Charger i is node i; edges are
// sorted by (Start, End) and indexed per start node.
type Graph struct {
	set      charger.Set
	edges    []Edge
	firstOut []uint32 // len: NumChargers + 1
	mapping  Mapping

	newFrontier func() Frontier
}

// Option configures a Graph.
type Option func(*Graph)

// WithHeapFrontier makes searches use a binary heap instead of the linear
// scan. Worth it for graphs well beyond a few thousand chargers.
func WithHeapFrontier() Option {
	return func(g *Graph) { g.newFrontier = func() Frontier { return &HeapFrontier{} } }
}

// New renumbers set to dense ids and indexes edges, which refer to the ids
// the chargers carry in set.
func New(set charger.Set, edges []Edge, opts ...Option) (*Graph, error) {
	set, edges, mapping := Renumber(set, edges)
	g := &Graph{
		set:         set,
		edges:       edges,
		mapping:     mapping,
		newFrontier: func() Frontier { return &LinearFrontier{} },
	}
	for _, opt := range opts {
		opt(g)
	}

	n := uint32(len(set.Chargers))
	for _, e := range edges {
		if e.Start == e.End {
			return nil, fmt.Errorf("self loop at charger %d", e.Start)
		}
	}

	// One pass over the sorted edges. A node without edges points at where
	// its first edge would be.
	g.firstOut = make([]uint32, n+1)
	next := 0
	for u := uint32(0); u <= n; u++ {
		for next < len(edges) && edges[next].Start < u {
			next++
		}
		g.firstOut[u] = uint32(next)
	}
	return g, nil
}

// NumChargers returns the number of nodes.
func (g *Graph) NumChargers() int { return len(g.set.Chargers) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Charger returns node i.
func (g *Graph) Charger(i uint32) *charger.Charger { return &g.set.Chargers[i] }

// Set returns the charger arena. It must not be modified.
func (g *Graph) Set() *charger.Set { return &g.set }

// Edges returns all edges in (Start, End) order. It must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// EdgesFrom returns the outgoing edges of node u.
func (g *Graph) EdgesFrom(u uint32) []Edge {
	return g.edges[g.firstOut[u]:g.firstOut[u+1]]
}

// Mapping translates the ids the chargers had when the graph was built into
// node indices.
func (g *Graph) Mapping() Mapping { return g.mapping }

// Subgraph returns a private graph over the nodes in keep, holding the edges
// between them whose consumption under m fits w. keep lists node indices of
// g; the result is renumbered and its Mapping translates g's indices.
func (g *Graph) Subgraph(keep []uint32, m ConsumptionModel, w Window) (*Graph, error) {
	in := make([]bool, g.NumChargers())
	for _, k := range keep {
		in[k] = true
	}

	var edges []Edge
	for u, ok := range in {
		if !ok {
			continue
		}
		for _, e := range g.EdgesFrom(uint32(u)) {
			if in[e.End] && w.Fits(e, m) {
				edges = append(edges, e)
			}
		}
	}

	sub := g.set.Filter(func(c *charger.Charger) bool { return in[c.ID] })
	opts := []Option{func(s *Graph) { s.newFrontier = g.newFrontier }}
	return New(sub, edges, opts...)
}
