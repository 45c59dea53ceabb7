package graph

import "sort"

// Graph is a directed road graph in CSR (Compressed Sparse Row) format.
// Edges of a node are sorted by head.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	FirstOut []uint32  // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32  // len: NumEdges
	Duration []float32 // len: NumEdges; travel time in seconds
	Length   []float32 // len: NumEdges; meters
	NodeLat  []float64 // len: NumNodes
	NodeLon  []float64 // len: NumNodes

	// Vehicle-independent energy factors per edge, see energy.Factors.
	DrivingFactor    []float32 // len: NumEdges
	ResistanceFactor []float32 // len: NumEdges
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// FindEdge returns the index of the edge u→v.
func (g *Graph) FindEdge(u, v uint32) (uint32, bool) {
	start, end := g.EdgesFrom(u)
	i := sort.Search(int(end-start), func(i int) bool { return g.Head[start+uint32(i)] >= v })
	e := start + uint32(i)
	if e < end && g.Head[e] == v {
		return e, true
	}
	return 0, false
}

// Tail returns the source node of edge e.
func (g *Graph) Tail(e uint32) uint32 {
	// Largest u with FirstOut[u] <= e.
	u := sort.Search(int(g.NumNodes), func(i int) bool { return g.FirstOut[i+1] > e })
	return uint32(u)
}

// Reverse is the transposed adjacency of a Graph. Edge refers back into the
// forward arrays so costs are shared.
type Reverse struct {
	FirstIn []uint32 // len: NumNodes + 1
	Tail    []uint32 // len: NumEdges; source node of the forward edge
	Edge    []uint32 // len: NumEdges; index of the forward edge
}

// EdgesTo returns the range of reverse entries for edges ending at node v.
func (r *Reverse) EdgesTo(v uint32) (start, end uint32) {
	return r.FirstIn[v], r.FirstIn[v+1]
}

// Reverse builds the incoming-edge index.
func (g *Graph) Reverse() *Reverse {
	firstIn := make([]uint32, g.NumNodes+1)
	for _, v := range g.Head {
		firstIn[v+1]++
	}
	for i := uint32(1); i <= g.NumNodes; i++ {
		firstIn[i] += firstIn[i-1]
	}

	tail := make([]uint32, g.NumEdges)
	edge := make([]uint32, g.NumEdges)
	pos := make([]uint32, g.NumNodes)
	copy(pos, firstIn[:g.NumNodes])
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			tail[pos[v]] = u
			edge[pos[v]] = e
			pos[v]++
		}
	}
	return &Reverse{FirstIn: firstIn, Tail: tail, Edge: edge}
}
