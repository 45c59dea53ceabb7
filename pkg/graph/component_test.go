package graph

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osmparser "github.com/azybler/ev_router/pkg/osm"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	for i := range uint32(5) {
		assert.Equal(t, i, uf.Find(i))
	}

	assert.True(t, uf.Union(0, 1))
	assert.True(t, uf.Union(2, 3))
	assert.NotEqual(t, uf.Find(0), uf.Find(2))

	assert.True(t, uf.Union(1, 3))
	assert.False(t, uf.Union(0, 2), "already merged")
	assert.Equal(t, uf.Find(0), uf.Find(3))
}

func TestFilterToComponent(t *testing.T) {
	// Triangle 10-20-30 and an isolated pair 40-50.
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			edge(10, 20, 100),
			edge(20, 30, 200),
			edge(30, 10, 300),
			edge(40, 50, 400),
		},
		NodeLat: map[osm.NodeID]float64{10: 49.0, 20: 49.1, 30: 49.2, 40: 50.0, 50: 50.1},
		NodeLon: map[osm.NodeID]float64{10: 8.0, 20: 8.1, 30: 8.2, 40: 9.0, 50: 9.1},
	}

	g := Build(result)
	nodes := LargestComponent(g)
	require.Len(t, nodes, 3)

	filtered := FilterToComponent(g, nodes)
	require.EqualValues(t, 3, filtered.NumNodes)
	require.EqualValues(t, 3, filtered.NumEdges)
	require.NoError(t, validateCSR(filtered.FirstOut, filtered.Head, filtered.NumNodes))

	var total float32
	for _, l := range filtered.Length {
		total += l
	}
	assert.InDelta(t, 600, total, 1e-3)
	assert.Len(t, filtered.DrivingFactor, 3)
}

func TestFilterToComponentEmptyGraph(t *testing.T) {
	g := &Graph{}
	assert.Nil(t, LargestComponent(g))

	filtered := FilterToComponent(g, nil)
	assert.Zero(t, filtered.NumNodes)
	assert.Zero(t, filtered.NumEdges)
}
