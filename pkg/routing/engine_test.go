package routing

import (
	"context"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/graph"
	osmparser "github.com/azybler/ev_router/pkg/osm"
)

// Test grid, lengths in meters, driven at 36 km/h (10 m/s):
//
//	A ---100--- B ---200--- C
//	|                       |
//	300                    400
//	|                       |
//	D ---500--- E ---600--- F
//
// All edges bidirectional. G -> H is a oneway island far to the north.
var (
	ptA = geo.LatLng{Lat: 49.000, Lng: 8.400}
	ptB = geo.LatLng{Lat: 49.000, Lng: 8.401}
	ptC = geo.LatLng{Lat: 49.000, Lng: 8.402}
	ptD = geo.LatLng{Lat: 49.001, Lng: 8.400}
	ptE = geo.LatLng{Lat: 49.001, Lng: 8.401}
	ptF = geo.LatLng{Lat: 49.001, Lng: 8.402}
	ptG = geo.LatLng{Lat: 49.020, Lng: 8.400}
	ptH = geo.LatLng{Lat: 49.021, Lng: 8.400}
)

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	coords := map[osm.NodeID]geo.LatLng{1: ptA, 2: ptB, 3: ptC, 4: ptD, 5: ptE, 6: ptF, 7: ptG, 8: ptH}
	both := func(a, b osm.NodeID, length float64) []osmparser.RawEdge {
		return []osmparser.RawEdge{
			{FromNodeID: a, ToNodeID: b, Length: length, SpeedKmh: 36},
			{FromNodeID: b, ToNodeID: a, Length: length, SpeedKmh: 36},
		}
	}

	result := &osmparser.ParseResult{
		NodeLat: map[osm.NodeID]float64{},
		NodeLon: map[osm.NodeID]float64{},
	}
	for _, e := range [][]osmparser.RawEdge{
		both(1, 2, 100), both(2, 3, 200), both(1, 4, 300),
		both(3, 6, 400), both(4, 5, 500), both(5, 6, 600),
		{{FromNodeID: 7, ToNodeID: 8, Length: 111, SpeedKmh: 36}},
	} {
		result.Edges = append(result.Edges, e...)
	}
	for id, p := range coords {
		result.NodeLat[id] = p.Lat
		result.NodeLon[id] = p.Lng
	}
	return NewEngine(graph.Build(result), zaptest.NewLogger(t))
}

func anchor(t *testing.T, e *Engine, p geo.LatLng) AnchorPair {
	t.Helper()
	pair, err := e.Anchor(context.Background(), p)
	require.NoError(t, err)
	return pair
}

func TestAnchorPair(t *testing.T) {
	e := newTestEngine(t)

	mid := anchor(t, e, geo.LatLng{Lat: 49.0001, Lng: 8.4005})
	require.NotNil(t, mid.Reverse)
	assert.InDelta(t, 0.5, mid.Forward.Ratio, 0.01)
	assert.InDelta(t, 1, mid.Forward.Ratio+mid.Reverse.Ratio, 1e-9)
	assert.Equal(t, mid.Forward.From, mid.Reverse.To)
	assert.InDelta(t, 49.000, mid.Forward.Location.Lat, 1e-9)

	oneway := anchor(t, e, geo.LatLng{Lat: 49.0205, Lng: 8.400})
	assert.Nil(t, oneway.Reverse)

	_, err := e.Anchor(context.Background(), geo.LatLng{Lat: 50, Lng: 9})
	assert.ErrorIs(t, err, ErrPointTooFar)
}

func TestTableFromNode(t *testing.T) {
	e := newTestEngine(t)
	targets := []geo.LatLng{ptA, ptB, ptC, ptD, ptE, ptF}
	want := []float64{0, 100, 300, 300, 800, 700}

	pairs := make([]AnchorPair, len(targets))
	for i, p := range targets {
		pairs[i] = anchor(t, e, p)
	}

	m, err := e.Table(context.Background(), pairs[:1], pairs)
	require.NoError(t, err)
	for j, w := range want {
		c := m.At(0, j)
		require.Truef(t, c.Reachable, "target %d", j)
		assert.InDeltaf(t, w, c.Distance, 1e-3, "distance to %d", j)
		assert.InDeltaf(t, w/10, c.Duration, 1e-3, "duration to %d", j)
	}
	// 36 km/h falls into the 0.9 speed band.
	assert.InDelta(t, 0.9*10*700, m.At(0, 5).DrivingFactor, 1e-2)
}

func TestTableBackwardMatchesForward(t *testing.T) {
	e := newTestEngine(t)
	sources := []AnchorPair{
		anchor(t, e, ptA),
		anchor(t, e, geo.LatLng{Lat: 49.0001, Lng: 8.4015}),
		anchor(t, e, ptE),
	}
	target := anchor(t, e, ptF)

	// More sources than targets runs the reverse search.
	m, err := e.Table(context.Background(), sources, []AnchorPair{target})
	require.NoError(t, err)

	for i, src := range sources {
		single, err := e.Table(context.Background(), []AnchorPair{src}, []AnchorPair{target})
		require.NoError(t, err)
		assert.InDeltaf(t, single.At(0, 0).Duration, m.At(i, 0).Duration, 1e-6, "source %d", i)
		assert.InDeltaf(t, single.At(0, 0).ResistanceFactor, m.At(i, 0).ResistanceFactor, 1e-6, "source %d", i)
	}
	assert.InDelta(t, 50, m.At(1, 0).Duration, 1e-3, "B-C midpoint: 100 m back to C, then 400 m")
}

func TestTableSameEdge(t *testing.T) {
	e := newTestEngine(t)
	src := anchor(t, e, geo.LatLng{Lat: 49.0, Lng: 8.40025})
	tgt := anchor(t, e, geo.LatLng{Lat: 49.0, Lng: 8.40075})

	m, err := e.Table(context.Background(), []AnchorPair{src}, []AnchorPair{tgt})
	require.NoError(t, err)
	assert.InDelta(t, 50, m.At(0, 0).Distance, 0.5)
}

func TestTableUnreachable(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.Table(context.Background(), []AnchorPair{anchor(t, e, ptA)}, []AnchorPair{anchor(t, e, ptH)})
	require.NoError(t, err)
	assert.False(t, m.At(0, 0).Reachable)
}

func TestTableCanceled(t *testing.T) {
	e := newTestEngine(t)
	a := anchor(t, e, ptA)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Table(ctx, []AnchorPair{a}, []AnchorPair{a})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoute(t *testing.T) {
	e := newTestEngine(t)
	wps := []AnchorPair{anchor(t, e, ptA), anchor(t, e, ptF), anchor(t, e, ptD)}

	route, err := e.Route(context.Background(), wps)
	require.NoError(t, err)
	require.Len(t, route.Legs, 2)

	first := route.Legs[0]
	assert.InDelta(t, 700, first.Total.Distance, 1e-3)
	assert.Len(t, first.Annotations, len(first.Locations)-1)
	assertNear(t, ptA, first.Locations[0])
	assertNear(t, ptF, first.Locations[len(first.Locations)-1])
	assert.Contains(t, first.Locations, ptB)
	assert.Contains(t, first.Locations, ptC)
	assert.NotContains(t, first.Locations, ptE)

	// F -> D through C, B and A (1000 m) beats the bottom row through E (1100 m).
	assert.InDelta(t, 1000, route.Legs[1].Total.Distance, 1e-3)
	assert.InDelta(t, 1700, route.Total.Distance, 1e-3)
	assert.InDelta(t, 170, route.Total.Duration, 1e-3)

	var sum float64
	for _, a := range first.Annotations {
		sum += a.DrivingFactor
	}
	assert.InDelta(t, first.Total.DrivingFactor, sum, 1e-6)
}

func TestRouteSameEdge(t *testing.T) {
	e := newTestEngine(t)
	route, err := e.Route(context.Background(), []AnchorPair{
		anchor(t, e, geo.LatLng{Lat: 49.0, Lng: 8.40025}),
		anchor(t, e, geo.LatLng{Lat: 49.0, Lng: 8.40075}),
	})
	require.NoError(t, err)
	require.Len(t, route.Legs[0].Locations, 2)
	assert.InDelta(t, 50, route.Total.Distance, 0.5)
}

func TestRouteErrors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Route(context.Background(), []AnchorPair{anchor(t, e, ptA)})
	assert.ErrorIs(t, err, ErrTooFewWaypoints)

	_, err = e.Route(context.Background(), []AnchorPair{anchor(t, e, ptA), anchor(t, e, ptH)})
	assert.ErrorIs(t, err, ErrNoRoute)
}

func assertNear(t *testing.T, want, got geo.LatLng) {
	t.Helper()
	assert.InDelta(t, want.Lat, got.Lat, 1e-9)
	assert.InDelta(t, want.Lng, got.Lng, 1e-9)
}

type countingRouter struct {
	Router
	calls int
}

func (r *countingRouter) Anchor(_ context.Context, p geo.LatLng) (AnchorPair, error) {
	r.calls++
	if p.Lat > 80 {
		return AnchorPair{}, ErrPointTooFar
	}
	return AnchorPair{Input: p}, nil
}

func TestAnchorCache(t *testing.T) {
	inner := &countingRouter{}
	c, err := NewAnchorCache(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		pair, err := c.Anchor(ctx, ptA)
		require.NoError(t, err)
		assert.Equal(t, ptA, pair.Input)
	}
	assert.Equal(t, 1, inner.calls)

	far := geo.LatLng{Lat: 85, Lng: 0}
	_, err = c.Anchor(ctx, far)
	assert.ErrorIs(t, err, ErrPointTooFar)
	_, err = c.Anchor(ctx, far)
	assert.ErrorIs(t, err, ErrPointTooFar)
	assert.Equal(t, 3, inner.calls, "failures are not cached")
	assert.Equal(t, 1, c.Len())

	_, err = NewAnchorCache(inner, 0)
	assert.Error(t, err)
}

func TestMinHeapOrder(t *testing.T) {
	var h MinHeap
	for i, d := range []float64{5, 1, 4, 2, 3} {
		h.Push(uint32(i), d)
	}
	assert.Equal(t, 1.0, h.PeekDist())

	var got []float64
	for h.Len() > 0 {
		got = append(got, h.Pop().Dist)
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}

func BenchmarkTable(b *testing.B) {
	e := newTestEngine(b)
	pairs := make([]AnchorPair, 0, 6)
	for _, p := range []geo.LatLng{ptA, ptB, ptC, ptD, ptE, ptF} {
		pair, _ := e.Anchor(context.Background(), p)
		pairs = append(pairs, pair)
	}
	for b.Loop() {
		e.Table(context.Background(), pairs, pairs)
	}
}
