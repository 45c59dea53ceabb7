package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/graph"
	"github.com/azybler/ev_router/pkg/logger"
)

var (
	// ErrNoRoute is returned when no route exists between two waypoints.
	ErrNoRoute = errors.New("no route found")
	// ErrTooFewWaypoints is returned by Route for fewer than two waypoints.
	ErrTooFewWaypoints = errors.New("route needs at least two waypoints")
)

// Anchor attaches a coordinate to a directed road edge From→To.
type Anchor struct {
	Edge     uint32     `json:"edge"`
	From     uint32     `json:"from"`
	To       uint32     `json:"to"`
	Ratio    float64    `json:"ratio"` // 0 at From, 1 at To
	Location geo.LatLng `json:"location"`
}

// AnchorPair holds the anchors of one coordinate for both travel directions.
// Reverse is nil on oneway roads.
type AnchorPair struct {
	Input   geo.LatLng `json:"input"`
	Forward Anchor     `json:"forward"`
	Reverse *Anchor    `json:"reverse,omitempty"`
}

func (p AnchorPair) anchors() []Anchor {
	if p.Reverse == nil {
		return []Anchor{p.Forward}
	}
	return []Anchor{p.Forward, *p.Reverse}
}

// Cost is one cell of a travel-cost matrix.
type Cost struct {
	Duration         float64 // seconds
	Distance         float64 // meters
	DrivingFactor    float64
	ResistanceFactor float64
	Reachable        bool
}

// Matrix holds the costs from every source to every target.
type Matrix struct {
	Sources int
	Targets int
	Costs   []Cost // row-major, Sources x Targets
}

// At returns the cost from source i to target j.
func (m *Matrix) At(i, j int) Cost {
	return m.Costs[i*m.Targets+j]
}

// Annotation holds the costs of one segment between consecutive locations.
type Annotation struct {
	Duration         float64
	Distance         float64
	DrivingFactor    float64
	ResistanceFactor float64
}

// Leg is the path between two consecutive waypoints. Annotations[i] covers
// Locations[i] to Locations[i+1].
type Leg struct {
	Locations   []geo.LatLng
	Annotations []Annotation
	Total       Annotation
}

// Route is a multi-leg route through all waypoints in order.
type Route struct {
	Legs  []Leg
	Total Annotation
}

// Router is the road-network routing port used by the EV layer.
type Router interface {
	Anchor(ctx context.Context, p geo.LatLng) (AnchorPair, error)
	Table(ctx context.Context, sources, targets []AnchorPair) (*Matrix, error)
	Route(ctx context.Context, waypoints []AnchorPair) (*Route, error)
}

// ctxCheckInterval is how many heap pops pass between context checks.
const ctxCheckInterval = 1024

// Engine implements Router with plain Dijkstra on the road graph.
type Engine struct {
	g       *graph.Graph
	rev     *graph.Reverse
	snapper *Snapper
	states  sync.Pool
	workers int
	logger  *zap.Logger
}

// NewEngine indexes g for snapping and builds its reverse adjacency.
func NewEngine(g *graph.Graph, log *zap.Logger) *Engine {
	e := &Engine{
		g:       g,
		rev:     g.Reverse(),
		snapper: NewSnapper(g),
		workers: runtime.GOMAXPROCS(0),
		logger:  logger.OrNop(log),
	}
	e.states.New = func() any { return newSearchState(g.NumNodes) }
	e.logger.Info("routing engine ready",
		zap.Uint32("nodes", g.NumNodes),
		zap.Uint32("edges", g.NumEdges),
		zap.Int("snap_index", e.snapper.Len()),
	)
	return e
}

// Anchor snaps p onto the road network.
func (e *Engine) Anchor(ctx context.Context, p geo.LatLng) (AnchorPair, error) {
	if err := ctx.Err(); err != nil {
		return AnchorPair{}, err
	}
	return e.snapper.AnchorPair(p)
}

// Table computes the cost matrix between all sources and targets. It runs one
// search per source, or one reverse search per target when there are fewer
// targets, in parallel.
func (e *Engine) Table(ctx context.Context, sources, targets []AnchorPair) (*Matrix, error) {
	m := &Matrix{Sources: len(sources), Targets: len(targets), Costs: make([]Cost, len(sources)*len(targets))}
	if len(sources) == 0 || len(targets) == 0 {
		return m, nil
	}

	// Search from the smaller side.
	backward := len(targets) < len(sources)
	tasks := len(sources)
	if backward {
		tasks = len(targets)
	}

	// Bounded worker pool, one search per task.
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for i := 0; i < tasks && ctx.Err() == nil; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			s := e.states.Get().(*searchState)
			defer func() {
				s.reset()
				e.states.Put(s)
			}()

			var err error
			if backward {
				err = e.tableColumn(ctx, s, sources, targets[i], i, m)
			} else {
				err = e.tableRow(ctx, s, sources[i], targets, i, m)
			}
			if err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Engine) tableRow(ctx context.Context, s *searchState, src AnchorPair, targets []AnchorPair, row int, m *Matrix) error {
	// Stop once every target edge tail is settled.
	stop := make(map[uint32]struct{}, len(targets)*2)
	for _, t := range targets {
		for _, a := range t.anchors() {
			stop[a.From] = struct{}{}
		}
	}
	e.seedForward(s, src)
	if err := e.runForward(ctx, s, stop); err != nil {
		return err
	}
	for j, t := range targets {
		c, _ := e.arrival(s, src, t)
		m.Costs[row*m.Targets+j] = toCost(c)
	}
	return nil
}

func (e *Engine) tableColumn(ctx context.Context, s *searchState, sources []AnchorPair, tgt AnchorPair, col int, m *Matrix) error {
	// Stop once every source edge head is settled.
	stop := make(map[uint32]struct{}, len(sources)*2)
	for _, src := range sources {
		for _, a := range src.anchors() {
			stop[a.To] = struct{}{}
		}
	}
	e.seedBackward(s, tgt)
	if err := e.runBackward(ctx, s, stop); err != nil {
		return err
	}
	for i, src := range sources {
		m.Costs[i*m.Targets+col] = toCost(e.departure(s, src, tgt))
	}
	return nil
}

// Route computes the route through waypoints, one leg per consecutive pair.
func (e *Engine) Route(ctx context.Context, waypoints []AnchorPair) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}

	s := e.states.Get().(*searchState)
	defer e.states.Put(s)

	route := &Route{Legs: make([]Leg, 0, len(waypoints)-1)}
	for i := 0; i+1 < len(waypoints); i++ {
		leg, err := e.leg(ctx, s, waypoints[i], waypoints[i+1])
		s.reset()
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		route.Legs = append(route.Legs, leg)
		route.Total = route.Total.Add(leg.Total)
	}
	return route, nil
}

func (e *Engine) leg(ctx context.Context, s *searchState, src, tgt AnchorPair) (Leg, error) {
	stop := make(map[uint32]struct{}, 2)
	for _, a := range tgt.anchors() {
		stop[a.From] = struct{}{}
	}
	e.seedForward(s, src)
	if err := e.runForward(ctx, s, stop); err != nil {
		return Leg{}, err
	}

	best, via := e.arrival(s, src, tgt)
	if math.IsInf(best.Duration, 1) {
		return Leg{}, ErrNoRoute
	}

	// Same edge: no graph nodes in between.
	var leg Leg
	if via.direct {
		leg.push(via.source.Location, best)
		leg.Locations = append(leg.Locations, via.target.Location)
		return leg, nil
	}

	// Walk the tree back from the node the target anchor is entered from.
	var edges []uint32
	n := via.target.From
	for s.pred[n] != noEdge {
		edges = append(edges, s.pred[n])
		n = e.g.Tail(s.pred[n])
	}

	// Partial first edge, full edges, partial last edge.
	sa := e.seedAnchor(src, n)
	leg.push(sa.Location, e.edgeCosts(sa.Edge).scale(1-sa.Ratio))
	cur := n
	for i := len(edges) - 1; i >= 0; i-- {
		leg.push(e.node(cur), e.edgeCosts(edges[i]))
		cur = e.g.Head[edges[i]]
	}
	leg.push(e.node(cur), e.edgeCosts(via.target.Edge).scale(via.target.Ratio))
	leg.Locations = append(leg.Locations, via.target.Location)
	return leg, nil
}
