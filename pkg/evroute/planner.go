package evroute

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/energy"
	"github.com/azybler/ev_router/pkg/logger"
	"github.com/azybler/ev_router/pkg/routing"
	"github.com/azybler/ev_router/pkg/vehicle"
)

// Planner answers EV queries against one charger graph.
type Planner struct {
	router  routing.Router
	graph   *chargergraph.Graph
	vehicle *vehicle.Vehicle
	logger  *zap.Logger
}

// NewPlanner returns a planner. The graph and vehicle are shared read-only
// across queries.
func NewPlanner(r routing.Router, g *chargergraph.Graph, v *vehicle.Vehicle, log *zap.Logger) *Planner {
	return &Planner{router: r, graph: g, vehicle: v, logger: logger.OrNop(log)}
}

// Graph returns the charger graph queries run against.
func (p *Planner) Graph() *chargergraph.Graph { return p.graph }

// trip is the per-query state shared by the strategies.
type trip struct {
	settings
	query Query
	start routing.AnchorPair
	end   routing.AnchorPair
}

// Plan picks charging stops with the query's strategy and assembles the
// itinerary.
func (p *Planner) Plan(ctx context.Context, q Query) (*Itinerary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s, err := q.resolve(p.vehicle)
	if err != nil {
		return nil, err
	}
	t := &trip{settings: s, query: q}
	if t.start, err = p.router.Anchor(ctx, q.Start); err != nil {
		return nil, fmt.Errorf("anchor start: %w", err)
	}
	if t.end, err = p.router.Anchor(ctx, q.End); err != nil {
		return nil, fmt.Errorf("anchor end: %w", err)
	}

	began := time.Now()
	var stops []charger.Charger
	var route *routing.Route
	switch q.Strategy {
	case StrategyDijkstra:
		stops, err = p.viaGraph(ctx, p.graph, t)
	case StrategyDijkstraAlongRoute:
		stops, route, err = p.corridor(ctx, t)
	case StrategyAlongRoute:
		stops, route, err = p.alongRoute(ctx, t)
	}
	if err != nil {
		return nil, err
	}
	p.logger.Debug("charging stops chosen",
		zap.String("strategy", string(q.Strategy)),
		zap.Int("stops", len(stops)),
		zap.Duration("took", time.Since(began)),
	)

	if route == nil {
		if route, err = p.router.Route(ctx, waypoints(t, stops)); err != nil {
			return nil, fmt.Errorf("route through stops: %w", err)
		}
	}
	return assemble(route, stops, t.model, t.capacity), nil
}

func waypoints(t *trip, stops []charger.Charger) []routing.AnchorPair {
	out := make([]routing.AnchorPair, 0, len(stops)+2)
	out = append(out, t.start)
	for i := range stops {
		out = append(out, stops[i].Anchors)
	}
	return append(out, t.end)
}

// reachable computes the chargers of g the start can drive to and the end
// can be reached from, each within the trip's window. One table query per
// side.
func (p *Planner) reachable(ctx context.Context, g *chargergraph.Graph, t *trip) ([]chargergraph.ReachableStart, []chargergraph.ReachableEnd, error) {
	anchors := make([]routing.AnchorPair, g.NumChargers())
	for i := range anchors {
		anchors[i] = g.Charger(uint32(i)).Anchors
	}

	from, err := p.router.Table(ctx, []routing.AnchorPair{t.start}, anchors)
	if err != nil {
		return nil, nil, fmt.Errorf("costs from start: %w", err)
	}
	var starts []chargergraph.ReachableStart
	for j := range anchors {
		c := from.At(0, j)
		if !c.Reachable {
			continue
		}
		used := t.model.Consumption(c.DrivingFactor, c.ResistanceFactor)
		if !t.window.Contains(used) {
			continue
		}
		starts = append(starts, chargergraph.ReachableStart{
			Charger:          uint32(j),
			Duration:         c.Duration,
			ChargingTime:     energy.ChargingTime(used, g.Charger(uint32(j)).MaxPower),
			DrivingFactor:    c.DrivingFactor,
			ResistanceFactor: c.ResistanceFactor,
		})
	}
	if len(starts) == 0 {
		return nil, nil, fmt.Errorf("%w: no charger reachable from start", ErrNoRoute)
	}

	to, err := p.router.Table(ctx, anchors, []routing.AnchorPair{t.end})
	if err != nil {
		return nil, nil, fmt.Errorf("costs to end: %w", err)
	}
	var ends []chargergraph.ReachableEnd
	for i := range anchors {
		c := to.At(i, 0)
		if !c.Reachable || !t.window.Contains(t.model.Consumption(c.DrivingFactor, c.ResistanceFactor)) {
			continue
		}
		ends = append(ends, chargergraph.ReachableEnd{
			Charger:          uint32(i),
			Duration:         c.Duration,
			DrivingFactor:    c.DrivingFactor,
			ResistanceFactor: c.ResistanceFactor,
		})
	}
	if len(ends) == 0 {
		return nil, nil, fmt.Errorf("%w: no charger reaches the end", ErrNoRoute)
	}

	p.logger.Debug("reachable chargers",
		zap.Int("from_start", len(starts)),
		zap.Int("to_end", len(ends)),
	)
	return starts, ends, nil
}

// viaGraph runs the charger graph search on g and returns the stops as
// chargers of g.
func (p *Planner) viaGraph(ctx context.Context, g *chargergraph.Graph, t *trip) ([]charger.Charger, error) {
	starts, ends, err := p.reachable(ctx, g, t)
	if err != nil {
		return nil, err
	}
	res := g.ShortestPath(starts, ends, t.model)
	if !res.Found {
		return nil, ErrNoRoute
	}
	stops := make([]charger.Charger, len(res.Path))
	for i, n := range res.Path {
		stops[i] = *g.Charger(n)
	}
	return stops, nil
}

// corridor restricts the search to chargers near the direct route. A direct
// route that fits the window needs no stops.
func (p *Planner) corridor(ctx context.Context, t *trip) ([]charger.Charger, *routing.Route, error) {
	direct, err := p.router.Route(ctx, []routing.AnchorPair{t.start, t.end})
	if err != nil {
		return nil, nil, fmt.Errorf("direct route: %w", err)
	}
	if routeConsumption(direct, t.model) <= t.window.Upper {
		return nil, direct, nil
	}

	leg := &direct.Legs[0]
	points := searchPoints(leg, t.model, chargergraph.Window{Lower: 0, Upper: math.Inf(1)}, t.radius)
	keep := candidates(p.graph, leg, points, t.radius, nil)
	sub, err := p.graph.Subgraph(keep, t.model, t.window)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Debug("corridor graph",
		zap.Int("search_points", len(points)),
		zap.Int("chargers", sub.NumChargers()),
		zap.Int("edges", sub.NumEdges()),
	)
	if sub.NumEdges() == 0 {
		return nil, nil, ErrDegenerateGraph
	}

	stops, err := p.viaGraph(ctx, sub, t)
	if err != nil {
		return nil, nil, err
	}
	for i := range stops {
		stops[i] = *p.graph.Charger(sub.Mapping().ID(stops[i].ID))
	}
	return stops, nil, nil
}

// alongRoute inserts chargers into the route one at a time until every leg
// fits the window.
func (p *Planner) alongRoute(ctx context.Context, t *trip) ([]charger.Charger, *routing.Route, error) {
	points := []routing.AnchorPair{t.start, t.end}
	route, err := p.router.Route(ctx, points)
	if err != nil {
		return nil, nil, fmt.Errorf("direct route: %w", err)
	}
	consumption := routeConsumption(route, t.model)

	var stops []charger.Charger
	used := make(map[uint32]bool)
	for iter := 0; consumption > t.window.Upper; iter++ {
		if iter > p.graph.NumChargers() {
			return nil, nil, p.noConvergence(t, iter)
		}
		last := &route.Legs[len(route.Legs)-1]
		// The window is closed: a trailing leg using exactly Upper fits.
		if legConsumption(last, t.model) <= t.window.Upper {
			break
		}

		next, err := p.nextStop(ctx, t, last, points[len(points)-2], used)
		if err != nil {
			return nil, nil, err
		}
		points = slices.Insert(points, len(points)-1, next.Anchors)
		stops = append(stops, *next)
		used[next.ID] = true

		prev := consumption
		if route, err = p.router.Route(ctx, points); err != nil {
			return nil, nil, fmt.Errorf("route through %d stops: %w", len(stops), err)
		}
		consumption = routeConsumption(route, t.model)
		if consumption == prev {
			return nil, nil, p.noConvergence(t, iter)
		}
	}
	return stops, route, nil
}

// nextStop returns the charger closest to leg whose drive from prev fits
// the window.
func (p *Planner) nextStop(ctx context.Context, t *trip, leg *routing.Leg, prev routing.AnchorPair, used map[uint32]bool) (*charger.Charger, error) {
	points := searchPoints(leg, t.model, t.window, t.radius)
	for _, n := range candidates(p.graph, leg, points, t.radius, used) {
		c := p.graph.Charger(n)
		r, err := p.router.Route(ctx, []routing.AnchorPair{prev, c.Anchors})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if t.window.Contains(legConsumption(&r.Legs[0], t.model)) {
			return c, nil
		}
	}
	return nil, ErrNoCandidate
}

func (p *Planner) noConvergence(t *trip, iter int) error {
	p.logger.Error("charger insertion made no progress",
		zap.Stringer("start", t.query.Start),
		zap.Stringer("end", t.query.End),
		zap.Int("iteration", iter),
	)
	return ErrNoConvergence
}
