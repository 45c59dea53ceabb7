// Package routingtest provides a road router for tests that drives in
// straight lines.
package routingtest

import (
	"context"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing"
)

// Straight is a routing.Router where every road is the great-circle line
// between two points. The driving factor equals the distance in meters and
// the resistance factor is zero.
type Straight struct {
	Speed float64 // m/s, 10 when zero
	// MaxDistance makes longer pairs unreachable when positive.
	MaxDistance float64
	// Unanchorable points fail Anchor with routing.ErrPointTooFar.
	Unanchorable []geo.LatLng
	// Segments per leg in Route, 2 when zero.
	Segments int

	TableCalls int
	RouteCalls int
}

var _ routing.Router = (*Straight)(nil)

func (s *Straight) speed() float64 {
	if s.Speed <= 0 {
		return 10
	}
	return s.Speed
}

func (s *Straight) cost(a, b geo.LatLng) (routing.Annotation, bool) {
	d := geo.Distance(a, b)
	if s.MaxDistance > 0 && d > s.MaxDistance {
		return routing.Annotation{}, false
	}
	return routing.Annotation{Duration: d / s.speed(), Distance: d, DrivingFactor: d}, true
}

func (s *Straight) Anchor(ctx context.Context, p geo.LatLng) (routing.AnchorPair, error) {
	if err := ctx.Err(); err != nil {
		return routing.AnchorPair{}, err
	}
	for _, u := range s.Unanchorable {
		if u == p {
			return routing.AnchorPair{}, routing.ErrPointTooFar
		}
	}
	return routing.AnchorPair{Input: p, Forward: routing.Anchor{Location: p}}, nil
}

func (s *Straight) Table(ctx context.Context, sources, targets []routing.AnchorPair) (*routing.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.TableCalls++
	m := &routing.Matrix{Sources: len(sources), Targets: len(targets), Costs: make([]routing.Cost, len(sources)*len(targets))}
	for i, src := range sources {
		for j, tgt := range targets {
			a, ok := s.cost(src.Input, tgt.Input)
			m.Costs[i*len(targets)+j] = routing.Cost{
				Duration:         a.Duration,
				Distance:         a.Distance,
				DrivingFactor:    a.DrivingFactor,
				ResistanceFactor: a.ResistanceFactor,
				Reachable:        ok,
			}
		}
	}
	return m, nil
}

// Route splits every leg into equal segments.
func (s *Straight) Route(ctx context.Context, waypoints []routing.AnchorPair) (*routing.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(waypoints) < 2 {
		return nil, routing.ErrTooFewWaypoints
	}
	s.RouteCalls++

	n := s.Segments
	if n <= 0 {
		n = 2
	}
	r := &routing.Route{}
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1].Input, waypoints[i].Input
		if _, ok := s.cost(a, b); !ok {
			return nil, routing.ErrNoRoute
		}
		leg := routing.Leg{Locations: []geo.LatLng{a}}
		prev := a
		for k := 1; k <= n; k++ {
			next := b
			if k < n {
				next = geo.Interpolate(a, b, float64(k)/float64(n))
			}
			ann, _ := s.cost(prev, next)
			leg.Locations = append(leg.Locations, next)
			leg.Annotations = append(leg.Annotations, ann)
			leg.Total = leg.Total.Add(ann)
			prev = next
		}
		r.Legs = append(r.Legs, leg)
		r.Total = r.Total.Add(leg.Total)
	}
	return r, nil
}
