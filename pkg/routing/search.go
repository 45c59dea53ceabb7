package routing

import (
	"context"
	"math"

	"github.com/azybler/ev_router/pkg/geo"
)

func (e *Engine) edgeCosts(edge uint32) costs {
	return costs{
		Duration:         float64(e.g.Duration[edge]),
		Distance:         float64(e.g.Length[edge]),
		DrivingFactor:    float64(e.g.DrivingFactor[edge]),
		ResistanceFactor: float64(e.g.ResistanceFactor[edge]),
	}
}

func (e *Engine) node(n uint32) geo.LatLng {
	return geo.LatLng{Lat: e.g.NodeLat[n], Lng: e.g.NodeLon[n]}
}

// seedForward enters the graph at the head of each source anchor's edge.
func (e *Engine) seedForward(s *searchState, src AnchorPair) {
	for _, a := range src.anchors() {
		s.relax(a.To, e.edgeCosts(a.Edge).scale(1-a.Ratio), noEdge)
	}
}

// seedBackward enters the reverse graph at the tail of each target anchor's edge.
func (e *Engine) seedBackward(s *searchState, tgt AnchorPair) {
	for _, a := range tgt.anchors() {
		s.relax(a.From, e.edgeCosts(a.Edge).scale(a.Ratio), noEdge)
	}
}

// runForward settles nodes until every node in stop is settled or the
// reachable part of the graph is exhausted.
func (e *Engine) runForward(ctx context.Context, s *searchState, stop map[uint32]struct{}) error {
	remaining := len(stop)
	for iter := 0; s.pq.Len() > 0 && remaining > 0; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		item := s.pq.Pop()
		u := item.Node
		if s.settled[u] || item.Dist > s.dist[u] {
			continue // stale entry
		}
		s.settled[u] = true
		if _, ok := stop[u]; ok {
			remaining--
		}

		// Relax outgoing edges.
		start, end := e.g.EdgesFrom(u)
		for ei := start; ei < end; ei++ {
			if v := e.g.Head[ei]; !s.settled[v] {
				s.relax(v, s.acc[u].add(e.edgeCosts(ei)), ei)
			}
		}
	}
	return nil
}

// runBackward is runForward over incoming edges.
func (e *Engine) runBackward(ctx context.Context, s *searchState, stop map[uint32]struct{}) error {
	remaining := len(stop)
	for iter := 0; s.pq.Len() > 0 && remaining > 0; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		item := s.pq.Pop()
		u := item.Node
		if s.settled[u] || item.Dist > s.dist[u] {
			continue // stale entry
		}
		s.settled[u] = true
		if _, ok := stop[u]; ok {
			remaining--
		}

		// Relax incoming edges.
		start, end := e.rev.EdgesTo(u)
		for i := start; i < end; i++ {
			if t := e.rev.Tail[i]; !s.settled[t] {
				ei := e.rev.Edge[i]
				s.relax(t, s.acc[u].add(e.edgeCosts(ei)), ei)
			}
		}
	}
	return nil
}

// arrivalVia records which anchors produced the best arrival.
type arrivalVia struct {
	direct bool // both anchors on the same edge, no search involved
	source Anchor
	target Anchor
}

// arrival returns the best cost from src to tgt using a forward search seeded
// from src.
func (e *Engine) arrival(s *searchState, src, tgt AnchorPair) (costs, arrivalVia) {
	best := costs{Duration: math.Inf(1)}
	var via arrivalVia
	for _, ta := range tgt.anchors() {
		if !math.IsInf(s.dist[ta.From], 1) {
			if c := s.acc[ta.From].add(e.edgeCosts(ta.Edge).scale(ta.Ratio)); c.Duration < best.Duration {
				best, via = c, arrivalVia{target: ta}
			}
		}
	}
	if c, sa, ta, ok := e.direct(src, tgt); ok && c.Duration < best.Duration {
		best, via = c, arrivalVia{direct: true, source: sa, target: ta}
	}
	return best, via
}

// departure returns the best cost from src to tgt using a backward search
// seeded from tgt.
func (e *Engine) departure(s *searchState, src, tgt AnchorPair) costs {
	best := costs{Duration: math.Inf(1)}
	for _, sa := range src.anchors() {
		if !math.IsInf(s.dist[sa.To], 1) {
			if c := e.edgeCosts(sa.Edge).scale(1 - sa.Ratio).add(s.acc[sa.To]); c.Duration < best.Duration {
				best = c
			}
		}
	}
	if c, _, _, ok := e.direct(src, tgt); ok && c.Duration < best.Duration {
		best = c
	}
	return best
}

// direct handles a target ahead of the source on the same edge.
func (e *Engine) direct(src, tgt AnchorPair) (costs, Anchor, Anchor, bool) {
	best := costs{Duration: math.Inf(1)}
	var bestSA, bestTA Anchor
	found := false
	for _, sa := range src.anchors() {
		for _, ta := range tgt.anchors() {
			if sa.Edge != ta.Edge || ta.Ratio < sa.Ratio {
				continue
			}
			if c := e.edgeCosts(sa.Edge).scale(ta.Ratio - sa.Ratio); c.Duration < best.Duration {
				best, bestSA, bestTA, found = c, sa, ta, true
			}
		}
	}
	return best, bestSA, bestTA, found
}

// seedAnchor returns the cheapest source anchor that seeded node n.
func (e *Engine) seedAnchor(src AnchorPair, n uint32) Anchor {
	best := src.Forward
	bestCost := math.Inf(1)
	for _, a := range src.anchors() {
		if a.To != n {
			continue
		}
		if d := e.edgeCosts(a.Edge).Duration * (1 - a.Ratio); d < bestCost {
			best, bestCost = a, d
		}
	}
	return best
}

func toCost(c costs) Cost {
	if math.IsInf(c.Duration, 1) {
		return Cost{Duration: math.Inf(1)}
	}
	return Cost{
		Duration:         c.Duration,
		Distance:         c.Distance,
		DrivingFactor:    c.DrivingFactor,
		ResistanceFactor: c.ResistanceFactor,
		Reachable:        true,
	}
}

// Add sums two annotations.
func (a Annotation) Add(o Annotation) Annotation {
	return Annotation{
		Duration:         a.Duration + o.Duration,
		Distance:         a.Distance + o.Distance,
		DrivingFactor:    a.DrivingFactor + o.DrivingFactor,
		ResistanceFactor: a.ResistanceFactor + o.ResistanceFactor,
	}
}

// push appends a location and the costs of the segment starting there.
func (l *Leg) push(loc geo.LatLng, c costs) {
	ann := Annotation(c)
	l.Locations = append(l.Locations, loc)
	l.Annotations = append(l.Annotations, ann)
	l.Total = l.Total.Add(ann)
}
