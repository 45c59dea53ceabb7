package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/graph"
)

const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	EdgeIdx uint32  // index into the edge arrays
	NodeU   uint32  // source node of the edge
	NodeV   uint32  // target node of the edge
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // meters from the query point to the snapped point
}

// Snapper provides nearest-road snapping over an R-tree of edge bounding boxes.
type Snapper struct {
	tree rtree.RTreeG[uint32]
	g    *graph.Graph
}

// NewSnapper indexes every edge of g.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g}
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			lo := [2]float64{math.Min(g.NodeLon[u], g.NodeLon[v]), math.Min(g.NodeLat[u], g.NodeLat[v])}
			hi := [2]float64{math.Max(g.NodeLon[u], g.NodeLon[v]), math.Max(g.NodeLat[u], g.NodeLat[v])}
			s.tree.Insert(lo, hi, e)
		}
	}
	return s
}

// Len returns the number of indexed edges.
func (s *Snapper) Len() int { return s.tree.Len() }

// Snap finds the nearest road segment to p within maxSnapDistMeters.
func (s *Snapper) Snap(p geo.LatLng) (SnapResult, error) {
	box := geo.BoundAround(p, maxSnapDistMeters)

	best := SnapResult{Dist: math.Inf(1)}
	s.tree.Search([2]float64(box.Min), [2]float64(box.Max), func(_, _ [2]float64, e uint32) bool {
		u := s.g.Tail(e)
		v := s.g.Head[e]
		dist, ratio := geo.PointToSegment(p, s.nodeLatLng(u), s.nodeLatLng(v))
		// Lower edge index wins ties so snapping does not depend on tree order.
		if dist < best.Dist || (dist == best.Dist && e < best.EdgeIdx) {
			best = SnapResult{EdgeIdx: e, NodeU: u, NodeV: v, Ratio: ratio, Dist: dist}
		}
		return true
	})

	if best.Dist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}

// AnchorPair snaps p and returns the anchors for both travel directions.
// On a oneway road the pair only has a forward anchor.
func (s *Snapper) AnchorPair(p geo.LatLng) (AnchorPair, error) {
	snap, err := s.Snap(p)
	if err != nil {
		return AnchorPair{}, err
	}

	loc := geo.Interpolate(s.nodeLatLng(snap.NodeU), s.nodeLatLng(snap.NodeV), snap.Ratio)
	pair := AnchorPair{
		Input: p,
		Forward: Anchor{
			Edge:     snap.EdgeIdx,
			From:     snap.NodeU,
			To:       snap.NodeV,
			Ratio:    snap.Ratio,
			Location: loc,
		},
	}
	if rev, ok := s.g.FindEdge(snap.NodeV, snap.NodeU); ok {
		pair.Reverse = &Anchor{
			Edge:     rev,
			From:     snap.NodeV,
			To:       snap.NodeU,
			Ratio:    1 - snap.Ratio,
			Location: loc,
		}
	}
	return pair, nil
}

func (s *Snapper) nodeLatLng(n uint32) geo.LatLng {
	return geo.LatLng{Lat: s.g.NodeLat[n], Lng: s.g.NodeLon[n]}
}
