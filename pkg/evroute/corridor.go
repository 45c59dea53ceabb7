package evroute

import (
	"cmp"
	"slices"

	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing"
)

func legConsumption(leg *routing.Leg, m chargergraph.ConsumptionModel) float64 {
	var sum float64
	for _, a := range leg.Annotations {
		sum += m.Consumption(a.DrivingFactor, a.ResistanceFactor)
	}
	return sum
}

func routeConsumption(r *routing.Route, m chargergraph.ConsumptionModel) float64 {
	var sum float64
	for i := range r.Legs {
		sum += legConsumption(&r.Legs[i], m)
	}
	return sum
}

// searchPoints walks leg accumulating consumption and samples the segment
// starts where it lies within w. A point is only taken when it is at least
// radius away from every point taken before.
func searchPoints(leg *routing.Leg, m chargergraph.ConsumptionModel, w chargergraph.Window, radius float64) []geo.LatLng {
	var points []geo.LatLng
	var used float64
	for i, a := range leg.Annotations {
		used += m.Consumption(a.DrivingFactor, a.ResistanceFactor)
		if used < w.Lower {
			continue
		}
		if used > w.Upper {
			break
		}
		loc := leg.Locations[i]
		if !slices.ContainsFunc(points, func(p geo.LatLng) bool { return geo.Distance(p, loc) < radius }) {
			points = append(points, loc)
		}
	}
	return points
}

// candidates returns the nodes of g closer than radius to any of points,
// skipping used ones, nearest to the leg first. The ranking scans every leg
// location, so it uses the equirectangular approximation.
func candidates(g *chargergraph.Graph, leg *routing.Leg, points []geo.LatLng, radius float64, used map[uint32]bool) []uint32 {
	type ranked struct {
		node uint32
		dist float64
	}
	var found []ranked
	for n := range uint32(g.NumChargers()) {
		c := g.Charger(n)
		if used[c.ID] {
			continue
		}
		if !slices.ContainsFunc(points, func(p geo.LatLng) bool { return geo.Distance(c.Location, p) < radius }) {
			continue
		}
		best := radius
		for _, loc := range leg.Locations {
			best = min(best, geo.EquirectangularDist(c.Location, loc))
		}
		found = append(found, ranked{node: n, dist: best})
	}
	slices.SortStableFunc(found, func(a, b ranked) int { return cmp.Compare(a.dist, b.dist) })

	out := make([]uint32, len(found))
	for i, r := range found {
		out[i] = r.node
	}
	return out
}
