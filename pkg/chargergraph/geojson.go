package chargergraph

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON renders every edge as a straight line between its chargers, for
// inspection in map tools.
func (g *Graph) GeoJSON(m ConsumptionModel) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range g.edges {
		from, to := g.set.Chargers[e.Start].Location, g.set.Chargers[e.End].Location
		f := geojson.NewFeature(orb.LineString{from.Point(), to.Point()})
		f.Properties["start"] = e.Start
		f.Properties["end"] = e.End
		f.Properties["weight"] = e.Weight
		if m != nil {
			f.Properties["consumption"] = e.Consumption(m)
		}
		fc.Append(f)
	}
	return fc
}
