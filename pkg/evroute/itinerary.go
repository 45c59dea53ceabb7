package evroute

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/energy"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing"
)

// Waypoint is a route location with the charge level on arrival.
type Waypoint struct {
	Location    geo.LatLng
	ChargeLevel float64 // percent of the usable capacity
}

// Stop is a charging stop. The car is charged back to the usable capacity.
type Stop struct {
	Charger      charger.Charger
	ArrivalLevel float64 // percent
	ChargingTime float64 // s
}

// Itinerary is a planned trip.
type Itinerary struct {
	Route     *routing.Route
	Stops     []Stop
	Waypoints []Waypoint
	Capacity  float64 // usable capacity in mWh

	DrivingTime  float64 // s
	ChargingTime float64 // s
	Consumption  float64 // mWh
	Bound        orb.Bound
}

// Weight is the total trip time including charging, in seconds.
func (it *Itinerary) Weight() float64 { return it.DrivingTime + it.ChargingTime }

// assemble walks the route leg by leg. Every leg starts with a full usable
// battery; leg i ends at stop i, where the energy used is recharged.
func assemble(r *routing.Route, stops []charger.Charger, m chargergraph.ConsumptionModel, capacity float64) *Itinerary {
	it := &Itinerary{Route: r, Capacity: capacity}
	var locs []geo.LatLng
	for i := range r.Legs {
		leg := &r.Legs[i]
		remaining := capacity
		if len(leg.Locations) > 0 {
			it.Waypoints = append(it.Waypoints, Waypoint{Location: leg.Locations[0], ChargeLevel: 100})
			locs = append(locs, leg.Locations...)
		}
		for j, a := range leg.Annotations {
			used := m.Consumption(a.DrivingFactor, a.ResistanceFactor)
			remaining -= used
			it.Consumption += used
			it.DrivingTime += a.Duration
			it.Waypoints = append(it.Waypoints, Waypoint{Location: leg.Locations[j+1], ChargeLevel: level(remaining, capacity)})
		}

		if i < len(stops) {
			stop := Stop{
				Charger:      stops[i],
				ArrivalLevel: level(remaining, capacity),
				ChargingTime: energy.ChargingTime(capacity-remaining, stops[i].MaxPower),
			}
			it.ChargingTime += stop.ChargingTime
			it.Stops = append(it.Stops, stop)
		}
	}
	it.Bound = geo.Bound(locs)
	return it
}

func level(remaining, capacity float64) float64 {
	return remaining / capacity * 100
}

// GeoJSON renders one LineString per route segment. The consumption
// property is the charge level in percent at the segment end.
func (it *Itinerary) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	k := 0
	for _, leg := range it.Route.Legs {
		k++ // the leg start waypoint
		for j := range leg.Annotations {
			f := geojson.NewFeature(geo.LineString(leg.Locations[j : j+2]))
			f.Properties["consumption"] = it.Waypoints[k].ChargeLevel
			f.Properties["duration"] = leg.Annotations[j].Duration
			f.Properties["distance"] = leg.Annotations[j].Distance
			fc.Append(f)
			k++
		}
	}
	return fc
}
