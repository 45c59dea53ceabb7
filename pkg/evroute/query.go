// Package evroute plans EV trips: it decides where to stop for charging
// between two points and assembles the resulting itinerary.
package evroute

import (
	"errors"
	"fmt"

	"github.com/azybler/ev_router/pkg/chargergraph"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/vehicle"
)

var (
	// ErrInvalidQuery is returned before any search for unusable input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoRoute is returned when no charger sequence connects start and end.
	ErrNoRoute = errors.New("no route found")
	// ErrNoCandidate is returned when the along-route search finds no charger
	// to continue from.
	ErrNoCandidate = errors.New("no charger candidate along route")
	// ErrDegenerateGraph is returned when pruning leaves no charger edges.
	ErrDegenerateGraph = errors.New("filtered charger graph has no edges")
	// ErrNoConvergence is returned when inserting a charger stops making
	// progress.
	ErrNoConvergence = errors.New("charger insertion does not converge")
)

// Strategy selects how charging stops are chosen.
type Strategy string

const (
	// StrategyDijkstra searches the whole charger graph.
	StrategyDijkstra Strategy = "dijkstra"
	// StrategyDijkstraAlongRoute searches the chargers near the direct route.
	StrategyDijkstraAlongRoute Strategy = "dijkstra_along_route"
	// StrategyAlongRoute greedily inserts chargers along the route.
	StrategyAlongRoute Strategy = "along_route"
)

// Output selects the response shape.
type Output string

const (
	OutputReport Output = "report"
	OutputRoute  Output = "route"
)

const (
	DefaultTemperature = 20.0    // °C
	DefaultRadius      = 10000.0 // m
)

// Query is one EV routing request.
type Query struct {
	Start geo.LatLng
	End   geo.LatLng

	// BatteryCapacity in mWh replaces the vehicle's when positive.
	BatteryCapacity float64
	// LowerPercent and UpperPercent bound the energy one leg may use, as
	// percent of the temperature-derated capacity.
	LowerPercent float64
	UpperPercent float64
	// LowerLimit and UpperLimit are absolute bounds in mWh. They replace the
	// percentages when UpperLimit is positive.
	LowerLimit float64
	UpperLimit float64

	// WLTP (kWh/100 km) and Weight (kg) replace the vehicle's when positive.
	WLTP   float64
	Weight float64

	Temperature float64 // °C
	Radius      float64 // m, around route points searched for chargers

	Strategy Strategy
	Output   Output
}

// NewQuery returns a query between start and end with the default settings:
// the full battery window, 20 °C, a 10 km search radius, greedy insertion
// and report output.
func NewQuery(start, end geo.LatLng) Query {
	return Query{
		Start:        start,
		End:          end,
		LowerPercent: 0,
		UpperPercent: 100,
		Temperature:  DefaultTemperature,
		Radius:       DefaultRadius,
		Strategy:     StrategyAlongRoute,
		Output:       OutputReport,
	}
}

// Validate rejects queries no strategy can answer.
func (q Query) Validate() error {
	if err := geo.Validate(q.Start); err != nil {
		return fmt.Errorf("%w: start: %w", ErrInvalidQuery, err)
	}
	if err := geo.Validate(q.End); err != nil {
		return fmt.Errorf("%w: end: %w", ErrInvalidQuery, err)
	}
	switch {
	case q.BatteryCapacity < 0:
		return fmt.Errorf("%w: negative battery capacity", ErrInvalidQuery)
	case q.WLTP < 0 || q.Weight < 0:
		return fmt.Errorf("%w: negative vehicle parameters", ErrInvalidQuery)
	case q.Radius <= 0:
		return fmt.Errorf("%w: search radius must be positive", ErrInvalidQuery)
	}
	if q.UpperLimit > 0 {
		if q.LowerLimit < 0 || q.LowerLimit >= q.UpperLimit {
			return fmt.Errorf("%w: capacity limits %.0f..%.0f mWh", ErrInvalidQuery, q.LowerLimit, q.UpperLimit)
		}
	} else if q.LowerPercent < 0 || q.UpperPercent > 100 || q.LowerPercent >= q.UpperPercent {
		return fmt.Errorf("%w: capacity limits %.1f%%..%.1f%%", ErrInvalidQuery, q.LowerPercent, q.UpperPercent)
	}

	switch q.Strategy {
	case StrategyDijkstra, StrategyDijkstraAlongRoute, StrategyAlongRoute:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidQuery, q.Strategy)
	}
	switch q.Output {
	case OutputReport, OutputRoute:
	default:
		return fmt.Errorf("%w: unknown output %q", ErrInvalidQuery, q.Output)
	}
	return nil
}

// settings are the query values resolved against the vehicle.
type settings struct {
	model    *vehicle.Vehicle
	capacity float64 // mWh, derated
	window   chargergraph.Window
	radius   float64
}

func (q Query) resolve(v *vehicle.Vehicle) (settings, error) {
	model := *v
	if q.WLTP > 0 {
		model.WLTP = q.WLTP
	}
	if q.Weight > 0 {
		model.Weight = q.Weight
	}
	if q.BatteryCapacity > 0 {
		model.Capacity = q.BatteryCapacity
	}

	s := settings{
		model:    &model,
		capacity: model.UsableCapacity(q.Temperature),
		radius:   q.Radius,
	}
	if q.UpperLimit > 0 {
		if q.UpperLimit > s.capacity {
			return settings{}, fmt.Errorf("%w: upper limit %.0f mWh exceeds usable capacity %.0f mWh", ErrInvalidQuery, q.UpperLimit, s.capacity)
		}
		s.window = chargergraph.Window{Lower: q.LowerLimit, Upper: q.UpperLimit}
	} else {
		s.window = chargergraph.Window{
			Lower: s.capacity * q.LowerPercent / 100,
			Upper: s.capacity * q.UpperPercent / 100,
		}
	}
	return s, nil
}
