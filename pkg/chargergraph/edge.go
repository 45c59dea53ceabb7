// Package chargergraph is the charger-to-charger graph: building it from the
// road router's cost matrix, persisting it and searching it with charging
// times folded into the edge weights.
package chargergraph

import "cmp"

// Edge is a drive between two chargers that fits one usable battery window.
type Edge struct {
	Start  uint32
	End    uint32
	Weight float64 // seconds of driving

	// Vehicle-independent energy factors summed along the road path.
	DrivingFactor    float64
	ResistanceFactor float64
}

// Compare orders edges by (Start, End).
func (e Edge) Compare(o Edge) int {
	if c := cmp.Compare(e.Start, o.Start); c != 0 {
		return c
	}
	return cmp.Compare(e.End, o.End)
}

// ConsumptionModel turns energy factors into mWh for one vehicle.
type ConsumptionModel interface {
	Consumption(driving, resistance float64) float64
}

// Consumption is the energy in mWh the edge costs under m.
func (e Edge) Consumption(m ConsumptionModel) float64 {
	return m.Consumption(e.DrivingFactor, e.ResistanceFactor)
}

// Window is a closed range of consumptions in mWh.
type Window struct {
	Lower float64
	Upper float64
}

// Contains reports whether c lies in the window.
func (w Window) Contains(c float64) bool {
	return w.Lower <= c && c <= w.Upper
}

// Fits reports whether e's consumption under m lies in w.
func (w Window) Fits(e Edge, m ConsumptionModel) bool {
	return w.Contains(e.Consumption(m))
}
