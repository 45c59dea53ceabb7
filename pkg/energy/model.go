// Package energy holds the vehicle-independent consumption model.
//
// Energy is expressed in milliwatt-hours and power in milliwatts, so that
// driving factor times a WLTP rating in kWh/100km yields mWh directly and
// mWh / mW * 3600 yields seconds.
package energy

import "math"

const (
	// Gravity in m/s².
	Gravity = 9.81
	// AsphaltRollingCoefficient is the rolling resistance coefficient on asphalt.
	AsphaltRollingCoefficient = 0.012

	// recuperationEfficiency is the fraction of potential energy recovered downhill.
	recuperationEfficiency = 0.7
)

// Speed gates in km/h of the WLTP driving-cycle phases.
const (
	mediumSpeed    = 29.2
	highSpeed      = 48.05
	extraHighSpeed = 74.3
)

// Multipliers applied on top of the WLTP rating per phase.
const (
	lowCoefficient       = 0.8
	mediumCoefficient    = 0.9
	highCoefficient      = 1.0
	extraHighCoefficient = 1.32
)

// SpeedBandCoefficient maps an average speed to the WLTP phase multiplier.
func SpeedBandCoefficient(speedKmh float64) float64 {
	switch {
	case speedKmh > extraHighSpeed:
		return extraHighCoefficient
	case speedKmh > highSpeed:
		return highCoefficient
	case speedKmh > mediumSpeed:
		return mediumCoefficient
	default:
		return lowCoefficient
	}
}

// Factors converts a road segment into its driving and resistance factors.
// distance and height are in meters, height being the signed elevation change
// from the segment start to its end.
//
// Consumption for a concrete vehicle is driving*wltp + resistance*weight.
func Factors(distance, speedKmh, height float64) (driving, resistance float64) {
	potential := height
	if height < 0 {
		potential = height * recuperationEfficiency
	}
	if distance <= 0 {
		return 0, Gravity * potential / 3.6
	}

	incline := math.Asin(math.Max(-1, math.Min(1, height/distance)))
	planar := math.Cos(incline) * distance

	driving = SpeedBandCoefficient(speedKmh) * 10 * distance
	resistance = Gravity * (AsphaltRollingCoefficient*math.Cos(incline)*planar + potential) / 3.6
	return driving, resistance
}
