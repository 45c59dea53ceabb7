package energy

import "math"

const (
	coldLimit     = -15.0
	warmLimit     = 20.0
	coldRetention = 0.33

	retentionSlope     = 0.015120879
	retentionIntercept = 0.61758
)

// TemperatureCapacity derates a battery capacity for the ambient temperature
// in °C. It is flat above 20 °C and a third of the base below -15 °C.
func TemperatureCapacity(base, celsius float64) float64 {
	switch {
	case celsius < coldLimit:
		return base * coldRetention
	case celsius > warmLimit:
		return base
	default:
		return base * (retentionSlope*celsius + retentionIntercept)
	}
}

// ChargingTime returns the seconds needed to put energy (mWh) into the battery
// at power (mW). Charging nothing is free; charging with no power never ends.
func ChargingTime(energy, power float64) float64 {
	if energy <= 0 {
		return 0
	}
	if power <= 0 {
		return math.Inf(1)
	}
	return energy / power * 3600
}
