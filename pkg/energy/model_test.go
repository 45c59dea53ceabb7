package energy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeedBandCoefficient(t *testing.T) {
	tests := []struct {
		speed float64
		want  float64
	}{
		{speed: 0, want: 0.8},
		{speed: 29.2, want: 0.8},
		{speed: 30, want: 0.9},
		{speed: 48.05, want: 0.9},
		{speed: 50, want: 1.0},
		{speed: 74.3, want: 1.0},
		{speed: 130, want: 1.32},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, SpeedBandCoefficient(tt.speed), "speed %.2f", tt.speed)
	}
}

func TestFactorsFlat(t *testing.T) {
	driving, resistance := Factors(1000, 50, 0)

	assert.InDelta(t, 10_000, driving, 1e-9)
	// Rolling resistance only: g * 0.012 * 1000 / 3.6.
	assert.InDelta(t, Gravity*AsphaltRollingCoefficient*1000/3.6, resistance, 1e-9)
}

func TestFactorsRecuperation(t *testing.T) {
	_, flat := Factors(1000, 50, 0)
	_, up := Factors(1000, 50, 20)
	_, down := Factors(1000, 50, -20)

	climb := up - flat
	descent := flat - down
	assert.Greater(t, climb, 0.0)
	assert.Greater(t, descent, 0.0)
	// Downhill gives back less energy than the climb cost.
	assert.Less(t, descent, climb)
	assert.InDelta(t, 0.7, (flat-down-rollingDelta(20))/(up-flat+rollingDelta(20)), 0.01)
}

// rollingDelta is the rolling-resistance difference between a flat and an
// inclined segment of the same length.
func rollingDelta(height float64) float64 {
	incline := math.Asin(height / 1000)
	return Gravity * AsphaltRollingCoefficient * 1000 * (1 - math.Cos(incline)*math.Cos(incline)) / 3.6
}

func TestFactorsDegenerate(t *testing.T) {
	driving, resistance := Factors(0, 50, 5)
	assert.Zero(t, driving)
	assert.InDelta(t, Gravity*5/3.6, resistance, 1e-9)

	// Height larger than distance is clamped instead of producing NaN.
	driving, resistance = Factors(10, 50, 50)
	assert.False(t, math.IsNaN(driving))
	assert.False(t, math.IsNaN(resistance))
}

func TestTemperatureCapacity(t *testing.T) {
	const base = 50_000_000.0

	assert.Equal(t, base, TemperatureCapacity(base, 25))
	assert.InDelta(t, base*0.33, TemperatureCapacity(base, -20), 1e-6)
	assert.InDelta(t, base*(0.015120879*10+0.61758), TemperatureCapacity(base, 10), 1e-6)
	assert.Less(t, TemperatureCapacity(base, 0), TemperatureCapacity(base, 15))
}

func TestChargingTime(t *testing.T) {
	assert.Zero(t, ChargingTime(0, 0))
	assert.InDelta(t, 400, ChargingTime(2, 18), 1e-9)
	assert.InDelta(t, 3600, ChargingTime(50_000_000, 50_000_000), 1e-9)
	assert.True(t, math.IsInf(ChargingTime(1, 0), 1))
}
