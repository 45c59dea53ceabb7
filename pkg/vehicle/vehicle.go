// Package vehicle holds the EV profile the energy model is evaluated against.
package vehicle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/energy"
)

// ErrInvalid is returned for a profile that cannot be routed with.
var ErrInvalid = errors.New("invalid vehicle profile")

// passengerWeight is added per passenger on top of the curb weight, in kg.
const passengerWeight = 70

// Vehicle is an EV profile in router units.
type Vehicle struct {
	Name             string
	WLTP             float64 // kWh/100 km
	Weight           float64 // kg, including passengers
	Capacity         float64 // mWh
	Plugs            []charger.PlugType
	MaxChargingPower float64 // mW
}

// Consumption combines the per-edge factors into mWh for this vehicle.
func (v *Vehicle) Consumption(driving, resistance float64) float64 {
	return driving*v.WLTP + resistance*v.Weight
}

// UsableCapacity is the battery capacity derated for the temperature in °C.
func (v *Vehicle) UsableCapacity(celsius float64) float64 {
	return energy.TemperatureCapacity(v.Capacity, celsius)
}

func (v *Vehicle) Validate() error {
	switch {
	case v.WLTP <= 0:
		return fmt.Errorf("%w: wltp must be positive", ErrInvalid)
	case v.Weight < 0:
		return fmt.Errorf("%w: negative weight", ErrInvalid)
	case v.Capacity <= 0:
		return fmt.Errorf("%w: battery capacity must be positive", ErrInvalid)
	case v.MaxChargingPower <= 0:
		return fmt.Errorf("%w: max charging power must be positive", ErrInvalid)
	}
	return nil
}

// profile is the YAML shape, in human units.
type profile struct {
	Name               string             `yaml:"name"`
	WLTP               float64            `yaml:"wltp_kwh_per_100km"`
	WeightKg           float64            `yaml:"weight_kg"`
	Passengers         int                `yaml:"passengers"`
	BatteryCapacityKWh float64            `yaml:"battery_capacity_kwh"`
	MaxChargingPowerKW float64            `yaml:"max_charging_power_kw"`
	PlugTypes          []charger.PlugType `yaml:"plug_types"`
}

// Decode reads a YAML profile. Unknown keys are rejected.
func Decode(r io.Reader) (*Vehicle, error) {
	var p profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode vehicle: %w", err)
	}

	v := &Vehicle{
		Name:             p.Name,
		WLTP:             p.WLTP,
		Weight:           p.WeightKg + float64(p.Passengers*passengerWeight),
		Capacity:         p.BatteryCapacityKWh * 1e6,
		Plugs:            p.PlugTypes,
		MaxChargingPower: p.MaxChargingPowerKW * 1e6,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads the YAML profile at path.
func Load(path string) (*Vehicle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vehicle: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
