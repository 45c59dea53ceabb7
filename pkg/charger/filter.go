package charger

// Filter selects chargers. Filters compose with All.
type Filter func(*Charger) bool

// ByPlugTypes keeps chargers offering any of types. No types keeps everything.
func ByPlugTypes(types []PlugType) Filter {
	return func(c *Charger) bool {
		return len(types) == 0 || c.HasAnyPlugType(types)
	}
}

// ByMinPower keeps chargers with at least one plug of power mW or more.
func ByMinPower(power float64) Filter {
	return func(c *Charger) bool {
		return c.MaxPower >= power
	}
}

// FastOnly keeps fast chargers.
func FastOnly() Filter {
	return func(c *Charger) bool { return c.FastCharger }
}

// All keeps chargers accepted by every filter.
func All(filters ...Filter) Filter {
	return func(c *Charger) bool {
		for _, f := range filters {
			if !f(c) {
				return false
			}
		}
		return true
	}
}

// Apply returns the chargers accepted by f, preserving order.
func Apply(chargers []Charger, f Filter) []Charger {
	var out []Charger
	for i := range chargers {
		if f(&chargers[i]) {
			out = append(out, chargers[i])
		}
	}
	return out
}
