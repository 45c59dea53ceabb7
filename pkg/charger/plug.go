package charger

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownPlugType is returned for connector names outside the register's vocabulary.
var ErrUnknownPlugType = errors.New("unknown plug type")

// PlugType is a connector type as named in the BNetzA charger register.
type PlugType uint8

const (
	ACCEE3Pole PlugType = iota
	ACCEE5Pole
	ACType2Coupler
	ACSchuko
	ACType2Socket
	DCCHAdeMO
	DCCombo
	DCTeslaType2
	Type1Socket
	Tesla
	Type2
)

var plugTypeNames = [...]string{
	ACCEE3Pole:     "AC CEE 3 polig",
	ACCEE5Pole:     "AC CEE 5 polig",
	ACType2Coupler: "AC Kupplung Typ 2",
	ACSchuko:       "AC Schuko",
	ACType2Socket:  "AC Steckdose Typ 2",
	DCCHAdeMO:      "DC CHAdeMO",
	DCCombo:        "DC Kupplung Combo",
	DCTeslaType2:   "DC Kupplung Tesla Typ 2",
	Type1Socket:    "Steckdose Typ 1",
	Tesla:          "Tesla",
	Type2:          "Typ 2",
}

// AllPlugTypes lists every known connector type in declaration order.
func AllPlugTypes() []PlugType {
	types := make([]PlugType, len(plugTypeNames))
	for i := range types {
		types[i] = PlugType(i)
	}
	return types
}

func (t PlugType) String() string {
	if int(t) < len(plugTypeNames) {
		return plugTypeNames[t]
	}
	return fmt.Sprintf("PlugType(%d)", t)
}

// ParsePlugType maps a register connector name to its PlugType. Surrounding
// whitespace is ignored.
func ParsePlugType(name string) (PlugType, error) {
	name = strings.TrimSpace(name)
	for i, n := range plugTypeNames {
		if n == name {
			return PlugType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPlugType, name)
}

// MarshalText encodes the type by its register name; JSON and YAML use it.
func (t PlugType) MarshalText() ([]byte, error) {
	if int(t) >= len(plugTypeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlugType, t)
	}
	return []byte(plugTypeNames[t]), nil
}

func (t *PlugType) UnmarshalText(text []byte) error {
	parsed, err := ParsePlugType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Plug is one charging point: its power and the connectors it offers.
type Plug struct {
	Power float64    `json:"power"` // mW
	Types []PlugType `json:"types"`
}

// Compare orders plugs by power, then by connector list.
func (p Plug) Compare(o Plug) int {
	if c := cmp.Compare(p.Power, o.Power); c != 0 {
		return c
	}
	return slices.Compare(p.Types, o.Types)
}

// Equal reports whether p and o have the same power and connector list.
func (p Plug) Equal(o Plug) bool { return p.Compare(o) == 0 }

// NormalizePlugs returns a sorted copy of plugs without duplicates.
func NormalizePlugs(plugs []Plug) []Plug {
	out := slices.Clone(plugs)
	slices.SortFunc(out, Plug.Compare)
	return slices.CompactFunc(out, Plug.Equal)
}
