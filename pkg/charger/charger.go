// Package charger models charging stations: plugs, the BNetzA register
// import, density-based clustering of duplicates and JSON persistence.
package charger

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing"
)

var (
	// ErrNoPlugs is returned for a charger without any plug.
	ErrNoPlugs = errors.New("charger has no plugs")
	// ErrInvalidPower is returned when a charger's plug power is not positive.
	ErrInvalidPower = errors.New("charger power must be positive")
)

// ClusterID is a DBSCAN cluster assignment. Non-negative values are cluster
// indices.
type ClusterID int32

const (
	Unclassified ClusterID = -1
	Noise        ClusterID = -2
)

// NoRepresentative is the Representative of a charger that was not absorbed
// into a cluster.
const NoRepresentative = -1

// Charger is one routable charging location.
type Charger struct {
	ID          uint32             `json:"id"`
	Location    geo.LatLng         `json:"location"`
	Anchors     routing.AnchorPair `json:"anchors"`
	Operator    string             `json:"operator"`
	TotalPower  float64            `json:"total_power"` // mW
	Plugs       []Plug             `json:"plugs"`
	MinPower    float64            `json:"min_power"` // mW
	MaxPower    float64            `json:"max_power"` // mW, the rate used for charging times
	FastCharger bool               `json:"fast_charger"`
	Cluster     ClusterID          `json:"cluster"`

	// Arena links, see Set.
	Representative int   `json:"-"`
	Members        []int `json:"-"`
}

// New builds an unclustered charger. Plugs are sorted and the power bounds
// derived from them.
func New(id uint32, loc geo.LatLng, operator string, totalPower float64, fast bool, plugs []Plug) Charger {
	c := Charger{
		ID:             id,
		Location:       loc,
		Operator:       strings.TrimSpace(operator),
		TotalPower:     totalPower,
		FastCharger:    fast,
		Plugs:          slices.SortedFunc(slices.Values(plugs), Plug.Compare),
		Cluster:        Unclassified,
		Representative: NoRepresentative,
	}
	c.recomputePower()
	return c
}

func (c *Charger) recomputePower() {
	c.MinPower, c.MaxPower = 0, 0
	for i, p := range c.Plugs {
		if i == 0 || p.Power < c.MinPower {
			c.MinPower = p.Power
		}
		if p.Power > c.MaxPower {
			c.MaxPower = p.Power
		}
	}
}

// Validate checks the plug invariants of a routable charger.
func (c *Charger) Validate() error {
	if len(c.Plugs) == 0 {
		return fmt.Errorf("charger %d: %w", c.ID, ErrNoPlugs)
	}
	if c.MinPower <= 0 || c.MaxPower <= 0 {
		return fmt.Errorf("charger %d: %w", c.ID, ErrInvalidPower)
	}
	return nil
}

// HasPlugType reports whether any plug offers connector t.
func (c *Charger) HasPlugType(t PlugType) bool {
	for _, p := range c.Plugs {
		if slices.Contains(p.Types, t) {
			return true
		}
	}
	return false
}

// HasAnyPlugType reports whether any plug offers one of types.
func (c *Charger) HasAnyPlugType(types []PlugType) bool {
	for _, t := range types {
		if c.HasPlugType(t) {
			return true
		}
	}
	return false
}

// IsCluster reports whether c represents absorbed members.
func (c *Charger) IsCluster() bool { return len(c.Members) > 0 }

// ClusterSize is the number of absorbed members.
func (c *Charger) ClusterSize() int { return len(c.Members) }
