package chargergraph

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/logger"
	"github.com/azybler/ev_router/pkg/routing"
	"github.com/azybler/ev_router/pkg/vehicle"
)

var (
	// ErrInvalidConfig is returned for inconsistent builder settings.
	ErrInvalidConfig = errors.New("invalid charger graph config")
	// ErrNoChargers is returned when nothing survives parsing and anchoring.
	ErrNoChargers = errors.New("no routable chargers")
)

// BuilderConfig controls the offline charger graph build.
type BuilderConfig struct {
	// Edge window as percent of the vehicle's base capacity.
	LowerLimitPercent float64
	UpperLimitPercent float64
	// FilterPlugTypes drops chargers sharing no connector with the vehicle.
	FilterPlugTypes bool
	// Filter drops further chargers before anchoring when set.
	Filter charger.Filter
	// MaxUnreachableFraction of charger pairs the road router may fail on
	// before the build warns.
	MaxUnreachableFraction float64
	Cluster                charger.ClusterConfig
}

// DefaultBuilderConfig keeps edges using 50 % to 90 % of the battery.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		LowerLimitPercent:      50,
		UpperLimitPercent:      90,
		FilterPlugTypes:        true,
		MaxUnreachableFraction: 0.05,
		Cluster:                charger.DefaultClusterConfig(),
	}
}

func (c BuilderConfig) validate() error {
	switch {
	case c.LowerLimitPercent < 0 || c.UpperLimitPercent > 100:
		return fmt.Errorf("%w: limits must lie within 0..100 percent", ErrInvalidConfig)
	case c.LowerLimitPercent >= c.UpperLimitPercent:
		return fmt.Errorf("%w: lower limit %.1f%% not below upper limit %.1f%%", ErrInvalidConfig, c.LowerLimitPercent, c.UpperLimitPercent)
	case c.Cluster.Epsilon < 0 || c.Cluster.MinClusterSize < 1:
		return fmt.Errorf("%w: bad cluster parameters", ErrInvalidConfig)
	}
	return nil
}

// Builder produces the charger graph of one vehicle profile.
type Builder struct {
	router  routing.Router
	vehicle *vehicle.Vehicle
	cfg     BuilderConfig
	logger  *zap.Logger
}

// NewBuilder validates cfg against v.
func NewBuilder(r routing.Router, v *vehicle.Vehicle, cfg BuilderConfig, log *zap.Logger) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &Builder{router: r, vehicle: v, cfg: cfg, logger: logger.OrNop(log)}, nil
}

// Window is the absolute edge window in mWh.
func (b *Builder) Window() Window {
	return Window{
		Lower: b.vehicle.Capacity * b.cfg.LowerLimitPercent / 100,
		Upper: b.vehicle.Capacity * b.cfg.UpperLimitPercent / 100,
	}
}

// ParseRegister reads a BNetzA register with plug power capped at the
// vehicle's max charging power.
func (b *Builder) ParseRegister(r io.Reader) ([]charger.Charger, error) {
	opts := charger.CSVOptions{MaxChargingPower: b.vehicle.MaxChargingPower, Logger: b.logger}
	if b.cfg.FilterPlugTypes {
		opts.PlugTypes = b.vehicle.Plugs
	}
	return charger.ParseBNetzA(r, opts)
}

// Build anchors, clusters and renumbers raw, then keeps every ordered
// charger pair whose road connection fits the edge window.
func (b *Builder) Build(ctx context.Context, raw []charger.Charger) (*Graph, error) {
	log := b.logger

	kept := charger.Apply(raw, b.filter())
	anchored := make([]charger.Charger, 0, len(kept))
	for _, c := range kept {
		if err := c.Validate(); err != nil {
			log.Warn("skipping charger", zap.Error(err))
			continue
		}
		pair, err := b.router.Anchor(ctx, c.Location)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("cannot anchor charger",
				zap.Uint32("id", c.ID),
				zap.Stringer("location", c.Location),
				zap.Error(err),
			)
			continue
		}
		c.Anchors = pair
		anchored = append(anchored, c)
	}
	if len(raw) != len(anchored) {
		log.Warn("chargers dropped before clustering",
			zap.Int("input", len(raw)),
			zap.Int("filtered", len(raw)-len(kept)),
			zap.Int("kept", len(anchored)),
		)
	}
	if len(anchored) == 0 {
		return nil, ErrNoChargers
	}

	set, _, _ := Renumber(charger.Cluster(charger.Set{Chargers: anchored}, b.cfg.Cluster), nil)
	log.Info("clustered chargers",
		zap.Int("raw", len(anchored)),
		zap.Int("routable", set.Len()),
		zap.Int("absorbed", len(set.Members)),
	)

	edges, err := b.edges(ctx, set.Chargers)
	if err != nil {
		return nil, err
	}
	return New(set, edges)
}

// filter combines the plug filter with cfg.Filter.
func (b *Builder) filter() charger.Filter {
	var fs []charger.Filter
	if b.cfg.FilterPlugTypes {
		fs = append(fs, charger.ByPlugTypes(b.vehicle.Plugs))
	}
	if b.cfg.Filter != nil {
		fs = append(fs, b.cfg.Filter)
	}
	return charger.All(fs...)
}

func (b *Builder) edges(ctx context.Context, chargers []charger.Charger) ([]Edge, error) {
	anchors := make([]routing.AnchorPair, len(chargers))
	for i := range chargers {
		anchors[i] = chargers[i].Anchors
	}
	m, err := b.router.Table(ctx, anchors, anchors)
	if err != nil {
		return nil, fmt.Errorf("charger cost matrix: %w", err)
	}

	w := b.Window()
	var edges []Edge
	var unreachable, outside int
	for i := range chargers {
		for j := range chargers {
			if i == j {
				continue
			}
			c := m.At(i, j)
			if !c.Reachable {
				unreachable++
				continue
			}
			e := Edge{
				Start:            chargers[i].ID,
				End:              chargers[j].ID,
				Weight:           c.Duration,
				DrivingFactor:    c.DrivingFactor,
				ResistanceFactor: c.ResistanceFactor,
			}
			if !w.Fits(e, b.vehicle) {
				outside++
				continue
			}
			edges = append(edges, e)
		}
	}

	pairs := len(chargers) * (len(chargers) - 1)
	if pairs > 0 && float64(unreachable) > float64(pairs)*b.cfg.MaxUnreachableFraction {
		b.logger.Warn("many charger pairs unreachable",
			zap.Int("unreachable", unreachable),
			zap.Int("pairs", pairs),
		)
	}
	b.logger.Info("built charger edges",
		zap.Int("edges", len(edges)),
		zap.Int("outside_window", outside),
		zap.Float64("lower_mwh", w.Lower),
		zap.Float64("upper_mwh", w.Upper),
	)
	return edges, nil
}
