package chargergraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/azybler/ev_router/pkg/charger"
	"github.com/azybler/ev_router/pkg/geo"
	"github.com/azybler/ev_router/pkg/routing/routingtest"
	"github.com/azybler/ev_router/pkg/vehicle"
)

// testVehicle uses one mWh per meter; its window is 500 m to 900 m.
func testVehicle() *vehicle.Vehicle {
	return &vehicle.Vehicle{
		Name:             "test",
		WLTP:             1,
		Capacity:         1000,
		Plugs:            []charger.PlugType{charger.Type2},
		MaxChargingPower: 50e6,
	}
}

func plugged(id uint32, loc geo.LatLng, types ...charger.PlugType) charger.Charger {
	return charger.New(id, loc, "op", 22e6, false, []charger.Plug{{Power: 22e6, Types: types}})
}

// 0.005° of latitude is about 556 m, so only neighbours fit the window.
func builderInput() []charger.Charger {
	var raw []charger.Charger
	for i := range 4 {
		raw = append(raw, plugged(uint32(i), geo.LatLng{Lat: 49 + float64(i)*0.005, Lng: 8.4}, charger.Type2))
	}
	return append(raw,
		plugged(4, geo.LatLng{Lat: 49.0025, Lng: 8.4}, charger.DCCHAdeMO),
		plugged(5, geo.LatLng{Lat: 60, Lng: 20}, charger.Type2),
	)
}

func TestBuild(t *testing.T) {
	router := &routingtest.Straight{Unanchorable: []geo.LatLng{{Lat: 60, Lng: 20}}}
	v := testVehicle()
	b, err := NewBuilder(router, v, DefaultBuilderConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	g, err := b.Build(context.Background(), builderInput())
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumChargers(), "CHAdeMO-only and unanchorable chargers dropped")
	assert.Equal(t, 6, g.NumEdges())

	w := b.Window()
	assert.Equal(t, Window{Lower: 500, Upper: 900}, w)
	for _, e := range g.Edges() {
		assert.NotEqual(t, e.Start, e.End)
		assert.True(t, w.Fits(e, v), "edge %d->%d consumes %.0f", e.Start, e.End, e.Consumption(v))
		d := geo.Distance(g.Charger(e.Start).Location, g.Charger(e.End).Location)
		assert.InDelta(t, d/10, e.Weight, 1e-6)
	}
	for i := range uint32(4) {
		assert.Equal(t, i, g.Charger(i).ID)
		assert.Equal(t, g.Charger(i).Location, g.Charger(i).Anchors.Input)
	}
}

func TestBuildWarnsOnDroppedChargers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	router := &routingtest.Straight{Unanchorable: []geo.LatLng{{Lat: 60, Lng: 20}}}
	b, err := NewBuilder(router, testVehicle(), DefaultBuilderConfig(), zap.New(core))
	require.NoError(t, err)

	_, err = b.Build(context.Background(), builderInput())
	require.NoError(t, err)

	dropped := logs.FilterMessage("chargers dropped before clustering").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zap.WarnLevel, dropped[0].Level)
	fields := dropped[0].ContextMap()
	assert.Equal(t, int64(6), fields["input"])
	assert.Equal(t, int64(1), fields["filtered"])
	assert.Equal(t, int64(4), fields["kept"])
	assert.Equal(t, 1, logs.FilterMessage("cannot anchor charger").Len())
}

func TestBuildWithoutPlugFilter(t *testing.T) {
	cfg := DefaultBuilderConfig()
	cfg.FilterPlugTypes = false
	b, err := NewBuilder(&routingtest.Straight{}, testVehicle(), cfg, nil)
	require.NoError(t, err)

	g, err := b.Build(context.Background(), builderInput())
	require.NoError(t, err)
	assert.Equal(t, 6, g.NumChargers())
}

func TestBuildFilter(t *testing.T) {
	raw := builderInput()[:4]
	raw[3] = charger.New(3, raw[3].Location, "op", 11e6, false, []charger.Plug{{Power: 11e6, Types: []charger.PlugType{charger.Type2}}})

	cfg := DefaultBuilderConfig()
	cfg.Filter = charger.ByMinPower(22e6)
	b, err := NewBuilder(&routingtest.Straight{}, testVehicle(), cfg, nil)
	require.NoError(t, err)

	g, err := b.Build(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumChargers())
	assert.Equal(t, 4, g.NumEdges())
	for i := range uint32(3) {
		assert.NotEqual(t, uint32(3), g.Charger(i).ID)
	}

	cfg.Filter = charger.FastOnly()
	b, err = NewBuilder(&routingtest.Straight{}, testVehicle(), cfg, nil)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), raw)
	assert.ErrorIs(t, err, ErrNoChargers)
}

func TestBuildClustersDuplicates(t *testing.T) {
	raw := builderInput()[:4]
	dup := plugged(9, geo.LatLng{Lat: 49.00001, Lng: 8.4}, charger.Type2)
	raw = append(raw, dup)

	b, err := NewBuilder(&routingtest.Straight{}, testVehicle(), DefaultBuilderConfig(), nil)
	require.NoError(t, err)
	g, err := b.Build(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumChargers())
	require.Len(t, g.Set().Members, 1)
	assert.Equal(t, 44e6, g.Set().RepresentativeOf(0).TotalPower)
}

func TestBuildErrors(t *testing.T) {
	router := &routingtest.Straight{Unanchorable: []geo.LatLng{{Lat: 60, Lng: 20}}}
	b, err := NewBuilder(router, testVehicle(), DefaultBuilderConfig(), nil)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), builderInput()[5:])
	assert.ErrorIs(t, err, ErrNoChargers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, builderInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBuilderValidates(t *testing.T) {
	bad := []func(*BuilderConfig){
		func(c *BuilderConfig) { c.LowerLimitPercent = 95 },
		func(c *BuilderConfig) { c.UpperLimitPercent = 120 },
		func(c *BuilderConfig) { c.LowerLimitPercent = -1 },
		func(c *BuilderConfig) { c.Cluster.MinClusterSize = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultBuilderConfig()
		mutate(&cfg)
		_, err := NewBuilder(&routingtest.Straight{}, testVehicle(), cfg, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig, "case %d", i)
	}

	_, err := NewBuilder(&routingtest.Straight{}, &vehicle.Vehicle{}, DefaultBuilderConfig(), nil)
	assert.ErrorIs(t, err, vehicle.ErrInvalid)
}
