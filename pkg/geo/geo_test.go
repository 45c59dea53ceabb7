package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name             string
		a, b             LatLng
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "Berlin to Munich",
			a:                LatLng{Lat: 52.5200, Lng: 13.4050},
			b:                LatLng{Lat: 48.1351, Lng: 11.5820},
			wantMeters:       504_000,
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			a:    LatLng{Lat: 49.0069, Lng: 8.4037},
			b:    LatLng{Lat: 49.0069, Lng: 8.4037},
		},
		{
			name:             "Short distance (~100m)",
			a:                LatLng{Lat: 49.0000, Lng: 8.4000},
			b:                LatLng{Lat: 49.0009, Lng: 8.4000},
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if tt.wantMeters == 0 {
				assert.Zero(t, got)
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			assert.LessOrEqualf(t, diff, tt.tolerancePercent, "Distance = %f m, want ~%f m", got, tt.wantMeters)
		})
	}
}

func TestEquirectangularDist(t *testing.T) {
	a := LatLng{Lat: 49.0069, Lng: 8.4037}
	b := LatLng{Lat: 49.0150, Lng: 8.4200}

	h := Distance(a, b)
	e := EquirectangularDist(a, b)
	assert.InDelta(t, h, e, h*0.005)
}

func TestPointToSegment(t *testing.T) {
	a := LatLng{Lat: 49.000, Lng: 8.400}
	b := LatLng{Lat: 49.010, Lng: 8.400}

	tests := []struct {
		name      string
		p         LatLng
		a, b      LatLng
		wantRatio float64
		maxDistM  float64
	}{
		{name: "at start", p: a, a: a, b: b, wantRatio: 0, maxDistM: 1},
		{name: "at end", p: b, a: a, b: b, wantRatio: 1, maxDistM: 1},
		{name: "beside midpoint", p: LatLng{Lat: 49.005, Lng: 8.401}, a: a, b: b, wantRatio: 0.5, maxDistM: 100},
		{name: "degenerate segment", p: LatLng{Lat: 49.000, Lng: 8.401}, a: a, b: a, wantRatio: 0, maxDistM: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegment(tt.p, tt.a, tt.b)
			assert.LessOrEqual(t, dist, tt.maxDistM)
			assert.InDelta(t, tt.wantRatio, ratio, 0.05)
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(LatLng{Lat: 49, Lng: 8}))
	assert.ErrorIs(t, Validate(LatLng{Lat: 91, Lng: 8}), ErrOutOfRange)
	assert.ErrorIs(t, Validate(LatLng{Lat: math.NaN(), Lng: 8}), ErrNotFinite)
	assert.ErrorIs(t, Validate(LatLng{Lat: 0, Lng: math.Inf(-1)}), ErrNotFinite)
}

func TestBound(t *testing.T) {
	b := Bound([]LatLng{{Lat: 49.1, Lng: 8.3}, {Lat: 48.9, Lng: 8.5}, {Lat: 49.0, Lng: 8.4}})
	assert.Equal(t, 8.3, b.Min.Lon())
	assert.Equal(t, 48.9, b.Min.Lat())
	assert.Equal(t, 8.5, b.Max.Lon())
	assert.Equal(t, 49.1, b.Max.Lat())

	around := BoundAround(LatLng{Lat: 49, Lng: 8.4}, 1000)
	assert.True(t, around.Contains(LatLng{Lat: 49.005, Lng: 8.4}.Point()))
	assert.False(t, around.Contains(LatLng{Lat: 49.02, Lng: 8.4}.Point()))
}

func BenchmarkDistance(b *testing.B) {
	p, q := LatLng{Lat: 49.0069, Lng: 8.4037}, LatLng{Lat: 48.7758, Lng: 9.1829}
	for b.Loop() {
		Distance(p, q)
	}
}

func BenchmarkEquirectangularDist(b *testing.B) {
	p, q := LatLng{Lat: 49.0069, Lng: 8.4037}, LatLng{Lat: 48.7758, Lng: 9.1829}
	for b.Loop() {
		EquirectangularDist(p, q)
	}
}
