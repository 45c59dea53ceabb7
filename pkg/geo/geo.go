package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const earthRadiusMeters = 6_371_000.0

// degToMeters converts degree-scaled equirectangular distances to meters.
const degToMeters = math.Pi / 180 * earthRadiusMeters

var (
	ErrNotFinite  = errors.New("coordinates must be finite numbers")
	ErrOutOfRange = errors.New("coordinates out of range")
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Point converts to an orb point (lon, lat order).
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// FromPoint converts an orb point back to a LatLng.
func FromPoint(pt orb.Point) LatLng {
	return LatLng{Lat: pt.Lat(), Lng: pt.Lon()}
}

// Validate reports whether p is a usable coordinate.
func Validate(p LatLng) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrNotFinite
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrOutOfRange
	}
	return nil
}

// Distance returns the great-circle distance in meters.
func Distance(a, b LatLng) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// EquirectangularDist returns an approximate distance in meters.
// Good enough for ranking candidates that are a few kilometers apart.
func EquirectangularDist(a, b LatLng) float64 {
	x := (b.Lng - a.Lng) * math.Cos((a.Lat+b.Lat)/2*math.Pi/180) * math.Pi / 180
	y := (b.Lat - a.Lat) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// PointToSegment computes the distance in meters from p to segment ab and the
// projection ratio along ab, clamped to [0,1].
func PointToSegment(p, a, b LatLng) (dist float64, ratio float64) {
	cosLat := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)

	ax, ay := a.Lng*cosLat, a.Lat
	bx, by := b.Lng*cosLat, b.Lat
	px, py := p.Lng*cosLat, p.Lat

	// Compare unprojected coordinates: cosLat noise can make equal points differ.
	if a == b {
		ex, ey := px-ax, py-ay
		return math.Sqrt(ex*ex+ey*ey) * degToMeters, 0
	}

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}

	ex := px - (ax + t*dx)
	ey := py - (ay + t*dy)
	return math.Sqrt(ex*ex+ey*ey) * degToMeters, t
}

// Interpolate returns the point at ratio along ab.
func Interpolate(a, b LatLng, ratio float64) LatLng {
	return LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*ratio,
		Lng: a.Lng + (b.Lng-a.Lng)*ratio,
	}
}

// BoundAround returns a box that contains every point within radius meters of p.
func BoundAround(p LatLng, radius float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(p.Point(), radius)
}

// Bound returns the bounding box of points.
func Bound(points []LatLng) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: points[0].Point(), Max: points[0].Point()}
	for _, p := range points[1:] {
		b = b.Extend(p.Point())
	}
	return b
}

// LineString converts a coordinate list to an orb line string.
func LineString(points []LatLng) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Point()
	}
	return ls
}
