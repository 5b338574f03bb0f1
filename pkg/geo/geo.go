// Package geo provides the small amount of spherical geometry the agent
// needs: great-circle distance, bearings, and marker bounding boxes.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Distance returns the great-circle distance between a and b in meters using
// the haversine formula. It is symmetric and zero only for equal points.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// FormatDistance renders a distance for display ("950m", "1.2km").
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// Bounds is a latitude/longitude box grown point by point, mirroring the map
// SDK's LatLngBounds.extend usage.
type Bounds struct {
	empty bool

	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// NewBounds returns an empty box; the first Extend defines it.
func NewBounds() Bounds {
	return Bounds{empty: true}
}

// IsEmpty reports whether no point has been added yet.
func (b Bounds) IsEmpty() bool {
	return b.empty
}

// Extend grows the box to cover p.
func (b Bounds) Extend(p Point) Bounds {
	if b.empty {
		return Bounds{
			MinLat: p.Latitude, MaxLat: p.Latitude,
			MinLng: p.Longitude, MaxLng: p.Longitude,
		}
	}
	b.MinLat = math.Min(b.MinLat, p.Latitude)
	b.MaxLat = math.Max(b.MaxLat, p.Latitude)
	b.MinLng = math.Min(b.MinLng, p.Longitude)
	b.MaxLng = math.Max(b.MaxLng, p.Longitude)
	return b
}

// ExtendBounds grows the box to cover other.
func (b Bounds) ExtendBounds(other Bounds) Bounds {
	if other.empty {
		return b
	}
	b = b.Extend(Point{Latitude: other.MinLat, Longitude: other.MinLng})
	return b.Extend(Point{Latitude: other.MaxLat, Longitude: other.MaxLng})
}

// Contains reports whether p lies inside the box.
func (b Bounds) Contains(p Point) bool {
	if b.empty {
		return false
	}
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{
		Latitude:  (b.MinLat + b.MaxLat) / 2,
		Longitude: (b.MinLng + b.MaxLng) / 2,
	}
}

// Pad expands the box by the given distance in meters on every side. The
// longitude expansion is scaled by the latitude of the box center so the
// padding stays roughly uniform on screen.
func (b Bounds) Pad(meters float64) Bounds {
	if b.empty || meters <= 0 {
		return b
	}

	dLat := meters / 111320.0
	centerLat := b.Center().Latitude * math.Pi / 180
	scale := math.Cos(centerLat)
	if scale < 0.01 {
		scale = 0.01
	}
	dLng := meters / (111320.0 * scale)

	b.MinLat -= dLat
	b.MaxLat += dLat
	b.MinLng -= dLng
	b.MaxLng += dLng
	return b
}
