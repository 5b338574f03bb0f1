// Package mapview abstracts the map rendering surface behind an explicit
// resource with an owner and a lifecycle. Only the map sync service mutates
// marker state; everything else goes through the event bridge.
package mapview

import (
	"errors"
)

// IconRole selects the visual treatment of a marker.
type IconRole string

const (
	IconSelf      IconRole = "self"
	IconChild     IconRole = "child"
	IconGuardian  IconRole = "guardian"
	IconPlace     IconRole = "place"
	IconIndicator IconRole = "indicator"
)

// ErrDisposed is returned by operations on a map whose owner already
// released it.
var ErrDisposed = errors.New("map has been disposed")

// LatLng is a coordinate in the map's frame.
type LatLng struct {
	Lat float64
	Lng float64
}

// MarkerOptions describes a marker at creation time. Markers are never
// mutated afterwards; a change is remove-then-recreate.
type MarkerOptions struct {
	Position LatLng
	Title    string
	Role     IconRole
	InfoText string
}

// Marker is a live handle to a rendered marker.
type Marker interface {
	ID() string
	Position() LatLng
	Role() IconRole
}

// Viewport is the region the map is asked to show.
type Viewport struct {
	SouthWest LatLng
	NorthEast LatLng
}

// Map is the rendering surface. Implementations must be safe for use from
// multiple goroutines: location fixes, MQTT callbacks and chat responses all
// end up here.
type Map interface {
	AddMarker(opts MarkerOptions) (Marker, error)
	RemoveMarker(m Marker) error

	// FitBounds instructs the map to show the given region.
	FitBounds(v Viewport) error

	// OnClick registers a map-level click listener and returns its cancel
	// func. A single listener serves all markers and open ground alike.
	OnClick(fn func(LatLng)) (func(), error)

	// Dispose releases the surface. Further calls fail with ErrDisposed.
	Dispose()
}
