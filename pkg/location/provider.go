// Package location supplies geolocation fixes from pluggable positioning
// sources: a serial NMEA GPS sensor or the Google Geolocation API.
package location

import (
	"context"
	"errors"
	"time"
)

// Sample is a single geolocation fix.
type Sample struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// ErrPermissionDenied is returned when the positioning source refuses
// access. Callers halt tracking on it; transient errors never surface here.
var ErrPermissionDenied = errors.New("location permission denied")

// Provider streams fixes from a positioning source.
type Provider interface {
	// Watch delivers fixes to fn until ctx is cancelled. It blocks for the
	// lifetime of the watch and returns nil on cancellation. Transient
	// acquisition errors are absorbed (the watch self-recovers on the next
	// fix); only fatal conditions such as ErrPermissionDenied end the
	// watch early.
	Watch(ctx context.Context, fn func(Sample)) error

	Close() error
}
