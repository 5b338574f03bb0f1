package models

import (
	"time"
)

// EntityKind distinguishes the people and places rendered on the map.
type EntityKind string

const (
	EntitySelf     EntityKind = "self"
	EntityChild    EntityKind = "child"
	EntityGuardian EntityKind = "guardian"
	EntityPlace    EntityKind = "place"
)

// EntityLocation is a point attached to a tracked entity. It is replaced
// wholesale on every fetch or push, never mutated field by field.
type EntityLocation struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Address   string    `json:"address,omitempty"`
	UpdatedAt time.Time `json:"last_updated,omitempty"`
}

// TrackedEntity is any person or place shown live on the map: the local
// guardian, a child mirrored from the backend, a nearby guardian, or a
// place extracted from an AI answer.
type TrackedEntity struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"name"`
	Kind        EntityKind     `json:"kind"`
	Location    EntityLocation `json:"location"`
}

// Key identifies an entity inside the marker registry. Exactly one marker
// may exist per key at any time.
func (e TrackedEntity) Key() string {
	return string(e.Kind) + ":" + e.ID
}
