package models

import (
	"time"
)

// GeolocationSample is a single fix from the positioning source. Samples are
// ephemeral: forwarded or discarded, never stored.
type GeolocationSample struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationUpdate is the wire form pushed to the care backend and shared with
// the guardian group over MQTT.
type LocationUpdate struct {
	ClientID    string    `json:"client_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	Address     string    `json:"address,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Heartbeat announces group membership so stale guardians can be aged out.
type Heartbeat struct {
	ClientID      string    `json:"client_id"`
	UptimeSeconds uint64    `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}
