package models

import (
	"time"
)

// MessageKind classifies transcript entries.
type MessageKind string

const (
	MessageUser     MessageKind = "user"
	MessageAI       MessageKind = "ai"
	MessageAIError  MessageKind = "ai_error"
	MessageLocation MessageKind = "location"
)

// Urgency levels reported by the AI coordinator.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ChatMessage is one entry of the chat transcript.
type ChatMessage struct {
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content"`
	Urgency   string      `json:"urgency,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatResponse is the AI coordinator reply. The deployed service has answered
// under three different keys over time, so all are accepted.
type ChatResponse struct {
	Message            string  `json:"message,omitempty"`
	Response           string  `json:"response,omitempty"`
	CoordinationResult string  `json:"coordination_result,omitempty"`
	Places             []Place `json:"places,omitempty"`
	Urgency            string  `json:"urgency,omitempty"`
}

// Text returns the answer body regardless of which key carried it.
func (r ChatResponse) Text() string {
	switch {
	case r.Message != "":
		return r.Message
	case r.Response != "":
		return r.Response
	default:
		return r.CoordinationResult
	}
}

// MapClickEvent crosses the bridge from the map to the chat panel when the
// user taps a coordinate.
type MapClickEvent struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}
