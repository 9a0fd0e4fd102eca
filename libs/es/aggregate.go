// Package es is the event-sourced aggregate engine. An aggregate's state
// is always a pure fold over its stream; commands are validated against
// that state and, when accepted, appended under optimistic concurrency.
package es

import (
	"github.com/erikshafer/crittersupply/libs/messages"
)

// Event is an immutable, typed fact belonging to exactly one stream.
type Event interface {
	EventType() string
}

// Aggregate describes one consistency boundary as a closed set of event
// variants with an explicit fold. There is no reflection-based dispatch:
// Evolve and UnmarshalEvent switch over the boundary's known types.
type Aggregate[S any] struct {
	// Type names the stream kind, e.g. "cart".
	Type string

	// InitialState is the state before any event has been applied.
	InitialState func() S

	// Evolve applies one event to the state. It must be pure: replaying
	// the same events always yields the same state.
	Evolve func(S, Event) S

	// UnmarshalEvent revives a stored event by type tag.
	UnmarshalEvent func(eventType string, payload []byte) (Event, error)

	// MarshalEvent serializes an event's payload.
	MarshalEvent func(Event) ([]byte, error)

	// Integration maps a domain event to the integration messages that
	// must be staged in the same transaction as the append. Nil or an
	// empty result means the event stays inside the boundary.
	Integration func(Event) []messages.Message
}
