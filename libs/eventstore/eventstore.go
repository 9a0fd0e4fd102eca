// Package eventstore is the append-only, per-stream, version-ordered
// event log backing every aggregate. It is the single source of truth:
// state is always rebuilt by folding a stream, never read from a table.
package eventstore

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrConcurrencyConflict signals an optimistic concurrency failure:
// the stream moved past the expected version between load and append.
// It is transient; callers reload state and reapply per the retry policy.
var ErrConcurrencyConflict = errors.New("concurrency conflict: stream version changed since load")

// StorableEvent is the scalar DTO appended to a stream. It keeps the
// store agnostic of how domain events are modeled in each boundary.
type StorableEvent struct {
	EventType    string
	OccurredAt   time.Time
	PayloadJSON  []byte
	MetadataJSON []byte
}

// StoredEvent is one fact read back from a stream, in version order.
type StoredEvent struct {
	StreamID     uuid.UUID
	StreamType   string
	Version      uint64
	EventType    string
	OccurredAt   time.Time
	PayloadJSON  []byte
	MetadataJSON []byte
}
