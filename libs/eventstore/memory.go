package eventstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/outbox"
)

// MemoryStore is an in-process store with the same append/load semantics
// as PostgresStore, including the optimistic concurrency check and the
// event/outbox atomicity. It backs engine and service tests.
type MemoryStore struct {
	mu      sync.Mutex
	streams map[uuid.UUID][]StoredEvent
	staged  []outbox.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: map[uuid.UUID][]StoredEvent{},
	}
}

func (s *MemoryStore) Load(_ context.Context, streamID uuid.UUID) ([]StoredEvent, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	events := make([]StoredEvent, len(stream))
	copy(events, stream)

	var version uint64
	if len(stream) > 0 {
		version = stream[len(stream)-1].Version
	}
	return events, version, nil
}

func (s *MemoryStore) Append(
	_ context.Context,
	streamID uuid.UUID,
	streamType string,
	expectedVersion uint64,
	events []StorableEvent,
	entries []outbox.Entry,
) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	var current uint64
	if len(stream) > 0 {
		current = stream[len(stream)-1].Version
	}
	if current != expectedVersion {
		return ErrConcurrencyConflict
	}

	for i, ev := range events {
		metadata := ev.MetadataJSON
		if len(metadata) == 0 {
			metadata = []byte("{}")
		}
		stream = append(stream, StoredEvent{
			StreamID:     streamID,
			StreamType:   streamType,
			Version:      expectedVersion + uint64(i) + 1,
			EventType:    ev.EventType,
			OccurredAt:   ev.OccurredAt,
			PayloadJSON:  ev.PayloadJSON,
			MetadataJSON: metadata,
		})
	}
	s.streams[streamID] = stream
	s.staged = append(s.staged, entries...)
	return nil
}

// StagedEntries returns every outbox entry appended so far, in order.
func (s *MemoryStore) StagedEntries() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]outbox.Entry, len(s.staged))
	copy(entries, s.staged)
	return entries
}

// StreamVersion reports the current version of a stream (0 if absent).
func (s *MemoryStore) StreamVersion(streamID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	if len(stream) == 0 {
		return 0
	}
	return stream[len(stream)-1].Version
}
