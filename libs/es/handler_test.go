package es

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/libs/outbox"
)

// A minimal counting aggregate exercising the engine end to end.

type meter struct {
	ID    string
	Total int
}

type meterOpened struct {
	MeterID string `json:"meter_id"`
}

func (meterOpened) EventType() string { return "MeterOpened" }

type meterTicked struct {
	N int `json:"n"`
}

func (meterTicked) EventType() string { return "MeterTicked" }

func meterAggregate() Aggregate[meter] {
	return Aggregate[meter]{
		Type:         "meter",
		InitialState: func() meter { return meter{} },
		Evolve: func(m meter, event Event) meter {
			switch e := event.(type) {
			case meterOpened:
				m.ID = e.MeterID
			case meterTicked:
				m.Total += e.N
			}
			return m
		},
		UnmarshalEvent: func(eventType string, payload []byte) (Event, error) {
			switch eventType {
			case "MeterOpened":
				var e meterOpened
				return e, json.Unmarshal(payload, &e)
			default:
				var e meterTicked
				return e, json.Unmarshal(payload, &e)
			}
		},
		MarshalEvent: func(e Event) ([]byte, error) { return json.Marshal(e) },
		Integration: func(event Event) []messages.Message {
			if _, ok := event.(meterOpened); ok {
				return []messages.Message{messages.ReservationCommitRequested{OrderID: "meter"}}
			}
			return nil
		},
	}
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newTestHandler(store EventStore) *Handler[meter] {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, meterAggregate(), "test", logger, WithBaseDelay(0))
}

func TestLoadMissingStream(t *testing.T) {
	h := newTestHandler(eventstore.NewMemoryStore())
	_, _, err := h.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartThenExecute(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	h := newTestHandler(store)
	id := uuid.New()

	_, err := h.Start(ctx, id, "Open", func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	})
	require.NoError(t, err)

	state, err := h.Execute(ctx, id, "Tick", func(m meter) ([]Event, error) {
		return []Event{meterTicked{N: 5}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, state.Total)
	assert.Equal(t, uint64(2), store.StreamVersion(id))
}

func TestStartExistingStream(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(eventstore.NewMemoryStore())
	id := uuid.New()

	open := func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	}
	_, err := h.Start(ctx, id, "Open", open)
	require.NoError(t, err)
	_, err = h.Start(ctx, id, "Open", open)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestExecuteReloadsOnConflict(t *testing.T) {
	ctx := context.Background()
	inner := eventstore.NewMemoryStore()
	store := &conflictingStore{EventStore: inner}
	h := newTestHandler(store)
	id := uuid.New()

	_, err := h.Start(ctx, id, "Open", func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	})
	require.NoError(t, err)
	store.conflicts = 2

	decides := 0
	state, err := h.Execute(ctx, id, "Tick", func(m meter) ([]Event, error) {
		decides++
		return []Event{meterTicked{N: 1}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Total)
	assert.Equal(t, 3, decides, "decision reapplied against a fresh fold per conflict")
}

func TestExecuteRejectionNotRetried(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(eventstore.NewMemoryStore())
	id := uuid.New()

	_, err := h.Start(ctx, id, "Open", func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	})
	require.NoError(t, err)

	decides := 0
	_, err = h.Execute(ctx, id, "Tick", func(m meter) ([]Event, error) {
		decides++
		return nil, Reject("Tick", "meter sealed")
	})
	assert.True(t, IsRejection(err))
	assert.Equal(t, 1, decides)
}

func TestIntegrationMessagesStagedWithAppend(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	h := newTestHandler(store)
	id := uuid.New()

	_, err := h.Start(ctx, id, "Open", func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	})
	require.NoError(t, err)

	entries := store.StagedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, messages.TypeReservationCommitRequested, entries[0].MessageType)
	assert.Equal(t, "meter", entries[0].AggregateType)
}

func TestEmptyDecisionAppendsNothing(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	h := newTestHandler(store)
	id := uuid.New()

	_, err := h.Start(ctx, id, "Open", func(m meter) ([]Event, error) {
		return []Event{meterOpened{MeterID: id.String()}}, nil
	})
	require.NoError(t, err)

	_, err = h.Execute(ctx, id, "Tick", func(m meter) ([]Event, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), store.StreamVersion(id))
}

// conflictingStore fails the first n appends with a concurrency conflict.
type conflictingStore struct {
	EventStore
	conflicts int
}

func (s *conflictingStore) Append(ctx context.Context, streamID uuid.UUID, streamType string, expectedVersion uint64, events []eventstore.StorableEvent, entries []outbox.Entry) error {
	if s.conflicts > 0 {
		s.conflicts--
		return eventstore.ErrConcurrencyConflict
	}
	return s.EventStore.Append(ctx, streamID, streamType, expectedVersion, events, entries)
}
