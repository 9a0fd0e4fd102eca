package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storable(eventType string) StorableEvent {
	return StorableEvent{
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		PayloadJSON: []byte(`{}`),
	}
}

func TestAppendAssignsContiguousVersions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	err := store.Append(ctx, id, "cart", 0, []StorableEvent{
		storable("CartInitialized"),
		storable("CartItemAdded"),
	}, nil)
	require.NoError(t, err)
	err = store.Append(ctx, id, "cart", 2, []StorableEvent{storable("CartCheckedOut")}, nil)
	require.NoError(t, err)

	events, version, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Version)
	}
}

func TestAppendAtStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	require.NoError(t, store.Append(ctx, id, "cart", 0, []StorableEvent{storable("CartInitialized")}, nil))

	// Two writers loaded at version 1; only the first append lands.
	require.NoError(t, store.Append(ctx, id, "cart", 1, []StorableEvent{storable("CartItemAdded")}, nil))
	err := store.Append(ctx, id, "cart", 1, []StorableEvent{storable("CartCleared")}, nil)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, uint64(2), store.StreamVersion(id))
}

func TestAppendToNewStreamRequiresVersionZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Append(ctx, uuid.New(), "cart", 3, []StorableEvent{storable("CartInitialized")}, nil)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestEmptyAppendIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	require.NoError(t, store.Append(ctx, id, "cart", 0, nil, nil))
	assert.Equal(t, uint64(0), store.StreamVersion(id))
}

func TestLoadMissingStreamIsEmpty(t *testing.T) {
	store := NewMemoryStore()

	events, version, err := store.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, uint64(0), version)
}

func TestStreamsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.Append(ctx, a, "cart", 0, []StorableEvent{storable("CartInitialized")}, nil))
	require.NoError(t, store.Append(ctx, b, "payment", 0, []StorableEvent{storable("PaymentInitiated")}, nil))

	assert.Equal(t, uint64(1), store.StreamVersion(a))
	assert.Equal(t, uint64(1), store.StreamVersion(b))
}
