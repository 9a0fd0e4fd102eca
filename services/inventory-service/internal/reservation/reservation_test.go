package reservation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/inventory-service/internal/products"
)

var testLines = []messages.Line{{SKU: "DOG-FOOD-10KG", Quantity: 2, UnitPrice: 1999}}

// fakeStock mimics the hold semantics of the products repository:
// idempotent per order id, with scripted availability.
type fakeStock struct {
	mu          sync.Mutex
	short       map[string]bool // SKU -> insufficient
	held        map[string]bool
	commits     int
	releases    int
	reserveErrs int
}

func newFakeStock() *fakeStock {
	return &fakeStock{short: map[string]bool{}, held: map[string]bool{}}
}

func (f *fakeStock) Reserve(_ context.Context, orderID string, lines []messages.Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[orderID] {
		return nil
	}
	for _, l := range lines {
		if f.short[l.SKU] {
			f.reserveErrs++
			return products.ErrInsufficientStock{SKU: l.SKU}
		}
	}
	f.held[orderID] = true
	return nil
}

func (f *fakeStock) Commit(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[orderID] {
		delete(f.held, orderID)
		f.commits++
	}
	return nil
}

func (f *fakeStock) Release(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[orderID] {
		delete(f.held, orderID)
		f.releases++
	}
	return nil
}

func newTestService(store es.EventStore, stock Stock) *Service {
	return NewService(store, stock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requested(t *testing.T, svc *Service, orderID string) uuid.UUID {
	t.Helper()
	reservationID := messages.DeriveStreamID(messages.NamespaceReservation, orderID)
	_, err := svc.RequestReservation(context.Background(), reservationID, orderID, testLines)
	require.NoError(t, err)
	return reservationID
}

func TestConfirmReservesStockAndEmitsConfirmed(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	state, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, state.Status)
	assert.True(t, stock.held["order-1"])

	entries := store.StagedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, messages.TypeReservationConfirmed, entries[0].MessageType)
}

func TestConfirmWithInsufficientStockFails(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	stock.short["DOG-FOOD-10KG"] = true
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	state, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Contains(t, state.FailReason, "DOG-FOOD-10KG")

	entries := store.StagedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, messages.TypeReservationFailed, entries[0].MessageType)
}

func TestConfirmIdempotent(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	_, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)
	versionAfterFirst := store.StreamVersion(reservationID)

	state, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, state.Status)
	assert.Equal(t, versionAfterFirst, store.StreamVersion(reservationID))
}

func TestCommitLifecycle(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	_, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)

	state, err := svc.CommitReservation(ctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, state.Status)
	assert.Equal(t, 1, stock.commits)

	// Redelivered commit requests change nothing.
	state, err = svc.CommitReservation(ctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, state.Status)
	assert.Equal(t, 1, stock.commits)

	// Releasing a committed reservation is a rule violation.
	_, err = svc.ReleaseReservation(ctx, reservationID, "late failure")
	assert.True(t, es.IsRejection(err))
}

func TestReleaseAfterPaymentFailure(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	_, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)

	state, err := svc.ReleaseReservation(ctx, reservationID, "payment failed: card declined")
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, state.Status)
	assert.Equal(t, 1, stock.releases)

	// Second release is a no-op.
	_, err = svc.ReleaseReservation(ctx, reservationID, "again")
	require.NoError(t, err)
	assert.Equal(t, 1, stock.releases)

	// Commit after release is rejected.
	_, err = svc.CommitReservation(ctx, reservationID)
	assert.True(t, es.IsRejection(err))
}

func TestReleaseOfFailedReservationIsNoop(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	stock := newFakeStock()
	stock.short["DOG-FOOD-10KG"] = true
	svc := newTestService(store, stock)
	reservationID := requested(t, svc, "order-1")

	_, err := svc.ConfirmReservation(ctx, reservationID)
	require.NoError(t, err)

	state, err := svc.ReleaseReservation(ctx, reservationID, "payment failed")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Zero(t, stock.releases)
}

func TestStockOutageIsTransient(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store, failingStock{})
	reservationID := requested(t, svc, "order-1")

	_, err := svc.ConfirmReservation(ctx, reservationID)
	require.Error(t, err)
	assert.True(t, es.IsTransient(err))
}

type failingStock struct{}

func (failingStock) Reserve(context.Context, string, []messages.Line) error {
	return errors.New("db down")
}
func (failingStock) Commit(context.Context, string) error  { return errors.New("db down") }
func (failingStock) Release(context.Context, string) error { return errors.New("db down") }
