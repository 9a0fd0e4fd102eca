package cart

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/es"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/messages"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/catalog"
)

type fakeCatalog struct {
	products map[string]catalog.Product
	err      error
}

func (f *fakeCatalog) Product(_ context.Context, sku string) (catalog.Product, error) {
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	p, ok := f.products[sku]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func newTestService(store es.EventStore) *Service {
	cat := &fakeCatalog{products: map[string]catalog.Product{
		"DOG-FOOD-10KG": {SKU: "DOG-FOOD-10KG", Name: "Dry Dog Food 10kg", Price: 1999, Currency: "USD"},
		"CAT-TREE-XL":   {SKU: "CAT-TREE-XL", Name: "Cat Tree XL", Price: 8999, Currency: "USD"},
		"OLD-LEASH":     {SKU: "OLD-LEASH", Name: "Retired Leash", Price: 499, Currency: "USD", Discontinued: true},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, cat, logger)
}

func TestAddingSameSKUMergesLines(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 2)
	require.NoError(t, err)

	state, err := svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 3)
	require.NoError(t, err)

	require.Len(t, state.Lines, 1)
	assert.Equal(t, 5, state.Lines[0].Quantity)
	assert.Equal(t, int64(1999), state.Lines[0].UnitPrice)
	assert.Equal(t, int64(5*1999), state.Subtotal())
}

func TestAddItemUnknownProductRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.AddItemToCart(ctx, cartID, "NO-SUCH-SKU", 1)
	assert.True(t, es.IsRejection(err))
}

func TestAddItemDiscontinuedProductRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.AddItemToCart(ctx, cartID, "OLD-LEASH", 1)
	assert.True(t, es.IsRejection(err))
}

func TestCatalogOutageIsTransient(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	cat := &fakeCatalog{err: context.DeadlineExceeded}
	svc := NewService(store, cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cartID := uuid.New()

	// Initialize through a working service first.
	_, err := newTestService(store).InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 1)
	require.Error(t, err)
	assert.False(t, es.IsRejection(err))
	assert.True(t, es.IsTransient(err))
}

func TestCheckedOutCartRejectsFurtherMutations(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "CAT-TREE-XL", 1)
	require.NoError(t, err)
	_, err = svc.InitiateCheckout(ctx, cartID)
	require.NoError(t, err)

	versionBefore := store.StreamVersion(cartID)

	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 1)
	assert.True(t, es.IsRejection(err))
	_, err = svc.RemoveItemFromCart(ctx, cartID, "CAT-TREE-XL")
	assert.True(t, es.IsRejection(err))
	_, err = svc.InitiateCheckout(ctx, cartID)
	assert.True(t, es.IsRejection(err))

	assert.Equal(t, versionBefore, store.StreamVersion(cartID), "rejected commands must not append events")
}

func TestInitiateCheckoutEmptyCartRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.InitiateCheckout(ctx, cartID)
	assert.True(t, es.IsRejection(err))
}

func TestInitiateCheckoutStagesIntegrationMessage(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-7", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 2)
	require.NoError(t, err)
	_, err = svc.InitiateCheckout(ctx, cartID)
	require.NoError(t, err)

	entries := store.StagedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, messages.TypeCheckoutInitiated, entries[0].MessageType)
	assert.Equal(t, cartID.String(), entries[0].Key)

	env, err := messages.DecodeEnvelope(entries[0].Payload)
	require.NoError(t, err)
	var initiated messages.CheckoutInitiated
	require.NoError(t, env.DecodePayload(&initiated))

	wantCheckoutID := messages.DeriveStreamID(messages.NamespaceCheckout, cartID.String())
	assert.Equal(t, wantCheckoutID.String(), initiated.CheckoutID)
	assert.Equal(t, "cust-7", initiated.CustomerID)
	require.Len(t, initiated.Lines, 1)
	assert.Equal(t, messages.Line{SKU: "DOG-FOOD-10KG", Quantity: 2, UnitPrice: 1999}, initiated.Lines[0])
}

func TestInitializeCartTwiceRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)

	_, err = svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	assert.True(t, es.IsRejection(err))
}

func TestAbandonedCartCannotCheckout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "CAT-TREE-XL", 1)
	require.NoError(t, err)
	_, err = svc.AbandonCart(ctx, cartID)
	require.NoError(t, err)

	_, err = svc.InitiateCheckout(ctx, cartID)
	assert.True(t, es.IsRejection(err))
}

func TestRemoveAndChangeQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(eventstore.NewMemoryStore())
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 2)
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "CAT-TREE-XL", 1)
	require.NoError(t, err)

	state, err := svc.ChangeItemQuantity(ctx, cartID, "DOG-FOOD-10KG", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Lines[0].Quantity)

	state, err = svc.RemoveItemFromCart(ctx, cartID, "DOG-FOOD-10KG")
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, "CAT-TREE-XL", state.Lines[0].SKU)

	_, err = svc.RemoveItemFromCart(ctx, cartID, "DOG-FOOD-10KG")
	assert.True(t, es.IsRejection(err))

	state, err = svc.ClearCart(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, state.Lines)
	assert.Equal(t, StatusCleared, state.Status)
}

func TestClearedCartIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 1)
	require.NoError(t, err)
	state, err := svc.ClearCart(ctx, cartID)
	require.NoError(t, err)
	require.Equal(t, StatusCleared, state.Status)
	versionAfterClear := store.StreamVersion(cartID)

	_, err = svc.AddItemToCart(ctx, cartID, "CAT-TREE-XL", 1)
	assert.True(t, es.IsRejection(err), "cleared cart must reject new items")

	_, err = svc.InitiateCheckout(ctx, cartID)
	assert.True(t, es.IsRejection(err), "cleared cart must reject checkout")

	_, err = svc.AbandonCart(ctx, cartID)
	assert.True(t, es.IsRejection(err))

	// Clearing again is a no-op, not an error.
	state, err = svc.ClearCart(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, state.Status)
	assert.Equal(t, versionAfterClear, store.StreamVersion(cartID))
}

func TestCartStateRebuildsFromStream(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	svc := newTestService(store)
	cartID := uuid.New()

	_, err := svc.InitializeCart(ctx, cartID, "cust-1", "USD")
	require.NoError(t, err)
	_, err = svc.AddItemToCart(ctx, cartID, "DOG-FOOD-10KG", 3)
	require.NoError(t, err)

	// A second service instance over the same store sees identical state.
	other := newTestService(store)
	state, err := other.Get(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", state.CustomerID)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 3, state.Lines[0].Quantity)
}
