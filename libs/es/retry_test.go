package es

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikshafer/crittersupply/libs/eventstore"
)

func TestRetryTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return eventstore.ErrConcurrencyConflict
		}
		return nil
	}, WithBaseDelay(0))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryRejectionFailsFast(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		return Reject("AddItemToCart", "cart already checked out")
	}, WithBaseDelay(0))
	assert.True(t, IsRejection(err))
	assert.Equal(t, 1, calls, "rejections must never be retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		return eventstore.ErrConcurrencyConflict
	}, WithBaseDelay(0), WithMaxAttempts(4))
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.Equal(t, 4, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, func(context.Context) error {
		calls++
		cancel()
		return eventstore.ErrConcurrencyConflict
	}, WithBaseDelay(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryNonRetriableExternalFailsFast(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		return External("payment gateway", errors.New("card declined"), false)
	}, WithBaseDelay(0))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriableExternal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return External("catalog", errors.New("timeout"), true)
		}
		return nil
	}, WithBaseDelay(0))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
