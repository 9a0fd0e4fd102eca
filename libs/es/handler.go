package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/outbox"
)

// ErrAlreadyExists is returned by Start when the stream was created
// before (or concurrently). Spawn paths absorb it as duplicate delivery.
var ErrAlreadyExists = errors.New("stream already exists")

// EventStore is the engine's view of the log. PostgresStore and
// MemoryStore both satisfy it.
type EventStore interface {
	Load(ctx context.Context, streamID uuid.UUID) ([]eventstore.StoredEvent, uint64, error)
	Append(ctx context.Context, streamID uuid.UUID, streamType string, expectedVersion uint64,
		events []eventstore.StorableEvent, entries []outbox.Entry) error
}

// Decide inspects the current state and returns the events a command
// produces, or a Rejection. It must be pure: no side effects may leak
// from this step.
type Decide[S any] func(S) ([]Event, error)

// Handler runs the load -> decide -> append cycle for one aggregate
// kind. Concurrency conflicts on append trigger reload-and-reapply,
// governed by the retry policy.
type Handler[S any] struct {
	store     EventStore
	agg       Aggregate[S]
	producer  string
	logger    *slog.Logger
	retryOpts []RetryOption
}

func NewHandler[S any](store EventStore, agg Aggregate[S], producer string, logger *slog.Logger, retryOpts ...RetryOption) *Handler[S] {
	return &Handler[S]{
		store:     store,
		agg:       agg,
		producer:  producer,
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// Load folds the stream into its current state. ErrNotFound when the
// stream has no events.
func (h *Handler[S]) Load(ctx context.Context, id uuid.UUID) (S, uint64, error) {
	state, version, count, err := h.fold(ctx, id)
	if err != nil {
		return state, 0, err
	}
	if count == 0 {
		return state, 0, fmt.Errorf("%s %s: %w", h.agg.Type, id, ErrNotFound)
	}
	return state, version, nil
}

// Execute applies a command to an existing stream. On a concurrency
// conflict the state is reloaded and the decision reapplied; rejections
// return immediately and are never retried.
func (h *Handler[S]) Execute(ctx context.Context, id uuid.UUID, command string, decide Decide[S]) (S, error) {
	var result S
	err := Retry(ctx, func(ctx context.Context) error {
		state, version, count, err := h.fold(ctx, id)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%s %s: %w", h.agg.Type, id, ErrNotFound)
		}
		result, err = h.appendDecision(ctx, id, version, state, decide)
		return err
	}, h.retryOpts...)
	if err != nil && errors.Is(err, eventstore.ErrConcurrencyConflict) {
		h.logger.Warn("command exhausted concurrency retries",
			"stream_type", h.agg.Type, "stream_id", id, "command", command)
	}
	return result, err
}

// Start creates a stream: the decision runs against the initial state
// and the batch is appended at version 0. Losing the creation race (or
// finding the stream already present) returns ErrAlreadyExists.
func (h *Handler[S]) Start(ctx context.Context, id uuid.UUID, command string, decide Decide[S]) (S, error) {
	state, _, count, err := h.fold(ctx, id)
	if err != nil {
		return state, err
	}
	if count > 0 {
		return state, fmt.Errorf("%s %s: %w", h.agg.Type, id, ErrAlreadyExists)
	}

	result, err := h.appendDecision(ctx, id, 0, state, decide)
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		h.logger.Info("lost stream creation race, treating as duplicate",
			"stream_type", h.agg.Type, "stream_id", id, "command", command)
		return result, fmt.Errorf("%s %s: %w", h.agg.Type, id, ErrAlreadyExists)
	}
	return result, err
}

func (h *Handler[S]) fold(ctx context.Context, id uuid.UUID) (S, uint64, int, error) {
	state := h.agg.InitialState()

	stored, version, err := h.store.Load(ctx, id)
	if err != nil {
		return state, 0, 0, err
	}
	for _, se := range stored {
		event, err := h.agg.UnmarshalEvent(se.EventType, se.PayloadJSON)
		if err != nil {
			return state, 0, 0, fmt.Errorf("replay %s %s at version %d: %w", h.agg.Type, id, se.Version, err)
		}
		state = h.agg.Evolve(state, event)
	}
	return state, version, len(stored), nil
}

func (h *Handler[S]) appendDecision(ctx context.Context, id uuid.UUID, version uint64, state S, decide Decide[S]) (S, error) {
	events, err := decide(state)
	if err != nil {
		return state, err
	}
	if len(events) == 0 {
		return state, nil
	}

	storables := make([]eventstore.StorableEvent, 0, len(events))
	var entries []outbox.Entry
	now := time.Now().UTC()
	for _, event := range events {
		payload, err := h.agg.MarshalEvent(event)
		if err != nil {
			return state, fmt.Errorf("marshal %s: %w", event.EventType(), err)
		}
		storables = append(storables, eventstore.StorableEvent{
			EventType:   event.EventType(),
			OccurredAt:  now,
			PayloadJSON: payload,
		})

		if h.agg.Integration == nil {
			continue
		}
		for _, msg := range h.agg.Integration(event) {
			entry, err := outbox.EntryFromMessage(h.producer, "", h.agg.Type, id.String(), msg)
			if err != nil {
				return state, err
			}
			entries = append(entries, entry)
		}
	}

	if err := h.store.Append(ctx, id, h.agg.Type, version, storables, entries); err != nil {
		return state, err
	}

	for _, event := range events {
		state = h.agg.Evolve(state, event)
	}
	return state, nil
}
