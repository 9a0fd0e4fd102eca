package eventstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erikshafer/crittersupply/libs/db"
	"github.com/erikshafer/crittersupply/libs/outbox"
)

const (
	defaultEventTableName = "events"
	dialectPostgres       = "postgres"
	pgUniqueViolation     = "23505"
)

// PostgresStore persists streams in a single events table with a
// UNIQUE(stream_id, version) constraint. Appends insert the batch at
// expectedVersion+1..+n; a unique violation means another writer won the
// race and surfaces as ErrConcurrencyConflict.
//
// Outbox entries are written by the same transaction as the events, so
// no event is ever persisted without its outgoing messages (and vice
// versa) even though no distributed transaction is involved.
type PostgresStore struct {
	pool      *db.Pool
	outbox    *outbox.Repository
	tableName string
	logger    *slog.Logger
}

type PostgresOption func(*PostgresStore)

func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.tableName = name
		}
	}
}

func NewPostgresStore(pool *db.Pool, outboxRepo *outbox.Repository, logger *slog.Logger, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:      pool,
		outbox:    outboxRepo,
		tableName: defaultEventTableName,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stream's events in version order and its current
// version. A stream with no events yields an empty slice and version 0.
func (s *PostgresStore) Load(ctx context.Context, streamID uuid.UUID) ([]StoredEvent, uint64, error) {
	query, args, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select("stream_id", "stream_type", "version", "event_type", "payload", "metadata", "occurred_at").
		Where(goqu.C("stream_id").Eq(streamID.String())).
		Order(goqu.C("version").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build stream select: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var events []StoredEvent
	var version uint64
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.StreamID, &ev.StreamType, &ev.Version, &ev.EventType, &ev.PayloadJSON, &ev.MetadataJSON, &ev.OccurredAt); err != nil {
			return nil, 0, fmt.Errorf("scan stream row: %w", err)
		}
		version = ev.Version
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return events, version, nil
}

// Append writes the batch atomically together with its outbox entries.
// The stream version after a successful append is expectedVersion plus
// the batch size; no gaps, no reordering.
func (s *PostgresStore) Append(
	ctx context.Context,
	streamID uuid.UUID,
	streamType string,
	expectedVersion uint64,
	events []StorableEvent,
	entries []outbox.Entry,
) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows := make([][]any, 0, len(events))
	for i, ev := range events {
		metadata := ev.MetadataJSON
		if len(metadata) == 0 {
			metadata = []byte("{}")
		}
		rows = append(rows, []any{
			streamID.String(),
			streamType,
			expectedVersion + uint64(i) + 1,
			ev.EventType,
			ev.PayloadJSON,
			metadata,
			ev.OccurredAt,
		})
	}

	insert := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Cols("stream_id", "stream_type", "version", "event_type", "payload", "metadata", "occurred_at").
		Prepared(true)
	for _, row := range rows {
		insert = insert.Vals(row)
	}
	query, args, err := insert.ToSQL()
	if err != nil {
		return fmt.Errorf("build append insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			s.logger.Info("append lost optimistic concurrency race",
				"stream_id", streamID,
				"stream_type", streamType,
				"expected_version", expectedVersion,
			)
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("append to stream %s: %w", streamID, err)
	}

	for _, entry := range entries {
		if err := s.outbox.Insert(ctx, tx, entry); err != nil {
			return fmt.Errorf("stage outbox entry %s: %w", entry.MessageID, err)
		}
	}

	return tx.Commit(ctx)
}
