package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"

	otelx "github.com/erikshafer/crittersupply/libs/otel"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert stages an entry inside the caller's transaction. The current
// trace context is persisted so publication continues the trace.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, entry Entry) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_messages (aggregate_type, aggregate_id, message_id, message_type, key, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.AggregateType, entry.AggregateID, entry.MessageID, entry.MessageType, entry.Key, entry.Payload, traceparent, tracestate)
	return err
}

func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, message_id, message_type, key, payload, traceparent, tracestate, created_at
		FROM outbox_messages
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.MessageID, &rcd.MessageType, &rcd.Key, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_messages
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
