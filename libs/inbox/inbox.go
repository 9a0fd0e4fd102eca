package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erikshafer/crittersupply/libs/db"
)

// Repository tracks processed integration message ids so redeliveries
// are absorbed as no-ops.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record marks a message as processed. It returns false when the message
// id was seen before; a duplicate is never an error.
func (r *Repository) Record(ctx context.Context, messageID string, messageType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_messages (message_id, message_type)
		VALUES ($1, $2)
	`, messageID, messageType)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}

// Seen reports whether a message id has already been processed without
// recording anything.
func (r *Repository) Seen(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM inbox_messages WHERE message_id = $1)
	`, messageID).Scan(&exists)
	return exists, err
}
