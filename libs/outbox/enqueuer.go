package outbox

import (
	"context"

	"github.com/erikshafer/crittersupply/libs/db"
	"github.com/erikshafer/crittersupply/libs/messages"
)

// Enqueuer stages integration messages that are not derived from an
// aggregate event (pure choreography reactions). Staging is transactional
// so a crash never loses or duplicates the reaction relative to the inbox
// record written by the consumer.
type Enqueuer struct {
	pool     *db.Pool
	repo     *Repository
	producer string
}

func NewEnqueuer(pool *db.Pool, repo *Repository, producer string) *Enqueuer {
	return &Enqueuer{pool: pool, repo: repo, producer: producer}
}

func (e *Enqueuer) Publish(ctx context.Context, causationID string, msgs ...messages.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, msg := range msgs {
		entry, err := EntryFromMessage(e.producer, causationID, "reaction", msg.CorrelationKey(), msg)
		if err != nil {
			return err
		}
		if err := e.repo.Insert(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
