package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/erikshafer/crittersupply/libs/db"
	"github.com/erikshafer/crittersupply/libs/kafkax"
	otelx "github.com/erikshafer/crittersupply/libs/otel"
)

// Relay polls unpublished entries and publishes them to the broker.
// Delivery is at-least-once: a crash between publish and mark-published
// re-publishes on resume, and consumers deduplicate by message id.
type Relay struct {
	pool       *db.Pool
	repo       *Repository
	logger     *slog.Logger
	brokers    []string
	pollEvery  time.Duration
	batchSize  int
	maxBackoff time.Duration
}

type RelayConfig struct {
	Brokers    string
	PollEvery  time.Duration
	BatchSize  int
	MaxBackoff time.Duration
}

func NewRelay(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg RelayConfig) *Relay {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	return &Relay{
		pool:       pool,
		repo:       repo,
		logger:     logger,
		brokers:    brokers,
		pollEvery:  cfg.PollEvery,
		batchSize:  cfg.BatchSize,
		maxBackoff: cfg.MaxBackoff,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if len(r.brokers) == 0 {
		r.logger.Warn("outbox relay disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(r.brokers...),
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	delay := r.pollEvery
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := r.publishBatch(ctx, writer); err != nil {
				r.logger.Error("outbox publish failed", "err", err, "retry_in", delay.String())
				// broker trouble: back off exponentially, resume on success
				delay = min(delay*2, r.maxBackoff)
			} else {
				delay = r.pollEvery
			}
			timer.Reset(delay)
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context, writer *kafka.Writer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := r.repo.FetchUnpublished(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	for _, rcd := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, rcd.Traceparent, rcd.Tracestate)
		msg := kafka.Message{
			Topic: rcd.MessageType,
			Key:   []byte(rcd.Key),
			Value: rcd.Payload,
			Headers: []kafka.Header{
				{Key: kafkax.HeaderMessageID, Value: []byte(rcd.MessageID)},
				{Key: kafkax.HeaderMessageType, Value: []byte(rcd.MessageType)},
			},
		}
		msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
		if err := writer.WriteMessages(ctx, msg); err != nil {
			return err
		}
	}

	ids := make([]int64, 0, len(records))
	for _, rcd := range records {
		ids = append(ids, rcd.ID)
	}
	if err := r.repo.MarkPublished(ctx, tx, ids); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
