package kafkax

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler processes one inbound integration message. An error matched by
// the Discard predicate discards the message; any other error triggers
// bounded retries and finally the dead-letter topic.
type Handler func(ctx context.Context, msg kafka.Message) error

// Deduper absorbs redeliveries. Record returns false when the message
// id was processed before.
type Deduper interface {
	Record(ctx context.Context, messageID string, messageType string) (bool, error)
	Seen(ctx context.Context, messageID string) (bool, error)
}

// Consumer is the choreography router's transport: it reads a fixed set
// of topics for one boundary, deduplicates, and dispatches to the
// handler. Offsets are committed only after a message is settled
// (dispatched, absorbed as duplicate, or dead-lettered), and the inbox
// record is written only after a successful dispatch, so every effect
// behind the handler must itself be idempotent.
type Consumer struct {
	reader      *kafka.Reader
	dlq         *kafka.Writer
	logger      *slog.Logger
	dedup       Deduper
	handler     Handler
	discard     func(error) bool
	maxAttempts int
	baseBackoff time.Duration
}

type ConsumerConfig struct {
	Brokers     string
	GroupID     string
	Topics      []string
	MaxAttempts int
	BaseBackoff time.Duration

	// Discard reports handler errors that will not heal with time
	// (business rejections). Matching messages are logged and settled
	// without retry or dead-lettering.
	Discard func(error) bool
}

func NewConsumer(logger *slog.Logger, dedup Deduper, cfg ConsumerConfig, handler Handler) *Consumer {
	brokers := SplitBrokers(cfg.Brokers)
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	dlq := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}
	return &Consumer{
		reader:      reader,
		dlq:         dlq,
		logger:      logger,
		dedup:       dedup,
		handler:     handler,
		discard:     cfg.Discard,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()
	defer c.dlq.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}
		if !c.process(ctx, msg) {
			// Not settled: leave the offset alone so the group
			// redelivers after rebalance or restart.
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("offset commit failed", "err", err, "topic", msg.Topic)
		}
	}
}

// process returns true once the message is settled and its offset may be
// committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	msgCtx := ExtractTraceContext(ctx, msg)
	spanCtx, span := otel.Tracer("kafka").Start(msgCtx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := ExtractMessageMeta(msg)

	seen, err := c.dedup.Seen(spanCtx, meta.MessageID)
	if err != nil {
		c.logger.Error("inbox lookup failed", "err", err, "message_id", meta.MessageID)
		span.RecordError(err)
		return false
	}
	if seen {
		c.logger.Info("duplicate message absorbed", "message_id", meta.MessageID, "message_type", meta.MessageType)
		return true
	}

	if err := c.dispatch(spanCtx, msg, meta); err != nil {
		span.RecordError(err)
		return c.deadLetter(spanCtx, msg, err)
	}

	// Recording after dispatch keeps delivery at-least-once: a crash in
	// between reprocesses the message against idempotent handlers.
	if _, err := c.dedup.Record(spanCtx, meta.MessageID, meta.MessageType); err != nil {
		c.logger.Error("inbox record failed", "err", err, "message_id", meta.MessageID)
		span.RecordError(err)
	}
	return true
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message, meta MessageMeta) error {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.handler(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if c.discard != nil && c.discard(lastErr) {
			// A precondition violation will not heal with time.
			c.logger.Warn("message rejected by aggregate, discarding",
				"message_id", meta.MessageID, "message_type", meta.MessageType, "reason", lastErr.Error())
			return nil
		}
		c.logger.Warn("message handling failed, will retry",
			"message_id", meta.MessageID, "message_type", meta.MessageType,
			"attempt", attempt+1, "err", lastErr)
	}
	return lastErr
}

// deadLetter returns true when the message landed on the dead-letter
// topic; a failed publish keeps the offset uncommitted so the original
// is not lost.
func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) bool {
	dead := kafka.Message{
		Topic:   msg.Topic + ".dlq",
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: append(msg.Headers, kafka.Header{Key: "error_reason", Value: []byte(cause.Error())}),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.logger.Error("dead-letter publish failed", "err", err, "topic", dead.Topic)
		return false
	}
	c.logger.Error("message dead-lettered", "topic", dead.Topic, "cause", cause.Error())
	return true
}
