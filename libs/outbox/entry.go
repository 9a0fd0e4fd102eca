package outbox

import (
	"time"

	"github.com/erikshafer/crittersupply/libs/messages"
)

// Entry is one integration message staged for publication. It is written
// in the same transaction as the state change that produced it.
type Entry struct {
	AggregateType string
	AggregateID   string
	MessageID     string
	MessageType   string
	Key           string
	Payload       []byte
}

// Record is a staged entry as read back for publication.
type Record struct {
	ID          int64
	MessageID   string
	MessageType string
	Key         string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

// EntryFromMessage wraps msg in an Envelope and stages it.
// The Kafka topic equals the message type; the partition key is the
// correlation key so one stream's messages stay ordered.
func EntryFromMessage(producer, causationID, aggregateType, aggregateID string, msg messages.Message) (Entry, error) {
	env, err := messages.Wrap(producer, causationID, msg)
	if err != nil {
		return Entry{}, err
	}
	payload, err := env.Encode()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		MessageID:     env.ID,
		MessageType:   env.Type,
		Key:           env.CorrelationID,
		Payload:       payload,
	}, nil
}
