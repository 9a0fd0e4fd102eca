package messages

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is an integration message payload crossing a boundary.
// The catalog evolves additively only; consumers ignore unknown fields.
type Message interface {
	MessageType() string
	CorrelationKey() string
}

// Envelope is the wire format published to the broker. Payload is the
// serialized Message; everything else is routing and audit metadata.
type Envelope struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	CorrelationID string              `json:"correlation_id"`
	CausationID   string              `json:"causation_id,omitempty"`
	Producer      string              `json:"producer"`
	OccurredAt    time.Time           `json:"occurred_at"`
	Payload       jsoniter.RawMessage `json:"payload"`
}

// Wrap builds an Envelope around msg with a fresh message id.
func Wrap(producer, causationID string, msg Message) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msg.MessageType(), err)
	}
	return Envelope{
		ID:            uuid.NewString(),
		Type:          msg.MessageType(),
		CorrelationID: msg.CorrelationKey(),
		CausationID:   causationID,
		Producer:      producer,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses the broker message body. Unknown envelope fields
// are ignored so older consumers keep working after additive changes.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
