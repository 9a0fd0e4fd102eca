package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderMessageID   = "message_id"
	HeaderMessageType = "message_type"
)

// MessageMeta is the canonical metadata carried on broker messages
// across boundaries. Consumers deduplicate by MessageID.
type MessageMeta struct {
	MessageID   string
	MessageType string
}

func ExtractMessageMeta(msg kafka.Message) MessageMeta {
	id := HeaderValue(msg.Headers, HeaderMessageID)
	messageType := HeaderValue(msg.Headers, HeaderMessageType)
	if id == "" {
		id = string(msg.Key)
	}
	if messageType == "" {
		messageType = msg.Topic
	}
	return MessageMeta{MessageID: id, MessageType: messageType}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
