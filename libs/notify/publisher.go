// Package notify is the client side of the customer push channel:
// state-change messages are broadcast to whoever subscribed for a
// customer identity. The channel itself is an external collaborator.
package notify

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "customer:"

type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Push broadcasts payload on the customer's channel. Delivery is
// fire-and-forget: a customer with no open subscription misses it.
func (p *Publisher) Push(ctx context.Context, customerID string, payload []byte) error {
	if customerID == "" {
		return errors.New("customer id required")
	}
	return p.rdb.Publish(ctx, channelPrefix+customerID, payload).Err()
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
