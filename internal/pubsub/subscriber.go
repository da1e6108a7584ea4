package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Subscription delivers the raw payloads published on one channel.
type Subscription struct {
	Messages <-chan string
	close    func() error
}

// NewSubscription wraps a message channel and the func that ends it.
func NewSubscription(messages <-chan string, closeFn func() error) *Subscription {
	return &Subscription{Messages: messages, close: closeFn}
}

// Close stops delivery. Messages is closed once the feed has drained.
func (s *Subscription) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// RedisSubscriber opens Redis Pub/Sub subscriptions.
type RedisSubscriber struct {
	rdb *redis.Client
}

// NewRedisSubscriber creates a RedisSubscriber.
func NewRedisSubscriber(rdb *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{rdb: rdb}
}

// Subscribe returns once Redis has confirmed the subscription, so every
// message published after it returns is delivered.
func (s *RedisSubscriber) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	ps := s.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	in := ps.Channel()
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range in {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return NewSubscription(out, ps.Close), nil
}
