// Package realtime pushes ordered message snapshots to subscribers over
// Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lehmann314159/folio/internal/models"
)

const DefaultChannel = "folio:messages"

type Broker struct {
	client  *redis.Client
	channel string
}

// NewBroker connects to the Redis server named by url.
func NewBroker(url, channel string) (*Broker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewBrokerWithClient(redis.NewClient(opts), channel), nil
}

func NewBrokerWithClient(client *redis.Client, channel string) *Broker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broker{client: client, channel: channel}
}

func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Broker) Close() error {
	return b.client.Close()
}

// Publish sends the full collection as one snapshot.
func (b *Broker) Publish(ctx context.Context, snapshot []models.Message) error {
	if snapshot == nil {
		snapshot = []models.Message{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscription delivers snapshots in publish order. Errors are reported on a
// separate channel and do not end the subscription.
type Subscription struct {
	pubsub    *redis.PubSub
	snapshots chan []models.Message
	errs      chan error
}

// Subscribe waits until the subscription is registered so that no snapshot
// published after it returns is missed.
func (b *Broker) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s := &Subscription{
		pubsub:    pubsub,
		snapshots: make(chan []models.Message),
		errs:      make(chan error, 8),
	}
	go s.run(ctx)
	return s, nil
}

func (s *Subscription) Snapshots() <-chan []models.Message { return s.snapshots }
func (s *Subscription) Errors() <-chan error               { return s.errs }

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.snapshots)
	defer s.pubsub.Close()

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snapshot []models.Message
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				s.report(fmt.Errorf("failed to decode snapshot: %w", err))
				continue
			}
			select {
			case s.snapshots <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}
}

// report drops the error when nobody is draining the error channel.
func (s *Subscription) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
