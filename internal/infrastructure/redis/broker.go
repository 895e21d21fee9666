package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/go-notify-realtime/internal/realtime"
)

// Broker implements realtime.Broker on Redis Pub/Sub.
type Broker struct {
	rdb *goredis.Client
}

var _ realtime.Broker = (*Broker)(nil)

func NewBroker(client *Client) *Broker {
	return &Broker{rdb: client.rdb}
}

func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so a caller
// may treat the link as live immediately.
func (b *Broker) Subscribe(ctx context.Context, channel string) (realtime.Subscription, error) {
	ps := b.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	return &subscription{ps: ps}, nil
}

type subscription struct {
	ps *goredis.PubSub
}

// Receive blocks for the next message. Any error means the link is gone;
// messages published until the caller resubscribes are not replayed.
//
// go-redis only honours a context deadline on the read, so cancellation
// closes the PubSub to unblock it. The subscription is unusable afterwards.
func (s *subscription) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.ps.Close() })
	defer stop()

	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *subscription) Close() error {
	return s.ps.Close()
}
