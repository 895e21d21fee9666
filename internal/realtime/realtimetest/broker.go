// Package realtimetest provides in-memory doubles for the realtime package.
package realtimetest

import (
	"context"
	"errors"
	"sync"

	"github.com/go-notify-realtime/internal/realtime"
)

// ErrDropped is returned by Receive after Drop severs a subscription.
var ErrDropped = errors.New("memory broker: link dropped")

// ErrRefused is returned by Subscribe while FailSubscribes is pending.
var ErrRefused = errors.New("memory broker: connection refused")

// Broker is an in-process fan-out broker shared by any number of bridges.
type Broker struct {
	mu             sync.Mutex
	subs           map[*subscription]struct{}
	failSubscribes int
	publishErr     error
	subscribed     chan struct{}
}

var _ realtime.Broker = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{
		subs:       make(map[*subscription]struct{}),
		subscribed: make(chan struct{}, 64),
	}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return b.publishErr
	}
	for s := range b.subs {
		if s.channel != channel {
			continue
		}
		msg := append([]byte(nil), payload...)
		select {
		case s.msgs <- msg:
		default:
		}
	}
	return nil
}

func (b *Broker) Subscribe(_ context.Context, channel string) (realtime.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failSubscribes > 0 {
		b.failSubscribes--
		return nil, ErrRefused
	}
	s := &subscription{
		broker:  b,
		channel: channel,
		msgs:    make(chan []byte, 1024),
		dropped: make(chan struct{}),
	}
	b.subs[s] = struct{}{}
	select {
	case b.subscribed <- struct{}{}:
	default:
	}
	return s, nil
}

// Subscribed fires once per successful Subscribe.
func (b *Broker) Subscribed() <-chan struct{} {
	return b.subscribed
}

// Drop severs every live subscription, as a broker restart would.
func (b *Broker) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.drop()
		delete(b.subs, s)
	}
}

// FailSubscribes makes the next n Subscribe calls fail with ErrRefused.
func (b *Broker) FailSubscribes(n int) {
	b.mu.Lock()
	b.failSubscribes = n
	b.mu.Unlock()
}

// SetPublishError makes every Publish return err until reset with nil.
func (b *Broker) SetPublishError(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

// Subscribers is the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type subscription struct {
	broker   *Broker
	channel  string
	msgs     chan []byte
	dropped  chan struct{}
	dropOnce sync.Once
}

func (s *subscription) Receive(ctx context.Context) ([]byte, error) {
	// Drain already delivered messages before reporting a drop.
	select {
	case m := <-s.msgs:
		return m, nil
	default:
	}
	select {
	case m := <-s.msgs:
		return m, nil
	case <-s.dropped:
		return nil, ErrDropped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *subscription) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()
	s.drop()
	return nil
}

func (s *subscription) drop() {
	s.dropOnce.Do(func() { close(s.dropped) })
}
