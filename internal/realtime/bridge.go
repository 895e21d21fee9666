package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/go-notify-realtime/internal/metrics"
)

// EventDispatcher delivers a decoded event to local connections.
type EventDispatcher interface {
	Dispatch(ctx context.Context, userID, event string, payload any) int
}

// BridgeConfig tunes the broker link.
type BridgeConfig struct {
	Channel      string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Bridge connects this instance to the shared broker channel. Publish sends
// events out; Run consumes the channel and hands each event to the
// dispatcher, re-subscribing with capped exponential backoff on failure.
type Bridge struct {
	broker     Broker
	dispatcher EventDispatcher
	cfg        BridgeConfig
	breaker    *gobreaker.CircuitBreaker
	clock      clockwork.Clock
	metrics    *metrics.Realtime
	logger     *slog.Logger

	connected atomic.Bool
}

func NewBridge(broker Broker, dispatcher EventDispatcher, cfg BridgeConfig, clock clockwork.Clock, m *metrics.Realtime, logger *slog.Logger) *Bridge {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = 250 * time.Millisecond
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = cfg.ReconnectMin
	}
	logger = logger.With("component", "broker_bridge", "channel", cfg.Channel)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker-publish",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("publish circuit state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Bridge{
		broker:     broker,
		dispatcher: dispatcher,
		cfg:        cfg,
		breaker:    breaker,
		clock:      clock,
		metrics:    m,
		logger:     logger,
	}
}

// Connected reports whether the inbound subscription is currently live.
func (b *Bridge) Connected() bool {
	return b.connected.Load()
}

// Publish sends ev to the broker channel. It fails fast with
// ErrBrokerUnavailable while the link is down or the publish circuit is open.
func (b *Bridge) Publish(ctx context.Context, ev NotificationEvent) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		b.metrics.PublishFailures.Inc()
		return err
	}
	if !b.connected.Load() {
		b.metrics.PublishFailures.Inc()
		return ErrBrokerUnavailable
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.broker.Publish(ctx, b.cfg.Channel, payload)
	})
	if err != nil {
		b.metrics.PublishFailures.Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
		}
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	b.metrics.EventsPublished.Inc()
	return nil
}

// Run owns the inbound subscription until ctx is cancelled. Messages are
// handled one at a time, in broker order.
//
// The backoff starts over only after a link proved healthy: it delivered a
// message or stayed up for ReconnectMax. A link that drops straight after
// subscribing keeps backing off.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := b.cfg.ReconnectMin
	for {
		if ctx.Err() != nil {
			return nil
		}

		sub, err := b.broker.Subscribe(ctx, b.cfg.Channel)
		if err == nil {
			b.setConnected(true)
			b.logger.Info("subscribed to broker channel")
			since := b.clock.Now()

			var received int
			received, err = b.consume(ctx, sub)
			b.setConnected(false)
			if cerr := sub.Close(); cerr != nil {
				b.logger.Debug("close subscription", "error", cerr)
			}
			if received > 0 || b.clock.Since(since) >= b.cfg.ReconnectMax {
				backoff = b.cfg.ReconnectMin
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		b.metrics.BrokerReconnects.Inc()
		b.logger.Warn("broker link lost, retrying", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-b.clock.After(backoff):
		}
		backoff = min(backoff*2, b.cfg.ReconnectMax)
	}
}

// consume returns how many messages arrived before the link failed.
func (b *Bridge) consume(ctx context.Context, sub Subscription) (int, error) {
	n := 0
	for {
		data, err := sub.Receive(ctx)
		if err != nil {
			return n, err
		}
		n++
		b.handle(ctx, data)
	}
}

func (b *Bridge) handle(ctx context.Context, data []byte) {
	b.metrics.MessagesReceived.Inc()

	ev, err := DecodeEvent(data)
	if err != nil {
		b.metrics.MalformedMessages.Inc()
		b.logger.Warn("discarding broker message", "error", err, "bytes", len(data))
		return
	}
	b.dispatcher.Dispatch(ctx, ev.UserID, EventNotification, ev)
}

func (b *Bridge) setConnected(v bool) {
	b.connected.Store(v)
	if v {
		b.metrics.BrokerConnected.Set(1)
	} else {
		b.metrics.BrokerConnected.Set(0)
	}
}
