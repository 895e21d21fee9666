package realtimetest

import (
	"context"
	"sync"
	"time"

	"github.com/go-notify-realtime/internal/realtime"
)

// Push is one recorded delivery.
type Push struct {
	Event   string
	Payload any
}

// Conn records every push it receives. A dead Conn fails every push.
type Conn struct {
	id  string
	err error

	mu     sync.Mutex
	pushes []Push
	notify chan Push
}

var _ realtime.Conn = (*Conn)(nil)

func NewConn(id string) *Conn {
	return &Conn{id: id, notify: make(chan Push, 256)}
}

// NewDeadConn returns a connection whose pushes fail with err.
func NewDeadConn(id string, err error) *Conn {
	c := NewConn(id)
	c.err = err
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Push(_ context.Context, event string, payload any) error {
	if c.err != nil {
		return c.err
	}
	p := Push{Event: event, Payload: payload}
	c.mu.Lock()
	c.pushes = append(c.pushes, p)
	c.mu.Unlock()
	select {
	case c.notify <- p:
	default:
	}
	return nil
}

// Pushes returns a copy of everything delivered so far.
func (c *Conn) Pushes() []Push {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Push(nil), c.pushes...)
}

// Next waits up to timeout for the next push.
func (c *Conn) Next(timeout time.Duration) (Push, bool) {
	select {
	case p := <-c.notify:
		return p, true
	case <-time.After(timeout):
		return Push{}, false
	}
}
