// Package sse serves real-time notifications as a Server-Sent Events stream,
// for clients that cannot hold a WebSocket.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/pkg/id"
	"github.com/go-notify-realtime/internal/realtime"
)

var (
	ErrStreamClosed   = errors.New("event stream closed")
	ErrSendBufferFull = errors.New("event stream buffer full")
)

// Authenticator admits or refuses a stream request.
type Authenticator interface {
	Authenticate(cred realtime.Credentials) (domain.Identity, error)
}

// Registrar tracks live connections per user.
type Registrar interface {
	Add(userID string, c realtime.Conn)
	Remove(userID string, c realtime.Conn)
}

// Options tune each stream. Zero values take defaults in NewHandler.
type Options struct {
	WriteTimeout      time.Duration
	KeepaliveInterval time.Duration
	SendBuffer        int
}

type message struct {
	event string
	data  []byte
}

type stream struct {
	id   string
	send chan message
	done chan struct{}
}

func (s *stream) ID() string { return s.id }

// Push never blocks; a slow reader gets ErrSendBufferFull.
func (s *stream) Push(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	select {
	case s.send <- message{event: event, data: data}:
		return nil
	case <-s.done:
		return ErrStreamClosed
	default:
		return ErrSendBufferFull
	}
}

// Handler holds an authenticated request open as an event stream, registered
// for as long as the client stays connected.
type Handler struct {
	gate     Authenticator
	registry Registrar
	opts     Options
	logger   *slog.Logger
}

func NewHandler(gate Authenticator, registry Registrar, opts Options, logger *slog.Logger) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = 30 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	return &Handler{gate: gate, registry: registry, opts: opts, logger: logger.With("component", "sse")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(realtime.CredentialsFromRequest(r))
	if err != nil {
		msg := realtime.ErrInvalidCredential.Error()
		if errors.Is(err, realtime.ErrMissingCredential) {
			msg = realtime.ErrMissingCredential.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &stream{
		id:   id.New(),
		send: make(chan message, h.opts.SendBuffer),
		done: make(chan struct{}),
	}
	h.registry.Add(identity.UserID, s)
	defer func() {
		h.registry.Remove(identity.UserID, s)
		close(s.done)
		h.logger.Info("stream closed", "user_id", identity.UserID, "conn_id", s.id)
	}()
	h.logger.Info("stream opened", "user_id", identity.UserID, "conn_id", s.id)

	write := func(format string, args ...any) error {
		_ = rc.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			return err
		}
		return rc.Flush()
	}

	hello, _ := json.Marshal(map[string]string{"userId": identity.UserID, "connectionId": s.id})
	if err := write("event: %s\ndata: %s\n\n", realtime.EventConnected, hello); err != nil {
		return
	}

	keepalive := time.NewTicker(h.opts.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case m := <-s.send:
			if err := write("event: %s\ndata: %s\n\n", m.event, m.data); err != nil {
				h.logger.Debug("stream write failed", "conn_id", s.id, "error", err)
				return
			}
		case <-keepalive.C:
			if err := write(": keepalive\n\n"); err != nil {
				return
			}
		}
	}
}
