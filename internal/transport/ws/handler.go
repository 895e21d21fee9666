package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/pkg/id"
	"github.com/go-notify-realtime/internal/realtime"
)

// Authenticator admits or refuses a connection attempt.
type Authenticator interface {
	Authenticate(cred realtime.Credentials) (domain.Identity, error)
}

// Registrar tracks live connections per user.
type Registrar interface {
	Add(userID string, c realtime.Conn)
	Remove(userID string, c realtime.Conn)
}

// Handler upgrades authenticated requests to WebSocket connections and keeps
// them registered for exactly as long as the socket lives.
type Handler struct {
	gate     Authenticator
	registry Registrar
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(gate Authenticator, registry Registrar, opts Options, logger *slog.Logger) *Handler {
	opts = opts.withDefaults()
	return &Handler{
		gate:     gate,
		registry: registry,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		logger: logger.With("component", "ws"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(realtime.CredentialsFromRequest(r))
	if err != nil {
		msg := "unauthorized"
		if errors.Is(err, realtime.ErrMissingCredential) {
			msg = realtime.ErrMissingCredential.Error()
		} else if errors.Is(err, realtime.ErrInvalidCredential) {
			msg = realtime.ErrInvalidCredential.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Warn("websocket upgrade failed", "user_id", identity.UserID, "error", err)
		return
	}

	c := newConn(id.New(), wsConn, h.opts, h.logger)
	h.registry.Add(identity.UserID, c)
	h.logger.Info("client connected", "user_id", identity.UserID, "conn_id", c.id)

	_ = c.Push(r.Context(), realtime.EventConnected, map[string]string{
		"userId":       identity.UserID,
		"connectionId": c.id,
	})

	go c.writePump()
	go func() {
		select {
		case <-r.Context().Done():
			c.close()
		case <-c.done:
		}
	}()
	c.readPump()

	h.registry.Remove(identity.UserID, c)
	c.close()
	h.logger.Info("client disconnected", "user_id", identity.UserID, "conn_id", c.id)
}

// originChecker allows requests without an Origin header (non-browser
// clients) and, for browsers, only the configured origins. "*" allows all.
func originChecker(allowed []string) func(*http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
