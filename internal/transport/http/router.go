package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/go-notify-realtime/internal/config"
	"github.com/go-notify-realtime/internal/transport/http/handler"
	appmiddleware "github.com/go-notify-realtime/internal/transport/http/middleware"
	"github.com/go-notify-realtime/internal/transport/sse"
	"github.com/go-notify-realtime/internal/transport/ws"
)

// Router is the application's HTTP handler. Stop releases the rate limiters'
// background cleanup.
type Router struct {
	http.Handler
	limiters []*appmiddleware.RateLimiter
}

func (r *Router) Stop() {
	for _, l := range r.limiters {
		l.Stop()
	}
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps, logger *slog.Logger) *Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier)
	// Each accepted handshake holds a socket open, so opening them is throttled per IP.
	handshakeRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.HandshakeRatePerSec), cfg.HandshakeBurst)
	// Login and register run bcrypt; keep guessing slow.
	authRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AuthRatePerSec), cfg.AuthBurst)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth)
	statsH := handler.NewStatsHandler(deps.Registry, deps.Broker)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	wsH := ws.NewHandler(deps.Gate, deps.Registry, deps.WSOptions, logger)
	sseH := sse.NewHandler(deps.Gate, deps.Registry, deps.SSEOptions, logger)

	r.With(handshakeRL.Limit).Get("/ws", wsH.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/realtime/stats", statsH.Get)
		r.With(authRL.Limit).Post("/auth/register", authH.Register)
		r.With(authRL.Limit).Post("/auth/login", authH.Login)

		// The stream authenticates through the handshake gate, which also
		// accepts ?token= for EventSource clients that cannot set headers.
		r.With(handshakeRL.Limit).Get("/notifications/stream", sseH.ServeHTTP)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/notifications", notifH.Send)
			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)
		})
	})

	return &Router{Handler: r, limiters: []*appmiddleware.RateLimiter{handshakeRL, authRL}}
}
