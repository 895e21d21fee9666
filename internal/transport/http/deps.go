package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-notify-realtime/internal/application/auth"
	"github.com/go-notify-realtime/internal/application/notification"
	"github.com/go-notify-realtime/internal/realtime"
	"github.com/go-notify-realtime/internal/transport/http/handler"
	"github.com/go-notify-realtime/internal/transport/http/middleware"
	"github.com/go-notify-realtime/internal/transport/sse"
	"github.com/go-notify-realtime/internal/transport/ws"
)

// Registry is what the router needs from the connection registry: the
// transports register into it and the stats endpoint reads from it.
type Registry interface {
	ws.Registrar
	handler.RealtimeState
}

// Deps holds everything the router wires into handlers.
type Deps struct {
	Auth          auth.Service
	Notifications notification.Service
	Verifier      middleware.IdentityVerifier
	Gate          *realtime.Gate
	Registry      Registry
	Broker        handler.BrokerState
	Gatherer      prometheus.Gatherer
	WSOptions     ws.Options
	SSEOptions    sse.Options
}
