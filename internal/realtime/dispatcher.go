package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-notify-realtime/internal/metrics"
)

// Dispatcher pushes events to the connections a user holds on this process.
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Realtime
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, m *metrics.Realtime, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: m, logger: logger.With("component", "dispatcher")}
}

// Dispatch pushes (event, payload) to every live connection of userID and
// returns how many pushes succeeded. A user without connections is a silent
// no-op. A failed push is logged and does not affect the other connections;
// the transport's disconnect path prunes the dead handle.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, event string, payload any) int {
	conns := d.registry.Get(userID)
	if len(conns) == 0 {
		d.metrics.DispatchDelivered.Observe(0)
		return 0
	}

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			if err := c.Push(ctx, event, payload); err != nil {
				d.metrics.PushFailures.Inc()
				d.logger.Warn("push failed",
					"user_id", userID,
					"conn_id", c.ID(),
					"event", event,
					"error", err)
				return
			}
			delivered.Add(1)
		}(c)
	}
	wg.Wait()

	n := int(delivered.Load())
	d.metrics.PushesDelivered.Add(float64(n))
	d.metrics.DispatchDelivered.Observe(float64(n))
	d.logger.Debug("dispatched", "user_id", userID, "event", event, "delivered", n, "connections", len(conns))
	return n
}
