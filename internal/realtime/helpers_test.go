package realtime_test

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-notify-realtime/internal/metrics"
)

func newMetrics() *metrics.Realtime {
	return metrics.NewRealtime(prometheus.NewRegistry())
}
