// Package metrics exposes the observability surface of real-time delivery.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "notify"

// Realtime holds Prometheus metrics for connection admission, dispatch and broker fan-out.
type Realtime struct {
	HandshakeRejected *prometheus.CounterVec
	PushesDelivered   prometheus.Counter
	PushFailures      prometheus.Counter
	DispatchDelivered prometheus.Histogram

	EventsPublished   prometheus.Counter
	PublishFailures   prometheus.Counter
	MessagesReceived  prometheus.Counter
	MalformedMessages prometheus.Counter
	BrokerReconnects  prometheus.Counter
	BrokerConnected   prometheus.Gauge
}

// NewRealtime creates and registers realtime metrics on the given registry.
func NewRealtime(reg prometheus.Registerer) *Realtime {
	m := &Realtime{
		HandshakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "handshake_rejected_total",
			Help:      "Connection attempts rejected by the handshake gate, by reason.",
		}, []string{"reason"}),
		PushesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "pushes_delivered_total",
			Help:      "Events pushed successfully to a connection.",
		}),
		PushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "push_failures_total",
			Help:      "Pushes that failed on a dead or slow connection.",
		}),
		DispatchDelivered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dispatch_delivered_connections",
			Help:      "Connections reached per dispatch.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "events_published_total",
			Help:      "Notification events published to the broker topic.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publish_failures_total",
			Help:      "Publish attempts that failed or were refused while disconnected.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "messages_received_total",
			Help:      "Messages received from the broker topic.",
		}),
		MalformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "malformed_messages_total",
			Help:      "Broker messages discarded because they could not be decoded.",
		}),
		BrokerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "reconnects_total",
			Help:      "Subscription re-establishment attempts after a broker failure.",
		}),
		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "connected",
			Help:      "1 while the broker subscription is established.",
		}),
	}

	reg.MustRegister(
		m.HandshakeRejected, m.PushesDelivered, m.PushFailures, m.DispatchDelivered,
		m.EventsPublished, m.PublishFailures, m.MessagesReceived, m.MalformedMessages,
		m.BrokerReconnects, m.BrokerConnected,
	)
	return m
}

// Presence reports who is reachable on this instance right now.
type Presence interface {
	ConnectedUsers() int
	ConnectionCount() int
}

// RegisterPresence exposes the connected-user and live-connection gauges, read
// from p at scrape time.
func RegisterPresence(reg prometheus.Registerer, p Presence) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected_users",
			Help:      "Distinct users with at least one live connection on this instance.",
		}, func() float64 { return float64(p.ConnectedUsers()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "active_connections",
			Help:      "Live transport connections on this instance.",
		}, func() float64 { return float64(p.ConnectionCount()) }),
	)
}
