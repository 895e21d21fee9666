package handler

import "net/http"

// RealtimeState is what the stats endpoint reads from the running instance.
type RealtimeState interface {
	ConnectedUsers() int
	ConnectionCount() int
}

// BrokerState reports the broker link.
type BrokerState interface {
	Connected() bool
}

type StatsHandler struct {
	state  RealtimeState
	broker BrokerState
}

func NewStatsHandler(state RealtimeState, broker BrokerState) *StatsHandler {
	return &StatsHandler{state: state, broker: broker}
}

func (h *StatsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsEnvelope{
		ConnectedUsers:  h.state.ConnectedUsers(),
		Connections:     h.state.ConnectionCount(),
		BrokerConnected: h.broker.Connected(),
	})
}
