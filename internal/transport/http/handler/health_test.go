package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestPing(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/health-check/{action}", NewHealthHandler().Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/dance", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type fixedState struct{ users, conns int }

func (s fixedState) ConnectedUsers() int  { return s.users }
func (s fixedState) ConnectionCount() int { return s.conns }

type brokerUp bool

func (b brokerUp) Connected() bool { return bool(b) }

func TestStats(t *testing.T) {
	h := NewStatsHandler(fixedState{users: 2, conns: 3}, brokerUp(true))

	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/v1/realtime/stats", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"connected_users":2,"connections":3,"broker_connected":true}`, rr.Body.String())
}
