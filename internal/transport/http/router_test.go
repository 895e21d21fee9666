package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-notify-realtime/internal/application/auth"
	"github.com/go-notify-realtime/internal/application/notification"
	"github.com/go-notify-realtime/internal/config"
	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/infrastructure/jwt/jwttest"
	"github.com/go-notify-realtime/internal/logging"
	"github.com/go-notify-realtime/internal/metrics"
	"github.com/go-notify-realtime/internal/realtime"
)

type stubService struct{ notification.Service }

func (stubService) UnreadCount(context.Context, string) (int, error) { return 2, nil }

// memUsers is an in-memory auth.UserStore.
type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return domain.ErrConflict
	}
	m.users[u.Email] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type stubBroker struct{}

func (stubBroker) Connected() bool { return true }

func newTestRouter(t *testing.T) (*Router, string) {
	t.Helper()
	provider := jwttest.NewProvider(t)
	promReg := prometheus.NewRegistry()
	m := metrics.NewRealtime(promReg)
	registry := realtime.NewRegistry()
	metrics.RegisterPresence(promReg, registry)

	authSvc, err := auth.NewService(auth.ServiceDeps{
		Users:      &memUsers{users: map[string]domain.User{}},
		Signer:     provider,
		Logger:     logging.Discard(),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	cfg := config.Load()
	router := NewRouter(cfg, &Deps{
		Auth:          authSvc,
		Notifications: stubService{},
		Verifier:      provider,
		Gate:          realtime.NewGate(provider, m, logging.Discard()),
		Registry:      registry,
		Broker:        stubBroker{},
		Gatherer:      promReg,
	}, logging.Discard())
	t.Cleanup(router.Stop)

	token, err := provider.Sign("u1", "u1@example.com")
	require.NoError(t, err)
	return router, token
}

func TestRouter_Routes(t *testing.T) {
	router, token := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		want   int
		body   string
	}{
		{name: "ping", method: http.MethodGet, path: "/v1/health-check/ping", want: http.StatusOK},
		{name: "stats", method: http.MethodGet, path: "/v1/realtime/stats", want: http.StatusOK, body: `"broker_connected":true`},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK, body: "notify_realtime_connected_users"},
		{name: "unread without auth", method: http.MethodGet, path: "/v1/notifications/unread-count", want: http.StatusUnauthorized},
		{name: "unread with auth", method: http.MethodGet, path: "/v1/notifications/unread-count", auth: true, want: http.StatusOK, body: `"count":2`},
		{name: "ws without token", method: http.MethodGet, path: "/ws", want: http.StatusUnauthorized},
		{name: "stream without token", method: http.MethodGet, path: "/v1/notifications/stream", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.body != "" {
				assert.True(t, strings.Contains(rr.Body.String(), tt.body), rr.Body.String())
			}
		})
	}
}

func TestRouter_HandshakeRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)

	var last int
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		last = rr.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}


func TestRouter_RegisteredUserTokenOpensAuthedRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	reg := post("/v1/auth/register", `{"email":"ada@example.com","password":"secret1","name":"Ada"}`)
	require.Equal(t, http.StatusCreated, reg.Code, reg.Body.String())

	dup := post("/v1/auth/register", `{"email":"ADA@example.com","password":"secret1","name":"Ada"}`)
	assert.Equal(t, http.StatusConflict, dup.Code)

	bad := post("/v1/auth/login", `{"email":"ada@example.com","password":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	login := post("/v1/auth/login", `{"email":"ada@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
