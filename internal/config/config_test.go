package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "notifications", cfg.BrokerChannel)
	assert.Equal(t, "notifications", cfg.DynamoTables.Notifications)
	assert.Equal(t, "users", cfg.DynamoTables.Users)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 250*time.Millisecond, cfg.BrokerReconnectMin)
	assert.Equal(t, 30*time.Second, cfg.BrokerReconnectMax)
	assert.Equal(t, 16, cfg.WSSendBuffer)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("BROKER_CHANNEL", "alerts")
	t.Setenv("BROKER_RECONNECT_MAX", "5s")
	t.Setenv("WS_SEND_BUFFER", "64")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "alerts", cfg.BrokerChannel)
	assert.Equal(t, 5*time.Second, cfg.BrokerReconnectMax)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "lots")
	t.Setenv("JWT_EXPIRY", "tomorrow")
	t.Setenv("BROKER_RECONNECT_MIN", "-1s")

	cfg := Load()

	assert.Equal(t, 16, cfg.WSSendBuffer)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 250*time.Millisecond, cfg.BrokerReconnectMin)
}
