package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort   string
	AppEnv    string
	LogLevel  string
	LogFormat string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	RedisURL            string
	BrokerChannel       string
	BrokerReconnectMin  time.Duration
	BrokerReconnectMax  time.Duration
	WSWriteTimeout      time.Duration
	WSPingInterval      time.Duration
	WSSendBuffer        int
	HandshakeRatePerSec int
	HandshakeBurst      int
	AuthRatePerSec      int
	AuthBurst           int
	BcryptCost          int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications string
	Users         string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		BrokerChannel:       getEnv("BROKER_CHANNEL", "notifications"),
		BrokerReconnectMin:  getEnvDuration("BROKER_RECONNECT_MIN", 250*time.Millisecond),
		BrokerReconnectMax:  getEnvDuration("BROKER_RECONNECT_MAX", 30*time.Second),
		WSWriteTimeout:      getEnvDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:      getEnvDuration("WS_PING_INTERVAL", 30*time.Second),
		WSSendBuffer:        getEnvInt("WS_SEND_BUFFER", 16),
		HandshakeRatePerSec: getEnvInt("HANDSHAKE_RATE", 10),
		HandshakeBurst:      getEnvInt("HANDSHAKE_BURST", 20),
		AuthRatePerSec:      getEnvInt("AUTH_RATE", 1),
		AuthBurst:           getEnvInt("AUTH_BURST", 5),
		BcryptCost:          getEnvInt("BCRYPT_COST", 10),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
