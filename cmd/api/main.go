package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/go-notify-realtime/internal/application/auth"
	"github.com/go-notify-realtime/internal/application/notification"
	"github.com/go-notify-realtime/internal/config"
	"github.com/go-notify-realtime/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-notify-realtime/internal/infrastructure/jwt"
	redisinfra "github.com/go-notify-realtime/internal/infrastructure/redis"
	"github.com/go-notify-realtime/internal/logging"
	"github.com/go-notify-realtime/internal/metrics"
	"github.com/go-notify-realtime/internal/realtime"
	transporthttp "github.com/go-notify-realtime/internal/transport/http"
	"github.com/go-notify-realtime/internal/transport/sse"
	"github.com/go-notify-realtime/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every instance shares the broker channel; the ID tells their logs apart.
	logger = logger.With("instance", uuid.NewString())

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// The handshake gate cannot admit anyone without the verification key,
	// and login cannot issue tokens without the signing key.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		// The bridge keeps retrying; the instance still serves history meanwhile.
		logger.Warn("redis not reachable at startup", "error", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewRealtime(promReg)

	clock := clockwork.NewRealClock()
	registry := realtime.NewRegistry()
	metrics.RegisterPresence(promReg, registry)
	dispatcher := realtime.NewDispatcher(registry, m, logger)
	gate := realtime.NewGate(jwtProvider, m, logger)
	bridge := realtime.NewBridge(redisinfra.NewBroker(redisClient), dispatcher, realtime.BridgeConfig{
		Channel:      cfg.BrokerChannel,
		ReconnectMin: cfg.BrokerReconnectMin,
		ReconnectMax: cfg.BrokerReconnectMax,
	}, clock, m, logger)

	notifSvc := notification.NewService(notification.ServiceDeps{
		Store:     dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		Publisher: bridge,
		Clock:     clock,
		Logger:    logger,
	})

	authSvc, err := auth.NewService(auth.ServiceDeps{
		Users:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		Signer:     jwtProvider,
		Clock:      clock,
		Logger:     logger,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return err
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Auth:          authSvc,
		Notifications: notifSvc,
		Verifier:      jwtProvider,
		Gate:          gate,
		Registry:      registry,
		Broker:        bridge,
		Gatherer:      promReg,
		WSOptions: ws.Options{
			WriteTimeout:   cfg.WSWriteTimeout,
			PingInterval:   cfg.WSPingInterval,
			SendBuffer:     cfg.WSSendBuffer,
			AllowedOrigins: cfg.AllowedOrigins,
		},
		SSEOptions: sse.Options{
			WriteTimeout:      cfg.WSWriteTimeout,
			KeepaliveInterval: cfg.WSPingInterval,
			SendBuffer:        cfg.WSSendBuffer,
		},
	}, logger)
	defer router.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// No WriteTimeout: /ws and the event stream are long-lived and set their
	// own per-write deadlines. Request contexts end with gctx so those
	// connections close on shutdown.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Info("Server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return bridge.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}
