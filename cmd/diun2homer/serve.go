package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/internal/application/notifier"
	"github.com/aescanero/diun2homer/internal/application/workers"
	"github.com/aescanero/diun2homer/internal/config"
	"github.com/aescanero/diun2homer/internal/logging"
	eventsmemory "github.com/aescanero/diun2homer/pkg/adapters/events/memory"
	"github.com/aescanero/diun2homer/pkg/adapters/events/redis"
	"github.com/aescanero/diun2homer/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/diun2homer/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/diun2homer/pkg/adapters/storage/redis"
	"github.com/aescanero/diun2homer/pkg/adapters/storage/sqlite"
	"github.com/aescanero/diun2homer/pkg/api/grpc"
	"github.com/aescanero/diun2homer/pkg/api/http"
	"github.com/aescanero/diun2homer/pkg/api/websocket"
	"github.com/aescanero/diun2homer/pkg/ports"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and Homer API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	opts := logging.Options{Level: cfg.EffectiveLogLevel()}
	if cfg.IsDebug() {
		opts.DebugFile = cfg.DebugLogPath()
	}
	logger, closeLogger, err := logging.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = closeLogger() }()

	logger.Info("starting diun2homer",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.Bool("debug", cfg.IsDebug()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve wires every component and blocks until ctx is cancelled or a server
// fails
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Initialize Redis client
	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}()

		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	store, err := newStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("storage close error", zap.Error(err))
		}
	}()

	eventBus, err := newEventBus(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eventBus.Close() }()

	metricsCollector := prometheus.NewCollector(nil)

	// Initialize application components
	manager := notifier.NewManager(store, eventBus, metricsCollector, notifier.NewValidator(), logger)

	healthMonitor := workers.NewHealthMonitor(store, metricsCollector, cfg.HealthCheckInterval, logger)
	janitor := workers.NewJanitor(store, metricsCollector, workers.RetentionPolicy{
		MaxEvents: cfg.Retention.MaxEvents,
		MaxAge:    cfg.Retention.MaxAge,
		Interval:  cfg.Retention.Interval,
	}, logger)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:              cfg.HTTPPort,
		Manager:           manager,
		Logger:            logger,
		Metrics:           metricsCollector,
		WebhookToken:      cfg.Webhook.Token,
		CORSAllowOrigin:   cfg.Webhook.CORSAllowOrigin,
		HomerLimit:        cfg.Homer.Limit,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
	})

	// Add WebSocket handler to HTTP server
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, cfg.Webhook.CORSAllowOrigin, logger))

	var grpcServer *grpc.Server
	if cfg.GRPCPort != 0 {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Port:   cfg.GRPCPort,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create gRPC server: %w", err)
		}
		healthMonitor.AddListener(grpcServer.SetServing)
	}

	// Start background workers
	healthMonitor.Start()
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("failed to start retention janitor: %w", err)
	}

	// Start servers
	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				errCh <- fmt.Errorf("gRPC server failed: %w", err)
			}
		}()
	}

	logger.Info("diun2homer started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("redis_events", cfg.UseRedisEvents()))

	// Wait for interrupt signal or a server failure
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errCh:
		logger.Error("server failed", zap.Error(runErr))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	healthMonitor.Stop()

	if err := janitor.Shutdown(shutdownCtx); err != nil {
		logger.Error("retention janitor shutdown error", zap.Error(err))
	}

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("notifier shutdown error", zap.Error(err))
	}

	logger.Info("diun2homer shut down complete")
	return runErr
}

// newStore opens the configured storage backend
func newStore(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, logger *zap.Logger) (ports.NotificationStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := sqlite.New(ctx, cfg.DatabasePath(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, errors.New("redis storage requires a Redis client")
		}
		return redisstorage.NewNotificationStore(redisClient, cfg.Redis.KeyPrefix, logger), nil
	case config.BackendMemory:
		logger.Warn("using in-memory storage; notifications are lost on restart")
		return storagememory.NewInMemoryNotificationStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// newEventBus creates the configured event bus
func newEventBus(cfg *config.Config, redisClient *goredis.Client, logger *zap.Logger) (ports.EventBus, error) {
	if !cfg.UseRedisEvents() {
		return eventsmemory.NewInMemoryEventBus(logger), nil
	}

	bus, err := redis.NewStreamsEventBus(
		redisClient,
		cfg.Redis.KeyPrefix,
		fmt.Sprintf("diun2homer-%d", os.Getpid()),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	return bus, nil
}
