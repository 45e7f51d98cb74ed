package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/diun2homer/internal/application/notifier"
	"github.com/aescanero/diun2homer/pkg/ports"
)

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	manager      *notifier.Manager
	metrics      ports.MetricsCollector
	logger       *zap.Logger
	webhookToken string
	homerLimit   int
}

// Config holds HTTP server configuration
type Config struct {
	Port    int
	Manager *notifier.Manager
	Logger  *zap.Logger

	// Metrics records request durations. MetricsHandler serves /metrics and
	// defaults to the default Prometheus registry.
	Metrics        ports.MetricsCollector
	MetricsHandler http.Handler

	// WebhookToken, when set, is required on /diun
	WebhookToken string
	// CORSAllowOrigin is sent as Access-Control-Allow-Origin; empty disables CORS
	CORSAllowOrigin string
	// HomerLimit caps /homer when no ?limit is given; 0 means no cap
	HomerLimit int

	ReadHeaderTimeout time.Duration
}

// WebSocketHandler streams Homer messages over a WebSocket
type WebSocketHandler interface {
	HandleHomerStream(*gin.Context)
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(metricsMiddleware(metrics))
	if cfg.CORSAllowOrigin != "" {
		router.Use(corsMiddleware(cfg.CORSAllowOrigin))
	}

	s := &Server{
		router:       router,
		manager:      cfg.Manager,
		metrics:      metrics,
		logger:       cfg.Logger,
		webhookToken: cfg.WebhookToken,
		homerLimit:   cfg.HomerLimit,
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	s.setupRoutes(metricsHandler)

	readHeaderTimeout := cfg.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 5 * time.Second
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(metricsHandler))

	// Diun webhook
	diun := s.router.Group("/diun", webhookAuth(s.webhookToken))
	{
		diun.GET("", s.handleDiunQuery)
		diun.POST("", s.handleDiunJSON)
	}

	// Homer message endpoints
	s.router.GET("/homer", s.handleHomer)
	s.router.GET("/homer/latest", s.handleHomerLatest)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/notifications", s.handleListNotifications)
	}
}

// SetupWebSocket adds the WebSocket handler to the server
func (s *Server) SetupWebSocket(handler WebSocketHandler) {
	s.router.GET("/homer/ws", handler.HandleHomerStream)
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
