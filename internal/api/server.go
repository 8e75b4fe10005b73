package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/export"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/middleware"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
)

// Engine is the snapshot side of the quality engine the API reads from.
type Engine interface {
	domain.SnapshotSource
	domain.Reloader
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	engine        Engine
	queries       *query.Router
	exports       export.Store
	metrics       *metrics.Metrics
	router        *gin.Engine
	server        *http.Server
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithMetrics exposes the registry on GET /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	engine Engine,
	queries *query.Router,
	exports export.Store,
	opts ...ServerOption,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		logger:        logger,
		engine:        engine,
		queries:       queries,
		exports:       exports,
		router:        router,
	}
	for _, opt := range opts {
		opt(server)
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Handler exposes the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/score", s.handleScore)
		v1.GET("/stats", s.handleStats)
		v1.GET("/records", s.handleRecords)
		v1.GET("/intents", s.handleIntents)
		v1.GET("/reports/:name", s.handleReport)
		v1.POST("/query", s.handleQuery)
		v1.POST("/reload", s.handleReload)

		v1.POST("/exports", s.handleCreateExport)
		v1.GET("/exports", s.handleListExports)
		v1.GET("/exports/:id", s.handleGetExport)
		v1.GET("/exports/:id/download", s.handleDownloadExport)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeError maps engine errors onto HTTP statuses and EngineError bodies.
func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var validation *domain.ValidationError
	var status int
	var body *domain.EngineError
	switch {
	case errors.Is(err, domain.ErrNoSnapshot):
		status = http.StatusServiceUnavailable
		body = domain.NewEngineError(domain.ErrCodeNoSnapshot, "No snapshot is loaded", err.Error(), requestID)
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body = domain.NewEngineError(domain.ErrCodeInvalidInput, validation.Message, validation.Error(), requestID)
	case errors.Is(err, domain.ErrUnknownIntent), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		body = domain.NewEngineError(domain.ErrCodeNotFound, "Resource not found", err.Error(), requestID)
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		body = domain.NewEngineError(domain.ErrCodeInternalError, "Request timeout", err.Error(), requestID)
	default:
		status = http.StatusInternalServerError
		body = domain.NewEngineError(domain.ErrCodeInternalError, "Internal server error", "", requestID)
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewEngineError(
		domain.ErrCodeInvalidInput,
		message,
		details,
		c.GetString(middleware.CorrelationIDKey),
	))
}
