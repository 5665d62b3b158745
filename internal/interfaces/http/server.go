// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadSize:   10 << 20,
	}
}

// Dependencies are the application services exposed over HTTP
type Dependencies struct {
	Applications service.ApplicationService
	Decisions    service.DecisionService
	Queries      service.QueryService
	Export       service.ExportService
	Storage      port.FileStorage
	// Health reports readiness and per-component details for GET /health
	Health func() (bool, interface{})
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	tokens     *TokenManager
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, tokens *TokenManager, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	router := gin.New()
	if config.MaxUploadSize > 0 {
		router.MaxMultipartMemory = config.MaxUploadSize
	}

	server := &Server{
		config: config,
		router: router,
		deps:   deps,
		tokens: tokens,
		logger: logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(RequestID())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.logger)

	// Health check
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", JWTAuth(s.tokens))
	{
		apps := api.Group("/applications")
		apps.POST("/leave", h.CreateLeaveApplication)
		apps.POST("/reimburse", h.CreateReimburseApplication)
		apps.GET("/mine", h.ListMyApplications)
		apps.GET("/history", h.ListMyHistory)
		apps.GET("/history/export", h.ExportMyHistory)
		apps.GET("/summary", h.GetMySummary)
		apps.GET("/:id", h.GetApplicationDetail)
		apps.POST("/:id/withdraw", h.WithdrawApplication)

		api.GET("/approvers", h.GetDeptApprovers)

		tasks := api.Group("/tasks")
		tasks.GET("/todo", h.ListTodoTasks)
		tasks.GET("/done", h.ListDoneTasks)
		tasks.GET("/dashboard", h.GetApproverDashboard)
		tasks.POST("/:id/decision", h.DecideTask)

		api.POST("/files", h.UploadFile)
		api.GET("/files/*ref", h.DownloadFile)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
