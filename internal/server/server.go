// Package server exposes the protection engine over HTTP: scan, scramble and
// unscramble endpoints, the audit and compliance surface, and the operational
// WebSocket stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/config"
	"github.com/dataveil/dataveil/internal/engine"
	"github.com/dataveil/dataveil/internal/logger"
	"github.com/dataveil/dataveil/internal/websocket"
)

// Server represents the main API server
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	engine    *engine.Engine
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	limiters  *clientLimiters
	startTime time.Time
}

// New creates a new server instance. The hub is built by the caller so audit
// notifications can be wired to it before the engine exists.
func New(cfg *config.Config, eng *engine.Engine, wsHub *websocket.Hub, log *logger.Logger) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server requires an engine")
	}

	// Create router
	router := mux.NewRouter()

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		engine:    eng,
		router:    router,
		wsHub:     wsHub,
		limiters:  newClientLimiters(cfg.RateLimit),
		startTime: time.Now(),
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and info endpoints
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// WebSocket endpoint for the operational stream
	if s.config.WebSocket.Enabled {
		path := s.config.WebSocket.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.handleWebSocket).Methods("GET")
	}

	// Protection API
	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/scramble", s.handleScramble).Methods("POST")
	api.HandleFunc("/unscramble", s.handleUnscramble).Methods("POST")

	api.HandleFunc("/records", s.handleRecords).Methods("GET")
	api.HandleFunc("/sweep", s.handleSweep).Methods("POST")

	api.HandleFunc("/deletion-requests", s.handleSubmitDeletionRequest).Methods("POST")
	api.HandleFunc("/deletion-requests/overdue", s.handleOverdueDeletionRequests).Methods("GET")
	api.HandleFunc("/deletion-requests/{id}", s.handleGetDeletionRequest).Methods("GET")
	api.HandleFunc("/deletion-requests/{id}/begin", s.handleBeginDeletionRequest).Methods("POST")
	api.HandleFunc("/deletion-requests/{id}/complete", s.handleCompleteDeletionRequest).Methods("POST")
	api.HandleFunc("/deletion-requests/{id}/reject", s.handleRejectDeletionRequest).Methods("POST")

	api.HandleFunc("/reports", s.handleGenerateReport).Methods("POST")
	api.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting DataVeil API server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("detection_enabled", s.config.Detection.Enabled),
		zap.Bool("audit_enabled", s.config.Audit.Enabled),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping DataVeil API server")
	return s.server.Shutdown(ctx)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
