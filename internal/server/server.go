// Package server exposes the gateway's HTTP surface: a health endpoint and
// the per-player WebSocket chat endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/scoremilk/chat-gateway/internal/admission"
	"github.com/scoremilk/chat-gateway/internal/chat"
	"github.com/scoremilk/chat-gateway/internal/config"
	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/health"
	"github.com/scoremilk/chat-gateway/pkg/httpmiddleware"
	"github.com/scoremilk/chat-gateway/pkg/logger"
	"github.com/scoremilk/chat-gateway/pkg/metrics"
)

// Server wires the chat registry, data store and admission check behind the
// HTTP and WebSocket endpoints.
type Server struct {
	cfg      config.ServerConfig
	log      logger.Logger
	registry *chat.Registry
	store    *store.Store
	checker  *admission.Checker
	health   *health.Checker
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// Config holds the server's collaborators.
type Config struct {
	Server   config.ServerConfig
	Logger   logger.Logger
	Registry *chat.Registry
	Store    *store.Store
	Metrics  *metrics.Metrics
}

// New creates a Server. The websocket upgrader accepts any Origin; origin
// policy is enforced by the admission check, which needs to send a visible
// rejection message rather than fail the handshake.
func New(cfg Config) *Server {
	s := &Server{
		cfg:      cfg.Server,
		log:      cfg.Logger,
		registry: cfg.Registry,
		store:    cfg.Store,
		checker:  admission.NewChecker(cfg.Logger),
		health:   newHealthChecker(cfg.Logger, cfg.Store),
		metrics:  cfg.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.CorrelationID())
	r.Use(httpmiddleware.CORS(httpmiddleware.DefaultCORSConfig()))
	r.Use(httpmiddleware.Security(nil))
	r.Use(s.log.HTTPMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.health.LivenessHandler())
	r.Get("/health/ready", s.health.ReadinessHandler())
	r.Get("/ws", s.handleWebSocket)

	return r
}

// newHealthChecker builds the probe set: readiness requires the data store to
// have fetched at least one entity type.
func newHealthChecker(log logger.Logger, dataStore *store.Store) *health.Checker {
	checker := health.New(health.WithLogger(log))
	checker.AddReadinessCheck(health.NewCheckFunc("persona-data", func(context.Context) error {
		if !dataStore.Ready() {
			return fmt.Errorf("persona data not yet loaded")
		}
		return nil
	}))
	return checker
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Listen starts serving in the background. The returned channel receives the
// terminal error from ListenAndServe, or nil after a clean Shutdown.
func (s *Server) Listen() chan error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", logger.StringField("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	return errCh
}

// GracefulShutdown stops accepting connections and drains in-flight requests.
func (s *Server) GracefulShutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
