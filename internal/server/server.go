// Package server wires the router and owns the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/api"
	"github.com/baditaflorin/go_startup_os/internal/chat"
	"github.com/baditaflorin/go_startup_os/internal/config"
	"github.com/baditaflorin/go_startup_os/internal/health"
	"github.com/baditaflorin/go_startup_os/internal/metrics"
	"github.com/baditaflorin/go_startup_os/internal/middleware"
	"github.com/baditaflorin/go_startup_os/internal/monitor"
	"github.com/baditaflorin/go_startup_os/web"
)

// Server represents the HTTP server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	handler     *api.Handler
	healthCheck *health.HealthCheck
	metrics     *metrics.Metrics
	logger      *zap.Logger
	cfg         *config.Config
}

// NewServer creates a new HTTP server. m may be nil when metrics are off.
func NewServer(cfg *config.Config, mon *monitor.Monitor, responder *chat.Responder, m *metrics.Metrics, version string, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	baseCtx, cancel := context.WithCancel(context.Background())

	opts := []api.Option{}
	if m != nil {
		opts = append(opts, api.WithRecorder(m))
	}

	s := &Server{
		router:      router,
		handler:     api.NewHandler(mon, responder, logger, opts...),
		healthCheck: health.NewHealthCheck(mon, version, logger),
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			BaseContext:  func(net.Listener) context.Context { return baseCtx },
		},
	}
	// Event streams never finish on their own; end them when shutdown begins.
	s.httpServer.RegisterOnShutdown(cancel)
	s.SetupRoutes()
	return s
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes() {
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS([]string{"*"}),
	}
	if s.metrics != nil {
		chain = append(chain, metrics.MetricsMiddleware(s.metrics, routeTemplate))
	}
	s.router.Use(middleware.Chain(chain...))

	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	limiter := middleware.NewRateLimiter(s.cfg.Chat.RequestsPerSecond, s.cfg.Chat.BurstSize, s.logger)
	s.handler.Routes(s.router, limiter.Limit)

	s.router.PathPrefix("/").
		MatcherFunc(notAPI).
		Handler(http.FileServer(http.FS(web.FS()))).
		Methods(http.MethodGet, http.MethodHead)

	s.router.NotFoundHandler = http.HandlerFunc(s.handler.Errors().NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handler.Errors().MethodNotAllowed)
}

// notAPI keeps the file server off /api so unknown API paths get JSON errors.
func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return r.URL.Path != "/api" && !strings.HasPrefix(r.URL.Path, "/api/")
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

// Start listens on the configured port and serves until Shutdown is called.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", l.Addr().String()))

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}
