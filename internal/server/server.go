package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BlackMission/tencentauth/internal/auth"
	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/exchange"
	"github.com/BlackMission/tencentauth/internal/handler"
	"github.com/BlackMission/tencentauth/internal/logger"
	"github.com/BlackMission/tencentauth/internal/metrics"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port int

	// BaseURL is the externally visible origin used to build callback URLs.
	BaseURL string
}

// Deps holds the service dependencies.
type Deps struct {
	Clients  *client.Registry
	Schemes  *auth.Registry
	Exchange *exchange.Codec
	Metrics  *metrics.Recorder
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// New creates a new Server with all routes wired. Every registered scheme
// gets its callback path mounted.
func New(cfg Config, deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", handler.Health())
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	r.Get("/providers", handler.Providers(deps.Schemes))
	r.Get("/auth/{scheme}", handler.Authorize(deps.Clients, deps.Schemes, cfg.BaseURL))
	for _, s := range deps.Schemes.All() {
		r.Get(s.CallbackPath(), handler.Callback(s, deps.Clients, deps.Exchange, cfg.BaseURL))
	}
	r.Get("/exchange", handler.Exchange(deps.Clients, deps.Exchange))

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	return &Server{
		handler: r,
		httpServer: &http.Server{
			Addr:    addr,
			Handler: r,
			// The callback handler waits on two provider round trips.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening and serving. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	logger.L().Info("tencentauth listening", zap.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
