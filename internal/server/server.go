package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/middleware"
)

var (
	ReadTimeout       = 10 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 30 * time.Second
)

type Server struct {
	Port   string
	Host   string
	server *http.Server
	mux    *http.ServeMux
	Logger interfaces.Logger
}

// NewServer creates a new Server instance with the specified host and port.
// Every route is wrapped by middlewares, the first listed being outermost.
func NewServer(host, port string, logger interfaces.Logger, middlewares ...middleware.Middleware) *Server {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           middleware.Chain(mux, middlewares...),
		ReadTimeout:       ReadTimeout,
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	return &Server{
		Host:   host,
		Port:   port,
		server: server,
		mux:    mux,
		Logger: logger,
	}
}

// AddRoute registers handler for route. Routes may carry a method prefix
// ("GET /healthz") as accepted by http.ServeMux.
func (s *Server) AddRoute(route string, handler http.Handler) (err error) {
	defer func() {
		// ServeMux panics on conflicting or malformed patterns
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to add route %q: %v", route, rec)
		}
	}()

	s.mux.Handle(route, handler)
	s.Logger.Info("Route added", "route", route)
	return nil
}

// Handler returns the fully wrapped handler served by ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe starts the HTTP server and blocks until it stops. A
// graceful Shutdown is not reported as an error.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("Starting server", "host", s.Host, "port", s.Port)
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.Logger.Error("Failed to start server", "error", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("Shutting down server")
	return s.server.Shutdown(ctx)
}
