package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/magazord-bridge/internal/pkg/logger"
)

// Server wraps the HTTP server with sensible timeouts and graceful
// shutdown.
type Server struct {
	srv     *http.Server
	handler http.Handler
}

// NewServer builds the server on the given host/port.
func NewServer(host string, port int, h *Handlers) *Server {
	mux := SetupRoutes(h)
	return &Server{
		handler: mux,
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second, // scans can take a while
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("api server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
