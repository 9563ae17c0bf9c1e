// Package httpapi provides the picsync HTTP server: routing, middleware and
// request handlers for the JSON/multipart API consumed by the CLI client.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/picsync/internal/logging"
)

// Server wraps http.Server with graceful shutdown tied to ctx.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

func New(addr string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second, // uploads can be large
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Run listens until ctx is cancelled, then drains active connections.
func (s *Server) Run(ctx context.Context) error {

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "shutdown error", "error", err)
		return err
	}

	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}
