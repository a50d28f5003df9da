package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/pkg/config"
)

// Server serves flightcore's REST and WebSocket API over HTTP.
type Server struct {
	server       *http.Server
	cfg          config.APIConfig
	shutdownOnce sync.Once
}

// NewServer builds the chi router from deps and wraps it in an HTTP server
// configured per cfg. The server is created in a stopped state; call
// Start to begin serving.
func NewServer(cfg config.APIConfig, deps Deps) (*Server, error) {
	router := NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{server: server, cfg: cfg}, nil
}

// Start serves requests until ctx is cancelled, then gracefully shuts down.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "port", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("api server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop gracefully shuts down the server. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("api server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("api server shutdown error: %w", err)
			logger.Error("api server shutdown error", "error", err)
			return
		}
		logger.Info("api server stopped gracefully")
	})
	return shutdownErr
}

// Port returns the configured listening port.
func (s *Server) Port() int {
	return s.cfg.Port
}
