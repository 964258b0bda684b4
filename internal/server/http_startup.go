package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Run serves until ctx is cancelled. Every live session is ended on the
// way out so uploaded documents are removed.
func (s *Server) Run(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	watchCtx, cancelWatchers := context.WithCancel(ctx)
	defer cancelWatchers()

	if err := s.configureTLS(watchCtx, httpServer); err != nil {
		return err
	}
	s.startPromptWatcher(watchCtx)
	s.Sessions.StartReaper()

	s.displayServerInfo()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.Sessions.Shutdown(context.Background())
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:           s.Observability.HTTPMiddleware()(s.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

func (s *Server) configureTLS(ctx context.Context, httpServer *http.Server) error {
	if !s.TLSConfig.Enabled() {
		return nil
	}

	reloader, err := NewCertReloader(s.TLSConfig.CertFile, s.TLSConfig.KeyFile, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	if err := reloader.Watch(ctx); err != nil {
		s.Logger.Warn("Certificate auto-reload disabled", "error", err)
	}
	httpServer.TLSConfig = s.buildTLSConfig(reloader)
	return nil
}

func (s *Server) startPromptWatcher(ctx context.Context) {
	if s.AppConfig == nil || !s.AppConfig.AI.PromptReload {
		return
	}
	if err := s.AppConfig.WatchPrompts(ctx); err != nil {
		s.Logger.Warn("Prompt hot reload disabled", "error", err)
	}
}

// performGracefulShutdown drains HTTP, then ends every session
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		err = server.Close()
	}

	s.Sessions.Shutdown(shutdownCtx)
	s.Logger.Info("Server shutdown completed", "sessions_remaining", s.Sessions.Len())
	return err
}
