package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumeseo/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.newHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}
	if err := s.startKeyRotation(); err != nil {
		s.stopBackground()
		return err
	}

	s.displayServerInfo(httpServer)

	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			// The key pair is served by GetCertificate
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.stopBackground()
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown requested, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// configureTLS installs a reloading certificate source when TLS is enabled
func (s *Server) configureTLS(httpServer *http.Server) error {
	if !s.TLSConfig.Enabled() {
		return nil
	}

	reloader := NewCertReloader(s.TLSConfig, s.observability.Metrics(), s.logger)
	if err := reloader.Start(); err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	s.certReloader = reloader
	httpServer.TLSConfig = reloader.TLSConfig()
	return nil
}

// startKeyRotation polls Vault for rotated server API keys when enabled
func (s *Server) startKeyRotation() error {
	rotation := s.AppConfig.Server.KeyRotation
	vaultCfg := s.AppConfig.Vault
	if !rotation.Enabled {
		return nil
	}
	if !vaultCfg.Enabled || vaultCfg.Secrets.APIKeys == "" {
		s.logger.Warn("API key rotation requested but vault.secrets.apiKeys is not configured")
		return nil
	}

	client, err := config.NewVaultClient(vaultCfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Vault client: %w", err)
	}

	watcher := NewAPIKeyWatcher(client, vaultCfg.Secrets.APIKeys, rotation.PollInterval,
		s.SetAPIKeys, s.observability.Metrics(), s.logger)
	if err := watcher.Start(); err != nil {
		return err
	}
	s.keyWatcher = watcher
	return nil
}

// performGracefulShutdown drains in-flight requests, then stops watchers
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	defer s.stopBackground()

	s.logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) stopBackground() {
	if s.certReloader != nil {
		if err := s.certReloader.Stop(); err != nil {
			s.logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.keyWatcher != nil {
		if err := s.keyWatcher.Stop(); err != nil {
			s.logger.LogError(err, "Failed to stop API key watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}

// displayServerInfo logs the endpoints and the protection in effect
func (s *Server) displayServerInfo(httpServer *http.Server) {
	scheme := "http"
	if httpServer.TLSConfig != nil {
		scheme = "https"
	}

	s.logger.Info("Starting HTTP server",
		"address", fmt.Sprintf("%s://%s", scheme, httpServer.Addr),
		"envelope", s.Envelope,
		"field_set", s.service.FieldSet().Name,
		"endpoints", []string{"GET /", "GET /health", "GET /stats", "POST /api/analyze/sample", "POST /api/analyze"},
		"strip_prefixes", s.StripPrefixes)

	if n := s.apiKeyCount(); n > 0 {
		s.logger.Info("API authentication enabled", "keys", n, "key_rotation", s.keyWatcher != nil)
	} else {
		s.logger.Warn("API authentication disabled, analyze endpoints are publicly accessible")
	}

	if s.MaxRequestSize > 0 {
		s.logger.Info("Request size limit enabled", "max_bytes", s.MaxRequestSize)
	} else {
		s.logger.Warn("No request size limit configured")
	}

	if s.RateLimiter != nil {
		s.logger.Info("Rate limiting enabled",
			"requests_per_min", s.RateLimit.RequestsPerMin,
			"burst", s.RateLimit.BurstCapacity,
			"by_ip", s.RateLimit.ByIP,
			"by_api_key", s.RateLimit.ByAPIKey)
	} else {
		s.logger.Warn("Rate limiting disabled")
	}
}
