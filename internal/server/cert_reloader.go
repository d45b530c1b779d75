package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/observability"
)

// CertReloader serves the current key pair to TLS handshakes and swaps it
// when the files on disk change
type CertReloader struct {
	mu sync.RWMutex

	cert   *tls.Certificate
	expiry time.Time

	config  config.TLSConfig
	watcher *CertWatcher
	metrics *observability.Metrics
	logger  *errors.Logger

	reloadCount        int64
	reloadFailureCount int64
	lastReloadTime     time.Time
	lastReloadError    string
}

// NewCertReloader creates a reloader; Start loads the first key pair
func NewCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) *CertReloader {
	return &CertReloader{
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Start loads the key pair and, for file based pairs with watching
// enabled, begins watching for changes
func (cr *CertReloader) Start() error {
	if err := cr.load(); err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	if !cr.config.WatchFiles || !cr.config.UsesFiles() {
		return nil
	}

	watcher, err := NewCertWatcher(cr.config.CertFile, cr.config.KeyFile, cr.config.DebounceDelay, cr.reloadFromWatcher, cr.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start certificate watcher: %w", err)
	}

	cr.mu.Lock()
	cr.watcher = watcher
	cr.mu.Unlock()
	return nil
}

// Stop stops the file watcher if one is running
func (cr *CertReloader) Stop() error {
	cr.mu.RLock()
	watcher := cr.watcher
	cr.mu.RUnlock()

	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.cert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if !cr.expiry.IsZero() && time.Now().After(cr.expiry) {
		cr.logger.Warn("Serving expired certificate",
			"expiry", cr.expiry,
			"server_name", hello.ServerName)
	}
	return cr.cert, nil
}

// Reload re-reads the key pair. On failure the previous pair stays active.
func (cr *CertReloader) Reload() error {
	err := cr.load()
	cr.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cr.mu.Lock()
		cr.reloadFailureCount++
		cr.lastReloadError = err.Error()
		cr.mu.Unlock()
	}
	return err
}

func (cr *CertReloader) reloadFromWatcher() {
	if err := cr.Reload(); err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificate, keeping previous certificate")
	}
}

// TLSConfig builds the server TLS configuration around GetCertificate
func (cr *CertReloader) TLSConfig() *tls.Config {
	minVersion := uint16(tls.VersionTLS12)
	if cr.config.MinVersion == "1.3" {
		minVersion = tls.VersionTLS13
	}
	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: cr.GetCertificate,
	}
}

// Status reports certificate expiry and reload counters
func (cr *CertReloader) Status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	status := map[string]any{
		"watching":             cr.watcher != nil && cr.watcher.IsRunning(),
		"reload_count":         cr.reloadCount,
		"reload_failure_count": cr.reloadFailureCount,
	}
	if !cr.expiry.IsZero() {
		status["expires_at"] = cr.expiry.UTC().Format(time.RFC3339)
		status["time_to_expiry_hours"] = int(time.Until(cr.expiry).Hours())
	}
	if !cr.lastReloadTime.IsZero() {
		status["last_reload_time"] = cr.lastReloadTime.UTC().Format(time.RFC3339)
	}
	if cr.lastReloadError != "" {
		status["last_reload_error"] = cr.lastReloadError
	}
	return status
}

func (cr *CertReloader) load() error {
	cert, err := loadKeyPair(cr.config)
	if err != nil {
		return err
	}

	var expiry time.Time
	if len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
		expiry = leaf.NotAfter
	}

	cr.mu.Lock()
	cr.cert = &cert
	cr.expiry = expiry
	cr.reloadCount++
	cr.lastReloadTime = time.Now()
	cr.lastReloadError = ""
	cr.mu.Unlock()

	cr.logger.Info("TLS certificate loaded", "expiry", expiry)
	return nil
}

// loadKeyPair prefers PEM content (from Vault) over files
func loadKeyPair(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertContent != "" && cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if cfg.UsesFiles() {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}
