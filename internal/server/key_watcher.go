package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/observability"
)

const defaultKeyPollInterval = 5 * time.Minute

// SecretReader is the subset of config.VaultClient used to poll secrets
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// APIKeyWatcher polls a Vault KVv2 secret and hands rotated server API
// keys to apply whenever the secret version advances
type APIKeyWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	apply        func(keys []string)
	metrics      *observability.Metrics
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
}

// NewAPIKeyWatcher creates a watcher for the "keys" field at secretPath
func NewAPIKeyWatcher(client SecretReader, secretPath string, pollInterval time.Duration, apply func([]string), metrics *observability.Metrics, logger *errors.Logger) *APIKeyWatcher {
	if pollInterval <= 0 {
		pollInterval = defaultKeyPollInterval
	}
	return &APIKeyWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		apply:        apply,
		metrics:      metrics,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start records the current secret version and begins polling
func (kw *APIKeyWatcher) Start() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("API key watcher is already running")
	}

	if secret, err := kw.client.GetSecretV2(kw.secretPath); err == nil {
		kw.lastVersion = secret.Version
	} else if kw.logger != nil {
		kw.logger.Warn("Could not read initial API key secret version", "secret_path", kw.secretPath, "error", err)
	}

	kw.running = true
	go kw.pollLoop()
	if kw.logger != nil {
		kw.logger.Info("API key watcher started", "secret_path", kw.secretPath, "poll_interval", kw.pollInterval)
	}
	return nil
}

// Stop stops polling
func (kw *APIKeyWatcher) Stop() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if !kw.running {
		return nil
	}
	close(kw.stopChan)
	kw.running = false
	if kw.logger != nil {
		kw.logger.Info("API key watcher stopped")
	}
	return nil
}

func (kw *APIKeyWatcher) pollLoop() {
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := kw.Poll(); err != nil && kw.logger != nil {
				kw.logger.LogError(err, "Failed to refresh API keys from Vault")
			}
		case <-kw.stopChan:
			return
		}
	}
}

// Poll checks the secret once and applies new keys if its version moved.
// It reports whether keys were applied.
func (kw *APIKeyWatcher) Poll() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		kw.recordFailure(err)
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	kw.mu.RLock()
	changed := secret.Version > kw.lastVersion
	kw.mu.RUnlock()
	if !changed {
		return false, nil
	}

	keys, err := kw.client.GetStringSliceSecret(kw.secretPath, "keys")
	if err != nil {
		kw.recordFailure(err)
		return false, fmt.Errorf("failed to fetch rotated API keys: %w", err)
	}
	if len(keys) == 0 {
		err := fmt.Errorf("secret %s version %d holds no API keys", kw.secretPath, secret.Version)
		kw.recordFailure(err)
		return false, err
	}

	kw.apply(keys)

	kw.mu.Lock()
	kw.lastVersion = secret.Version
	kw.lastError = ""
	kw.mu.Unlock()

	kw.metrics.RecordAPIKeyReload(context.Background(), true)
	if kw.logger != nil {
		kw.logger.Info("Server API keys rotated from Vault", "version", secret.Version, "count", len(keys))
	}
	return true, nil
}

func (kw *APIKeyWatcher) recordFailure(err error) {
	kw.mu.Lock()
	kw.lastError = err.Error()
	kw.mu.Unlock()
	kw.metrics.RecordAPIKeyReload(context.Background(), false)
}

// Status returns the current status of the watcher for the stats endpoint
func (kw *APIKeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	status := map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
	}
	if kw.lastError != "" {
		status["last_error"] = kw.lastError
	}
	return status
}
