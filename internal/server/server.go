// Package server exposes the analyzer over HTTP.
package server

import (
	"slices"
	"strings"
	"sync"
	"time"

	"resumeseo/internal/ai"
	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/observability"
)

// AnalyzeRequest is the body accepted by /api/analyze
type AnalyzeRequest struct {
	ResumeText string `json:"resume_text"`
	UserEmail  string `json:"user_email,omitempty" validate:"omitempty,email"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WrappedAnalysis is the response shape used when the envelope is "wrapped"
type WrappedAnalysis struct {
	Analysis     any    `json:"analysis"`
	ResumeLength int    `json:"resume_length"`
	WordCount    int    `json:"word_count"`
	Timestamp    string `json:"timestamp"`
}

// Server holds the HTTP binding of an ai.Service
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config
	TLSConfig config.TLSConfig

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	Envelope      string
	StripPrefixes []string

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	service       *ai.Service
	observability *observability.Manager
	logger        *errors.Logger

	keysMu  sync.RWMutex
	apiKeys map[string]bool

	certReloader *CertReloader
	keyWatcher   *APIKeyWatcher
}

// NewServer binds service to the HTTP settings in appCfg. obs may be nil.
func NewServer(appCfg *config.Config, service *ai.Service, obs *observability.Manager, logger *errors.Logger) *Server {
	cfg := appCfg.Server

	var rateLimiter *RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	envelope := cfg.Envelope
	if envelope == "" {
		envelope = config.EnvelopeBare
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        service.Version(),
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLS,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		Envelope:       envelope,
		StripPrefixes:  slices.Clone(cfg.StripPrefixes),
		RateLimit:      &cfg.RateLimit,
		RateLimiter:    rateLimiter,
		service:        service,
		observability:  obs,
		logger:         logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted API keys. An empty set disables auth.
func (s *Server) SetAPIKeys(keys []string) {
	// Convert API keys slice to map for O(1) lookup
	keyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			keyMap[key] = true
		}
	}

	s.keysMu.Lock()
	s.apiKeys = keyMap
	s.keysMu.Unlock()
}

// authEnabled reports whether at least one key is configured
func (s *Server) authEnabled() bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys) > 0
}

func (s *Server) validAPIKey(key string) bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return s.apiKeys[key]
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys)
}
