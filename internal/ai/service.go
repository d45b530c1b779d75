package ai

import (
	"context"
	"strings"
	"time"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/observability"
	"resumeseo/internal/schema"
	"resumeseo/internal/types"
)

// HealthStatus is reported by the health endpoint
type HealthStatus struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Version          string `json:"version"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// Service runs analyses independently of any transport. It is safe for
// concurrent use as long as its Gateway is.
type Service struct {
	gateway          Gateway
	prompts          *PromptBuilder
	fieldSet         types.FieldSet
	serviceName      string
	version          string
	apiKeyConfigured bool
	metrics          *observability.Metrics
	logger           *errors.Logger
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithMetrics records every analysis on m
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithVersion sets the version reported by Health
func WithVersion(version string) ServiceOption {
	return func(s *Service) { s.version = version }
}

// NewService creates a service around an already built gateway
func NewService(cfg *config.Config, gateway Gateway, logger *errors.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		gateway:          gateway,
		prompts:          NewPromptBuilder(cfg.AI.Prompts),
		fieldSet:         cfg.FieldSet(),
		serviceName:      cfg.Server.ServiceName,
		version:          "dev",
		apiKeyConfigured: cfg.HasAPIKey(),
		logger:           logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FieldSet returns the score breakdown shape this service produces
func (s *Service) FieldSet() types.FieldSet {
	return s.fieldSet
}

// Health never contacts the model
func (s *Service) Health() HealthStatus {
	return HealthStatus{
		Status:           "healthy",
		Service:          s.serviceName,
		Version:          s.version,
		APIKeyConfigured: s.apiKeyConfigured,
	}
}

// Version reports the service version
func (s *Service) Version() string {
	return s.version
}

// Sample returns the canned analysis without contacting the model
func (s *Service) Sample(ctx context.Context) *types.ResumeAnalysis {
	analysis := types.SampleAnalysis(s.fieldSet)
	s.metrics.RecordAnalysis(ctx, observability.AnalysisObservation{
		Source:       "sample",
		Outcome:      observability.OutcomeSuccess,
		ResumeLength: types.SampleResumeLength,
		OverallScore: analysis.OverallScore,
	})
	return analysis
}

// Analyze builds the prompt, invokes the model and interprets its reply.
// Blank input is rejected before the gateway is touched; anything else is
// sent to the model exactly as given.
func (s *Service) Analyze(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error) {
	text := resumeText
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyResume, "Resume text is required", nil)
	}

	start := time.Now()
	obs := observability.AnalysisObservation{Source: "model", ResumeLength: len(text)}

	analysis, usage, err := s.analyze(ctx, text)
	obs.Duration = time.Since(start)
	if usage != nil {
		obs.InputTokens = usage.InputTokens
		obs.OutputTokens = usage.OutputTokens
	}

	if err != nil {
		obs.Outcome = observability.OutcomeFailure
		obs.ErrorType = string(errors.TypeOf(err))
		s.metrics.RecordAnalysis(ctx, obs)
		s.logger.LogError(err, "Resume analysis failed", "resume_length", len(text))
		return nil, err
	}

	obs.Outcome = observability.OutcomeSuccess
	obs.OverallScore = analysis.OverallScore
	s.metrics.RecordAnalysis(ctx, obs)
	s.logger.Info("Resume analysis completed",
		"resume_length", len(text),
		"overall_score", analysis.OverallScore,
		"recommendations", len(analysis.SEORecommendations),
		"duration_ms", obs.Duration.Milliseconds())

	return analysis, nil
}

func (s *Service) analyze(ctx context.Context, text string) (*types.ResumeAnalysis, *TokenUsage, error) {
	prompt := s.prompts.Build(text, schema.Describe(s.fieldSet))

	reply, err := s.gateway.Invoke(ctx, prompt)
	if err != nil {
		if errors.TypeOf(err) == "" {
			err = errors.NewGatewayError(errors.ErrCodeModelFailed, "model call failed", err)
		}
		return nil, nil, err
	}

	analysis, err := Interpret(reply.Text, s.fieldSet)
	if err != nil {
		return nil, reply.Usage, err
	}
	return analysis, reply.Usage, nil
}

// Stats reports gateway statistics when the gateway exposes them
func (s *Service) Stats() map[string]any {
	if sp, ok := s.gateway.(StatsProvider); ok {
		return sp.Stats()
	}
	return map[string]any{"circuit_breaker": map[string]any{"enabled": false}}
}
