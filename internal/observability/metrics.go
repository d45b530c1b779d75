package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome values recorded on analysis metrics
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the custom instruments for the analyzer
type Metrics struct {
	AnalysisDuration metric.Float64Histogram
	AnalysisCount    metric.Int64Counter
	ModelTokens      metric.Int64Counter
	ResumeLength     metric.Int64Histogram
	OverallScore     metric.Int64Histogram

	RateLimitHits metric.Int64Counter
	CertReloads   metric.Int64Counter
	APIKeyReloads metric.Int64Counter
}

// AnalysisObservation describes one finished analysis
type AnalysisObservation struct {
	Source       string // "model" or "sample"
	Outcome      string
	ErrorType    string
	Duration     time.Duration
	ResumeLength int
	OverallScore int
	InputTokens  int64
	OutputTokens int64
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AnalysisDuration, err = meter.Float64Histogram(
		"resumeseo_analysis_duration_seconds",
		metric.WithDescription("Time spent producing a resume analysis"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	if m.AnalysisCount, err = meter.Int64Counter(
		"resumeseo_analyses_total",
		metric.WithDescription("Total number of analyses by source and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis count metric: %w", err)
	}

	if m.ModelTokens, err = meter.Int64Counter(
		"resumeseo_model_tokens_total",
		metric.WithDescription("Model tokens consumed, by direction"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create model token metric: %w", err)
	}

	if m.ResumeLength, err = meter.Int64Histogram(
		"resumeseo_resume_length_chars",
		metric.WithDescription("Length of submitted resume text"),
		metric.WithUnit("{char}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resume length metric: %w", err)
	}

	if m.OverallScore, err = meter.Int64Histogram(
		"resumeseo_overall_score",
		metric.WithDescription("Overall SEO score of successful analyses"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	); err != nil {
		return nil, fmt.Errorf("failed to create overall score metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumeseo_rate_limit_hits_total",
		metric.WithDescription("Total number of rejected rate limited requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit metric: %w", err)
	}

	if m.CertReloads, err = meter.Int64Counter(
		"resumeseo_cert_reloads_total",
		metric.WithDescription("Total number of TLS certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload metric: %w", err)
	}

	if m.APIKeyReloads, err = meter.Int64Counter(
		"resumeseo_api_key_reloads_total",
		metric.WithDescription("Total number of server API key reloads from Vault"),
	); err != nil {
		return nil, fmt.Errorf("failed to create API key reload metric: %w", err)
	}

	return m, nil
}

// RecordAnalysis records one analysis. Safe on a nil receiver.
func (m *Metrics) RecordAnalysis(ctx context.Context, obs AnalysisObservation) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", obs.Source),
		attribute.String("outcome", obs.Outcome),
	}
	if obs.ErrorType != "" {
		attrs = append(attrs, attribute.String("error_type", obs.ErrorType))
	}
	set := metric.WithAttributes(attrs...)

	m.AnalysisCount.Add(ctx, 1, set)
	m.AnalysisDuration.Record(ctx, obs.Duration.Seconds(), set)
	if obs.ResumeLength > 0 {
		m.ResumeLength.Record(ctx, int64(obs.ResumeLength), metric.WithAttributes(attribute.String("source", obs.Source)))
	}
	if obs.Outcome == OutcomeSuccess && obs.OverallScore > 0 {
		m.OverallScore.Record(ctx, int64(obs.OverallScore), metric.WithAttributes(attribute.String("source", obs.Source)))
	}
	if obs.InputTokens > 0 {
		m.ModelTokens.Add(ctx, obs.InputTokens, metric.WithAttributes(attribute.String("direction", "input")))
	}
	if obs.OutputTokens > 0 {
		m.ModelTokens.Add(ctx, obs.OutputTokens, metric.WithAttributes(attribute.String("direction", "output")))
	}
}

// RecordRateLimitHit counts a rejected request, keyed by limiter type
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limiter string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
}

// RecordCertReload counts a certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CertReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordAPIKeyReload counts a server API key refresh from Vault
func (m *Metrics) RecordAPIKeyReload(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.APIKeyReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
