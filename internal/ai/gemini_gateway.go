package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/schema"
	"resumeseo/internal/types"
)

const (
	defaultModelTimeout = 30 * time.Second
	maxRetryCap         = 1
)

var retryBaseDelay = time.Second

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiGateway calls Google Gemini through the genai SDK
type GeminiGateway struct {
	config         *config.AIConfig
	fieldSet       types.FieldSet
	circuitBreaker *ModelCircuitBreaker
	logger         *errors.Logger

	mu       sync.Mutex
	generate generateFunc
}

var _ Gateway = (*GeminiGateway)(nil)

// NewGeminiGateway creates the gateway without contacting the provider.
// The SDK client is built on the first Invoke so that a missing key is
// reported per request instead of at startup.
func NewGeminiGateway(cfg *config.AIConfig, fs types.FieldSet, logger *errors.Logger) *GeminiGateway {
	return &GeminiGateway{
		config:         cfg,
		fieldSet:       fs,
		circuitBreaker: NewModelCircuitBreaker("gemini-"+cfg.Model, cfg.CircuitBreaker, logger),
		logger:         logger,
	}
}

// Invoke sends prompt to the configured model and returns the reply text
func (g *GeminiGateway) Invoke(ctx context.Context, prompt string) (*Reply, error) {
	if strings.TrimSpace(g.config.APIKey) == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured; set ai.apiKey or "+config.EnvPrefix+"_AI_APIKEY", nil)
	}

	generate, err := g.generator(ctx)
	if err != nil {
		return nil, err
	}

	timeout := g.config.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracer := otel.Tracer("resumeseo.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", config.ProviderGemini),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.String("analysis.field_set", g.fieldSet.Name),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	genConfig := g.buildGenerateConfig()
	contents := genai.Text(prompt)

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, func() (*genai.GenerateContentResponse, error) {
			resp, err := generate(ctx, g.config.Model, contents, genConfig)
			if err != nil {
				return nil, err
			}
			if resp == nil || strings.TrimSpace(resp.Text()) == "" {
				return nil, errors.NewGatewayError(errors.ErrCodeModelEmptyReply, "model returned an empty reply", nil)
			}
			return resp, nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		span.SetAttributes(attribute.Bool("success", false))
		return nil, g.classify(ctx, err)
	}

	reply := &Reply{
		Text:  result.Text(),
		Model: g.config.Model,
		Usage: extractTokenUsage(result),
	}
	if reply.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", reply.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", reply.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", reply.Usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return reply, nil
}

// Stats reports the breaker state for the stats endpoint
func (g *GeminiGateway) Stats() map[string]any {
	return map[string]any{
		"provider":        config.ProviderGemini,
		"model":           g.config.Model,
		"circuit_breaker": g.circuitBreaker.GetStats(),
		"healthy":         g.circuitBreaker.IsHealthy(),
	}
}

func (g *GeminiGateway) generator(ctx context.Context) (generateFunc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.generate != nil {
		return g.generate, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewGatewayError(errors.ErrCodeModelFailed, "failed to create Gemini client", err)
	}
	g.generate = client.Models.GenerateContent
	return g.generate, nil
}

func (g *GeminiGateway) buildGenerateConfig() *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		genConfig.Temperature = &temperature
	}
	if g.config.StructuredOutput {
		genConfig.ResponseMIMEType = "application/json"
		genConfig.ResponseSchema = responseSchema(g.fieldSet)
	}
	return genConfig
}

// executeWithRetry retries transient failures at most once, after a jittered
// backoff. Cancellation of ctx aborts the wait.
func (g *GeminiGateway) executeWithRetry(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	retries := min(max(g.config.MaxRetries, 0), maxRetryCap)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying model call",
				"model", g.config.Model,
				"attempt", attempt,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffWithJitter(retryBaseDelay)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	g.logger.LogError(lastErr, "Model call failed", "model", g.config.Model)
	return nil, lastErr
}

// classify maps a low-level failure onto the gateway error taxonomy
func (g *GeminiGateway) classify(ctx context.Context, err error) error {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case isBreakerRejection(err):
		return errors.NewGatewayError(errors.ErrCodeCircuitOpen, "model temporarily unavailable, circuit breaker is open", err)
	case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewGatewayError(errors.ErrCodeModelTimeout, "model call timed out", err)
	default:
		return errors.NewGatewayError(errors.ErrCodeModelFailed, "model call failed", err)
	}
}

// isRetryableError reports whether err is a transient transport or provider failure
func isRetryableError(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		switch genaiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// backoffWithJitter adds up to 10% random jitter to base
func backoffWithJitter(base time.Duration) time.Duration {
	jitterMax := big.NewInt(int64(float64(base)*0.1) + 1)
	jitter, err := rand.Int(rand.Reader, jitterMax)
	if err != nil {
		return base
	}
	return base + time.Duration(jitter.Int64())
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// responseSchema mirrors schema.JSONSchema in the SDK's schema type
func responseSchema(fs types.FieldSet) *genai.Schema {
	minScore, maxScore := float64(schema.MinScore), float64(schema.MaxScore)
	score := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeInteger, Minimum: &minScore, Maximum: &maxScore}
	}

	priorities := make([]string, len(types.Priorities))
	for i, p := range types.Priorities {
		priorities[i] = string(p)
	}

	breakdown := map[string]*genai.Schema{}
	for _, key := range fs.Keys() {
		breakdown[key] = score()
	}
	if fs.Explanation {
		breakdown["explanation"] = &genai.Schema{Type: genai.TypeString}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"current_role":    {Type: genai.TypeString},
			"target_industry": {Type: genai.TypeString},
			"missing_keywords": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"seo_recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category":       {Type: genai.TypeString},
						"recommendation": {Type: genai.TypeString},
						"priority":       {Type: genai.TypeString, Enum: priorities},
						"implementation": {Type: genai.TypeString},
					},
					Required: []string{"category", "recommendation", "priority", "implementation"},
				},
			},
			"overall_score": score(),
			"score_breakdown": {
				Type:       genai.TypeObject,
				Properties: breakdown,
				Required:   fs.Keys(),
			},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"target_industry", "missing_keywords", "seo_recommendations", "overall_score", "score_breakdown", "summary"},
	}
}
