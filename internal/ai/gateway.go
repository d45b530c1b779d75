package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

// Gateway sends a fully rendered prompt to a model and returns its raw reply
type Gateway interface {
	Invoke(ctx context.Context, prompt string) (*Reply, error)
}

// Reply is the unparsed text of a model completion
type Reply struct {
	Text  string
	Model string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from model responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// FuncGateway adapts an ordinary function to the Gateway interface
type FuncGateway func(ctx context.Context, prompt string) (*Reply, error)

// Invoke calls f(ctx, prompt)
func (f FuncGateway) Invoke(ctx context.Context, prompt string) (*Reply, error) {
	return f(ctx, prompt)
}

// StatsProvider is implemented by gateways that can report breaker state
type StatsProvider interface {
	Stats() map[string]any
}

// NewStaticGateway replies with the canned sample analysis for fs. It never
// leaves the process and is meant for demos and offline use.
func NewStaticGateway(fs types.FieldSet) (Gateway, error) {
	payload, err := json.Marshal(types.SampleAnalysis(fs))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to encode sample analysis", err)
	}
	text := string(payload)

	return FuncGateway(func(ctx context.Context, _ string) (*Reply, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewGatewayError(errors.ErrCodeModelTimeout, "request cancelled", err)
		}
		return &Reply{Text: text, Model: config.ProviderStatic}, nil
	}), nil
}

// NewGateway builds the gateway selected by cfg.Provider
func NewGateway(cfg *config.AIConfig, fs types.FieldSet, logger *errors.Logger) (Gateway, error) {
	logger.Debug("Initializing model gateway",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
		"structured_output", cfg.StructuredOutput,
		"field_set", fs.Name)

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiGateway(cfg, fs, logger), nil
	case config.ProviderStatic:
		return NewStaticGateway(fs)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeUnknownProvider,
			fmt.Sprintf("unsupported AI provider: %s", cfg.Provider), nil)
	}
}
