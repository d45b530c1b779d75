package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"resumeseo/internal/ai"
	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/observability"
)

// runtime bundles what every command needs once the config is loaded
type runtime struct {
	cfg     *config.Config
	logger  *errors.Logger
	obs     *observability.Manager
	service *ai.Service
}

// newRuntime builds observability, the model gateway and the analysis
// service. Call close when the command finishes.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	obs, err := observability.NewManager(cfg.Observability, Version, logger)
	if err != nil {
		return nil, err
	}

	fs := cfg.FieldSet()
	gateway, err := ai.NewGateway(&cfg.AI, fs, logger)
	if err != nil {
		_ = obs.Shutdown(context.Background())
		return nil, err
	}

	service := ai.NewService(cfg, gateway, logger,
		ai.WithVersion(Version),
		ai.WithMetrics(obs.Metrics()))

	return &runtime{cfg: cfg, logger: logger, obs: obs, service: service}, nil
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.obs.Shutdown(ctx); err != nil {
		rt.logger.LogError(err, "Failed to shutdown observability")
	}
}
