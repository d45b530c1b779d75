package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// flagBindings maps config keys to flag names, per command name. Only flags
// the user sets override the config file and environment.
var flagBindings = map[string]map[string]string{}

func bindFlags(cmd *cobra.Command, bindings map[string]string) {
	flagBindings[cmd.Name()] = bindings
}

var rootCmd = &cobra.Command{
	Use:   "resumeseo",
	Short: "Analyze resumes for search and ATS optimization",
	Long: `resumeseo analyzes a resume with a generative model and reports how well
it will rank in recruiter searches and applicant tracking systems: missing
keywords, prioritized recommendations, and a scored breakdown.

Run it once from the command line, or serve the same analysis over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

// Execute runs the command line with ctx as the root context
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadRuntime loads the configuration and logger once flags are parsed and
// attaches them to the command context
func loadRuntime(cmd *cobra.Command, _ []string) error {
	bindings := map[string]string{"app.logLevel": "log-level"}
	for key, name := range flagBindings[cmd.Name()] {
		bindings[key] = name
	}

	cfg, err := config.LoadConfigWithFlags(cmd.Flags(), bindings)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	logger.Debug("Configuration loaded",
		"command", cmd.Name(),
		"version", Version,
		"ai_provider", cfg.AI.Provider,
		"field_set", cfg.Analysis.FieldSet)

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
