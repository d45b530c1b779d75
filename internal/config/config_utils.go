package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"resumeseo/internal/types"
)

// Envelope names accepted by server.envelope
const (
	EnvelopeBare    = "bare"
	EnvelopeWrapped = "wrapped"
)

// Providers accepted by ai.provider
const (
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

// legacyAPIKeyEnvVars are consulted, in order, when ai.apiKey is empty
var legacyAPIKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAIKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
}

// applyAIKeyFallbacks reads the provider key from the variables the Gemini
// SDK itself recognises
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey != "" {
		return
	}
	for _, name := range legacyAPIKeyEnvVars {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			c.AI.APIKey = value
			return
		}
	}
}

// applyServerAPIKeyFallbacks normalises server API keys, which may arrive as
// one comma separated string from the environment
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(EnvPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = []string{apiKeysEnv}
		}
	}
	c.Server.APIKeys = splitAndTrim(strings.Join(c.Server.APIKeys, ","))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid. A missing model API key is
// not a configuration error here: it is reported per request instead.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGemini, ProviderStatic:
	default:
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.MaxRetries < 0 || c.AI.MaxRetries > 1 {
		return fmt.Errorf("ai.maxRetries must be 0 or 1, got %d", c.AI.MaxRetries)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.AI.Temperature)
	}

	if _, err := types.LookupFieldSet(c.Analysis.FieldSet); err != nil {
		return err
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.Envelope != EnvelopeBare && c.Server.Envelope != EnvelopeWrapped {
		return fmt.Errorf("invalid server envelope: %s (expected %s or %s)", c.Server.Envelope, EnvelopeBare, EnvelopeWrapped)
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// FieldSet resolves the configured score breakdown field set
func (c *Config) FieldSet() types.FieldSet {
	fs, err := types.LookupFieldSet(c.Analysis.FieldSet)
	if err != nil {
		return types.MustFieldSet(types.FieldSetCompact)
	}
	return fs
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := append([]string{
		EnvPrefix + "_AI_APIKEY",
		EnvPrefix + "_AI_PROVIDER",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_ANALYSIS_FIELDSET",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
	}, legacyAPIKeyEnvVars...)

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.HasAPIKey() {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Score field set: %s", c.Analysis.FieldSet)
	log.Printf("[CONFIG] Server: %s:%s (envelope %s)", c.Server.Host, c.Server.Port, c.Server.Envelope)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
