package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeseo/internal/errors"
)

type fakeSecretSource struct {
	secrets map[string]*VaultSecret
}

func (f *fakeSecretSource) GetSecretV2(path string) (*VaultSecret, error) {
	if secret, ok := f.secrets[path]; ok {
		return secret, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func (f *fakeSecretSource) GetStringSecret(path, key string) (string, error) {
	secret, err := f.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func (f *fakeSecretSource) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := f.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitAndTrim(value), nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2(map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": json.Number("3")},
	}, "secret/data/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = parseKVv2(map[string]any{"api_key": "abc"}, "secret/gemini")
	assert.ErrorContains(t, err, "not in KVv2 format")
}

func TestApplySecrets(t *testing.T) {
	source := &fakeSecretSource{secrets: map[string]*VaultSecret{
		"secret/data/gemini": {Data: map[string]any{"api_key": "vault-gemini-key"}, Version: 1},
		"secret/data/keys":   {Data: map[string]any{"keys": "k1, k2,,k3"}, Version: 2},
		"secret/data/tls":    {Data: map[string]any{"cert": "CERT", "key": "KEY"}, Version: 5},
	}}

	cfg := &Config{
		AI: AIConfig{APIKey: "env-key"},
		Server: ServerConfig{
			APIKeys: []string{"old"},
			TLS:     TLSConfig{CertFile: "/tmp/cert.pem", KeyFile: "/tmp/key.pem"},
		},
		Vault: VaultConfig{
			Enabled: true,
			Secrets: VaultSecrets{
				GeminiKey: "secret/data/gemini",
				APIKeys:   "secret/data/keys",
				TLSCerts:  "secret/data/tls",
			},
		},
	}

	require.NoError(t, applySecrets(source, cfg, errors.NewNopLogger()))
	assert.Equal(t, "vault-gemini-key", cfg.AI.APIKey)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Empty(t, cfg.Server.TLS.KeyFile)
}

func TestApplySecretsMissingPath(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: true, Secrets: VaultSecrets{GeminiKey: "secret/data/absent"}}}
	err := applySecrets(&fakeSecretSource{}, cfg, nil)
	assert.ErrorContains(t, err, "failed to load Gemini API key from vault")
}

func TestApplyGeminiKeyToConfigIgnoresBlank(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "existing"}}
	applyGeminiKeyToConfig(cfg, "   ")
	assert.Equal(t, "existing", cfg.AI.APIKey)
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, errors.NewNopLogger()))
}

func TestResolveVaultToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "direct"})
	require.NoError(t, err)
	assert.Equal(t, "direct", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.ErrorContains(t, err, "vault token is required")

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to read vault token file")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****wxyz", MaskSecret("AIzaSyD-abcdwxyz"))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "", MaskSecret(""))
}
