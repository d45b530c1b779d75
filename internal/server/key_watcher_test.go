package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
)

// fakeSecrets is an in-memory KVv2 store
type fakeSecrets struct {
	mu      sync.Mutex
	version int64
	keys    []string
	err     error
}

func (f *fakeSecrets) set(version int64, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version, f.keys = version, keys
}

func (f *fakeSecrets) GetSecretV2(path string) (*config.VaultSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &config.VaultSecret{Data: map[string]any{"keys": fmt.Sprint(f.keys)}, Version: f.version}, nil
}

func (f *fakeSecrets) GetStringSliceSecret(path, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.keys...), nil
}

func TestAPIKeyWatcherAppliesNewVersions(t *testing.T) {
	secrets := &fakeSecrets{}
	secrets.set(1, "initial")

	var applied [][]string
	kw := NewAPIKeyWatcher(secrets, "secret/data/resumeseo/api-keys", time.Hour,
		func(keys []string) { applied = append(applied, keys) }, nil, errors.NewNopLogger())
	require.NoError(t, kw.Start())
	t.Cleanup(func() { _ = kw.Stop() })

	changed, err := kw.Poll()
	require.NoError(t, err)
	assert.False(t, changed, "the version seen at start is already applied")

	secrets.set(2, "rotated-a", "rotated-b")
	changed, err = kw.Poll()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, [][]string{{"rotated-a", "rotated-b"}}, applied)
	assert.EqualValues(t, 2, kw.Status()["last_version"])

	changed, err = kw.Poll()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAPIKeyWatcherIgnoresEmptyKeySets(t *testing.T) {
	secrets := &fakeSecrets{}
	secrets.set(1)

	called := false
	kw := NewAPIKeyWatcher(secrets, "path", time.Hour, func([]string) { called = true }, nil, errors.NewNopLogger())

	changed, err := kw.Poll()
	require.Error(t, err)
	assert.False(t, changed)
	assert.False(t, called)
	assert.Contains(t, kw.Status()["last_error"], "holds no API keys")
}

func TestAPIKeyWatcherReportsReadErrors(t *testing.T) {
	secrets := &fakeSecrets{err: fmt.Errorf("vault sealed")}
	kw := NewAPIKeyWatcher(secrets, "path", 0, func([]string) {}, nil, errors.NewNopLogger())
	assert.Equal(t, defaultKeyPollInterval, kw.pollInterval)

	_, err := kw.Poll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault sealed")
}

func TestAPIKeyWatcherRotatesServerKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"old-key-0001"}
	s := newTestServer(t, cfg, replyGateway(sampleReply(t), nil))
	h := s.Handler()

	secrets := &fakeSecrets{}
	secrets.set(5, "new-key-0002")
	kw := NewAPIKeyWatcher(secrets, "path", time.Hour, s.SetAPIKeys, nil, errors.NewNopLogger())

	changed, err := kw.Poll()
	require.NoError(t, err)
	require.True(t, changed)

	assert.Equal(t, 401, do(t, h, "POST", "/api/analyze/sample", "", "X-API-Key", "old-key-0001").Code)
	assert.Equal(t, 200, do(t, h, "POST", "/api/analyze/sample", "", "X-API-Key", "new-key-0002").Code)
}

func TestAPIKeyWatcherStartTwice(t *testing.T) {
	kw := NewAPIKeyWatcher(&fakeSecrets{}, "path", time.Hour, func([]string) {}, nil, errors.NewNopLogger())
	require.NoError(t, kw.Start())
	assert.Error(t, kw.Start())
	require.NoError(t, kw.Stop())
	require.NoError(t, kw.Stop())
	assert.Equal(t, false, kw.Status()["running"])
}
