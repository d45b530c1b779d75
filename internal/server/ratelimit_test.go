package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resumeseo/internal/errors"
)

func TestRateLimiterPerKeyBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 2, errors.NewNopLogger())
	defer rl.Close()

	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.False(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.2"))

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.InDelta(t, 1.0, stats["rate_per_second"], 1e-9)
	assert.Equal(t, 2, stats["burst_capacity"])
}

func TestRateLimiterCleanupAndClose(t *testing.T) {
	rl := NewRateLimiter(60, 0, errors.NewNopLogger())
	assert.Equal(t, 1, rl.burst, "burst is at least one token")

	rl.Allow("ip:10.0.0.1")
	rl.cleanup(-time.Second)
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])

	rl.Close()
	rl.Close()
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{"ip from remote addr", nil, false, true, "ip:192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "bogus, 203.0.113.9"}, false, true, "ip:203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, false, true, "ip:198.51.100.4"},
		{"api key header", map[string]string{"X-API-Key": "k1"}, true, true, "api_key:k1"},
		{"bearer token", map[string]string{"Authorization": "Bearer k2"}, true, false, "api_key:k2"},
		{"api key missing falls back to ip", nil, true, true, "ip:192.0.2.1"},
		{"nothing enabled", map[string]string{"X-API-Key": "k1"}, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/analyze", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(req, tt.byAPIKey, tt.byIP))
		})
	}
}
