package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeseo/internal/ai"
	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

const testVersion = "1.2.3"

func testConfig() *config.Config {
	return &config.Config{
		AI:       config.AIConfig{Provider: config.ProviderStatic, Model: "gemini-2.5-flash"},
		Analysis: config.AnalysisConfig{FieldSet: types.FieldSetCompact},
		Server: config.ServerConfig{
			Host:           "localhost",
			Port:           "0",
			ServiceName:    "Resume SEO Analyzer",
			MaxRequestSize: 1024 * 1024,
			Envelope:       config.EnvelopeBare,
			StripPrefixes:  []string{"/prod", "/Prod"},
		},
	}
}

func sampleReply(t *testing.T) string {
	t.Helper()
	payload, err := json.Marshal(types.SampleAnalysis(types.MustFieldSet(types.FieldSetCompact)))
	require.NoError(t, err)
	return string(payload)
}

func replyGateway(reply string, calls *int32) ai.Gateway {
	return ai.FuncGateway(func(context.Context, string) (*ai.Reply, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return &ai.Reply{Text: reply}, nil
	})
}

func newTestServer(t *testing.T, cfg *config.Config, gw ai.Gateway) *Server {
	t.Helper()
	logger := errors.NewNopLogger()
	svc := ai.NewService(cfg, gw, logger, ai.WithVersion(testVersion))
	s := NewServer(cfg, svc, nil, logger)
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRootAndHealth(t *testing.T) {
	var calls int32
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), &calls)).Handler()

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "Resume SEO Analyzer API", "version": testVersion}, decode(t, rec))
	assertCORS(t, rec)

	rec = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Resume SEO Analyzer", body["service"])
	assert.Equal(t, testVersion, body["version"])
	assert.Equal(t, false, body["api_key_configured"])

	assert.Zero(t, atomic.LoadInt32(&calls), "health must not contact the model")
}

func TestOptionsPreflight(t *testing.T) {
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), nil)).Handler()

	for _, path := range []string{"/api/analyze", "/health", "/does/not/exist"} {
		rec := do(t, h, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assertCORS(t, rec)
	}
}

func TestUnknownRoutes(t *testing.T) {
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), nil)).Handler()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/api/unknown"},
		{http.MethodGet, "/api/analyze"},
		{http.MethodPost, "/health"},
		{http.MethodDelete, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, map[string]any{"detail": "Endpoint not found"}, decode(t, rec))
			assertCORS(t, rec)
		})
	}
}

func TestSampleEndpoint(t *testing.T) {
	var calls int32
	cfg := testConfig()
	h := newTestServer(t, cfg, replyGateway(sampleReply(t), &calls)).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze/sample", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	assert.Contains(t, first, `"overall_score":7`)

	rec = do(t, h, http.MethodPost, "/api/analyze/sample", "")
	assert.Equal(t, first, rec.Body.String(), "sample must be deterministic")
	assert.Zero(t, atomic.LoadInt32(&calls))

	cfg.Server.Envelope = config.EnvelopeWrapped
	h = newTestServer(t, cfg, replyGateway(sampleReply(t), nil)).Handler()
	body := decode(t, do(t, h, http.MethodPost, "/api/analyze/sample", ""))
	assert.Equal(t, "sample", body["timestamp"])
	assert.EqualValues(t, types.SampleWordCount, body["word_count"])
	assert.EqualValues(t, types.SampleResumeLength, body["resume_length"])
	assert.Contains(t, body, "analysis")
}

func TestAnalyzeSuccess(t *testing.T) {
	var calls int32
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), &calls)).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze", `{"resume_text":"Jane Doe\nGo developer","user_email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis types.ResumeAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, 7, analysis.OverallScore)
	assert.Equal(t, "Technology", analysis.TargetIndustry)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAnalyzeWrappedEnvelope(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Envelope = config.EnvelopeWrapped
	h := newTestServer(t, cfg, replyGateway(sampleReply(t), nil)).Handler()

	text := "Jane Doe Go developer"
	rec := do(t, h, http.MethodPost, "/api/analyze", `{"resume_text":"`+text+`"}`, "X-Request-Id", "req-42")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.EqualValues(t, len(text), body["resume_length"])
	assert.EqualValues(t, 4, body["word_count"])
	assert.Equal(t, "req-42", body["timestamp"])
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, analysis["overall_score"])
}

func TestAnalyzeBadRequests(t *testing.T) {
	var calls int32
	cfg := testConfig()
	cfg.Server.MaxRequestSize = 64
	h := newTestServer(t, cfg, replyGateway(sampleReply(t), &calls)).Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"empty body", "", http.StatusBadRequest, "Resume text is required"},
		{"blank text", `{"resume_text":"   "}`, http.StatusBadRequest, "Resume text is required"},
		{"missing text", `{}`, http.StatusBadRequest, "Resume text is required"},
		{"malformed json", `{"resume_text":`, http.StatusBadRequest, "Invalid request body"},
		{"bad email", `{"resume_text":"x","user_email":"nope"}`, http.StatusBadRequest, "UserEmail failed email validation"},
		{"too large", `{"resume_text":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge, "Request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decode(t, rec)["detail"], tt.wantDetail)
			assertCORS(t, rec)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls), "invalid requests must not reach the model")
}

func TestAnalyzeAcceptsAnyContentType(t *testing.T) {
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), nil)).Handler()

	for _, ct := range []string{"text/plain", "application/x-www-form-urlencoded", "not a media type"} {
		rec := do(t, h, http.MethodPost, "/api/analyze", `{"resume_text":"Go developer"}`, "Content-Type", ct)
		assert.Equal(t, http.StatusOK, rec.Code, ct)
		assert.Contains(t, decode(t, rec), "overall_score", ct)
	}

	rec := do(t, h, http.MethodPost, "/api/analyze", `resume_text=Go`, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "Invalid request body")
}

func TestAnalyzeFailuresMapTo500(t *testing.T) {
	cfg := testConfig()
	missingKey := cfg.AI
	missingKey.Provider = config.ProviderGemini

	tests := []struct {
		name       string
		gateway    ai.Gateway
		wantDetail string
	}{
		{
			name: "gateway failure",
			gateway: ai.FuncGateway(func(context.Context, string) (*ai.Reply, error) {
				return nil, errors.NewGatewayError(errors.ErrCodeModelFailed, "model call failed", fmt.Errorf("503"))
			}),
			wantDetail: "Analysis failed: model call failed",
		},
		{
			name:       "reply without payload",
			gateway:    replyGateway("I cannot help with that.", nil),
			wantDetail: "Analysis failed:",
		},
		{
			name:       "reply violating schema",
			gateway:    replyGateway(`{"overall_score": 42}`, nil),
			wantDetail: "Analysis failed: analysis does not match the expected schema",
		},
		{
			name:       "missing model key",
			gateway:    ai.NewGeminiGateway(&missingKey, cfg.FieldSet(), errors.NewNopLogger()),
			wantDetail: "Gemini API key is not configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, testConfig(), tt.gateway).Handler()
			rec := do(t, h, http.MethodPost, "/api/analyze", `{"resume_text":"Jane Doe"}`)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, decode(t, rec)["detail"], tt.wantDetail)
		})
	}
}

func TestPanicBecomes500(t *testing.T) {
	gw := ai.FuncGateway(func(context.Context, string) (*ai.Reply, error) {
		panic("boom")
	})
	h := newTestServer(t, testConfig(), gw).Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze", `{"resume_text":"Jane Doe"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error: boom", decode(t, rec)["detail"])
	assertCORS(t, rec)
}

func TestStagePrefixesAreStripped(t *testing.T) {
	h := newTestServer(t, testConfig(), replyGateway(sampleReply(t), nil)).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/prod/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/Prod", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/prod/api/analyze/sample", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/production/health", "").Code)
}

func TestStripPath(t *testing.T) {
	s := &Server{StripPrefixes: []string{"/prod", "/stage/", ""}}

	tests := []struct {
		in, want string
		stripped bool
	}{
		{"/prod/health", "/health", true},
		{"/prod", "/", true},
		{"/stage/api/analyze", "/api/analyze", true},
		{"/products", "/products", false},
		{"/health", "/health", false},
	}
	for _, tt := range tests {
		got, ok := s.stripPath(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.stripped, ok, tt.in)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"key-one-123456"}
	s := newTestServer(t, cfg, replyGateway(sampleReply(t), nil))
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/analyze/sample", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "Missing API key")

	rec = do(t, h, http.MethodPost, "/api/analyze/sample", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", decode(t, rec)["detail"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/analyze/sample", "", "X-API-Key", "key-one-123456").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/analyze/sample", "", "Authorization", "Bearer key-one-123456").Code)

	// Public endpoints stay open
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	s.SetAPIKeys([]string{"key-two-654321"})
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/analyze/sample", "", "X-API-Key", "key-one-123456").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/analyze/sample", "", "X-API-Key", "key-two-654321").Code)

	s.SetAPIKeys(nil)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/analyze/sample", "").Code)
}

func TestRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  2,
		ByIP:           true,
	}
	h := newTestServer(t, cfg, replyGateway(sampleReply(t), nil)).Handler()

	for i := range 2 {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/analyze/sample", "").Code, "request %d", i)
	}
	rec := do(t, h, http.MethodPost, "/api/analyze/sample", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "Rate limit exceeded")
	assertCORS(t, rec)

	// A different client has its own bucket
	rec = do(t, h, http.MethodPost, "/api/analyze/sample", "", "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health is never limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestStatsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 5, ByIP: true}
	h := newTestServer(t, cfg, replyGateway(sampleReply(t), nil)).Handler()

	rec := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, testVersion, body["version"])
	limiting, ok := body["rate_limiting"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 5, limiting["burst_capacity"])
	model, ok := body["model"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, model, "circuit_breaker")
	server, ok := body["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "compact", server["field_set"])
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		{errors.NewValidationError(errors.ErrCodeEmptyResume, "Resume text is required", nil), 400, "Resume text is required"},
		{errors.NewConfigError(errors.ErrCodeMissingAPIKey, "key missing", nil), 500, "key missing"},
		{errors.NewGatewayError(errors.ErrCodeModelTimeout, "model call timed out", nil), 500, "Analysis failed: model call timed out"},
		{errors.NewInterpretationError(errors.ErrCodeNoPayload, "no payload", nil), 500, "Analysis failed: no payload"},
		{errors.NewSchemaViolation(errors.ErrCodeSchemaViolation, "bad shape", nil), 500, "Analysis failed: bad shape"},
		{errors.NewInternalError(errors.ErrCodeInternal, "oops", nil), 500, "Internal server error: oops"},
		{fmt.Errorf("plain"), 500, "Internal server error: plain"},
	}
	for _, tt := range tests {
		status, detail := errorDetail(tt.err)
		assert.Equal(t, tt.wantStatus, status, tt.wantDetail)
		assert.Equal(t, tt.wantDetail, detail)
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
