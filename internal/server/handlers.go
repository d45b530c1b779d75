package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resumeseo/internal/config"
	"resumeseo/internal/errors"
	"resumeseo/internal/types"
	"resumeseo/internal/utils"
)

const apiMessage = "Resume SEO Analyzer API"

var requestValidator = validator.New()

// rootHandler answers GET / and reports every other unmatched path as 404
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		s.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": apiMessage,
		"version": s.Version,
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("No route for request", "method", r.Method, "endpoint", r.URL.Path)
	writeErrorResponse(w, "Endpoint not found", http.StatusNotFound)
}

// healthHandler never contacts the model
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Health())
}

// statsHandler reports limiter, breaker and auth state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.notFound(w, r)
		return
	}

	response := map[string]any{
		"service": s.service.Health().Service,
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"envelope":               s.Envelope,
			"field_set":              s.service.FieldSet().Name,
			"api_keys_configured":    s.apiKeyCount(),
		},
		"model": s.service.Stats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.certReloader != nil {
		response["tls"] = s.certReloader.Status()
	}
	if s.keyWatcher != nil {
		response["api_key_rotation"] = s.keyWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// sampleHandler returns the canned analysis
func (s *Server) sampleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.notFound(w, r)
		return
	}

	analysis := s.service.Sample(r.Context())
	if s.Envelope == config.EnvelopeWrapped {
		writeJSON(w, http.StatusOK, WrappedAnalysis{
			Analysis:     analysis,
			ResumeLength: types.SampleResumeLength,
			WordCount:    types.SampleWordCount,
			Timestamp:    types.SampleTimestamp,
		})
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// analyzeHandler runs a full analysis of the posted resume text
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.notFound(w, r)
		return
	}

	ctx, span := s.observability.Tracer("resumeseo.api").Start(r.Context(), "api.analyze")
	defer span.End()

	var req AnalyzeRequest
	if status, err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", string(errors.ErrorTypeValidation)))
		writeErrorResponse(w, err.Message, status)
		return
	}

	span.SetAttributes(
		attribute.Int("request.resume_length", len(req.ResumeText)),
		attribute.String("request.id", RequestID(ctx)),
	)

	analysis, err := s.service.Analyze(ctx, req.ResumeText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
		status, detail := errorDetail(err)
		writeErrorResponse(w, detail, status)
		return
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("analysis.overall_score", analysis.OverallScore),
	)

	if s.Envelope == config.EnvelopeWrapped {
		writeJSON(w, http.StatusOK, WrappedAnalysis{
			Analysis:     analysis,
			ResumeLength: len(req.ResumeText),
			WordCount:    utils.CountWords(req.ResumeText),
			Timestamp:    RequestID(ctx),
		})
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// parseJSONRequest decodes and validates the body into v whatever the
// Content-Type, as API gateways and browsers often send text/plain. An
// empty body decodes as an empty object.
func parseJSONRequest(r *http.Request, v any) (int, *errors.AppError) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return http.StatusRequestEntityTooLarge,
				invalidRequest(fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return http.StatusBadRequest, invalidRequest("Failed to read request body", err)
	}

	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return http.StatusBadRequest, invalidRequest("Invalid request body: "+err.Error(), err)
		}
	}

	if err := requestValidator.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return http.StatusBadRequest,
				invalidRequest(fmt.Sprintf("Invalid request body: %s failed %s validation", fe.Field(), fe.Tag()), err)
		}
		return http.StatusBadRequest, invalidRequest("Invalid request body", err)
	}
	return http.StatusOK, nil
}

func invalidRequest(detail string, cause error) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, detail, cause)
}

// errorDetail maps an analysis failure onto a status code and detail text
func errorDetail(err error) (int, string) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, "Internal server error: " + err.Error()
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeUnsupportedFormat:
		return http.StatusBadRequest, appErr.Message
	case errors.ErrorTypeConfig:
		return http.StatusInternalServerError, appErr.Message
	case errors.ErrorTypeGateway, errors.ErrorTypeInterpretation, errors.ErrorTypeSchema:
		return http.StatusInternalServerError, "Analysis failed: " + appErr.Message
	default:
		return http.StatusInternalServerError, "Internal server error: " + appErr.Message
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeErrorResponse(w, "Internal server error: failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// writeErrorResponse writes the {detail} error body
func writeErrorResponse(w http.ResponseWriter, detail string, status int) {
	payload, _ := json.Marshal(ErrorResponse{Detail: detail})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
