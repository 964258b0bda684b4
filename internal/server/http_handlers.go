package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"interviewer/internal/errors"
)

func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.Timeout > 0 {
		return s.AppConfig.Observability.HealthCheck.Timeout
	}
	return 10 * time.Second
}

// healthHandler reports model availability, breaker state and archive reachability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "interviewer",
		"version": s.Version,
	}
	healthy := true

	if s.Models != nil {
		models := s.Models.GetModelInfo(ctx)
		response["ai_models"] = models
		for _, info := range models {
			if info != nil && !info.Available {
				healthy = false
			}
		}
		response["circuit_breakers"] = s.Models.GetCircuitBreakerStats()
	}

	if s.Archive != nil {
		archive := map[string]any{"available": true}
		if err := s.Archive.Ping(ctx); err != nil {
			archive["available"] = false
			archive["error"] = err.Error()
			healthy = false
		}
		response["archive"] = archive
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides session and rate limiting statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "interviewer",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.Sessions != nil {
		response["sessions"] = s.Sessions.Stats()
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

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// writeAppError maps an application error onto an HTTP status
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		s.Logger.LogError(err, "Unhandled request error", "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal error",
			Message: err.Error(),
		})
		return
	}

	status := statusForError(appErr)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "path", r.URL.Path)
	}
	writeJSON(w, status, ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Message: errorDetail(appErr),
	})
}

func statusForError(err *errors.AppError) int {
	switch err.Code {
	case errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeActionInProgress,
		errors.ErrCodeNotStarted,
		errors.ErrCodeAlreadyStarted,
		errors.ErrCodeAnalysisLocked,
		errors.ErrCodeSessionClosed:
		return http.StatusConflict
	case errors.ErrCodeSessionLimit:
		return http.StatusServiceUnavailable
	case errors.ErrCodeAITimeout:
		return http.StatusGatewayTimeout
	}

	switch err.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorDetail(err *errors.AppError) string {
	if err.Cause != nil {
		return err.Cause.Error()
	}
	return ""
}
