package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"interviewer/internal/ai"
	"interviewer/internal/config"
	"interviewer/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.Recorder = (*ObservabilityManager)(nil)

func TestGetObservabilityConfig_Defaults(t *testing.T) {
	cfg := GetObservabilityConfig(nil, "1.2.3")

	assert.Equal(t, "interviewer", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "/metrics", cfg.Prometheus.Endpoint)
}

func TestGetObservabilityConfig_FromConfig(t *testing.T) {
	full := &config.Config{}
	full.Observability.ServiceName = "interviewer-test"
	full.Observability.Enabled = true
	full.Observability.SampleRate = 0.5
	full.Observability.Prometheus.Port = "9999"

	cfg := GetObservabilityConfig(full, "dev")

	assert.Equal(t, "interviewer-test", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0.5, cfg.SampleRate)
	assert.Equal(t, "9999", cfg.Prometheus.Port)
}

func TestDisabledManagerIsUsable(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "interviewer"}, nil)
	require.NoError(t, err)
	assert.False(t, om.Enabled())

	calls := 0
	err = om.TrackAIOperation(context.Background(), "chat", func(ctx context.Context) (*ai.TokenUsage, error) {
		calls++
		return &ai.TokenUsage{TotalTokens: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	om.RecordInterviewEvent(context.Background(), session.EventCreated, true)
	om.RecordRateLimitHit(context.Background())
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestNilManagerShutdown(t *testing.T) {
	var om *ObservabilityManager
	assert.NoError(t, om.Shutdown(context.Background()))
	assert.False(t, om.Enabled())
	assert.NotNil(t, om.GetMetrics())
}

func TestEnabledManagerTracksOperations(t *testing.T) {
	full := &config.Config{}
	full.Observability.CustomMetrics.AIOperations.Enabled = true
	full.Observability.CustomMetrics.AIOperations.TrackDuration = true
	full.Observability.CustomMetrics.AIOperations.TrackTokenUsage = true
	full.Observability.CustomMetrics.Interviews.Enabled = true

	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName: "interviewer",
		Enabled:     true,
		SampleRate:  1.0,
	}, full)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	metrics := om.GetMetrics()
	require.NotNil(t, metrics.AIProcessingTime)
	require.NotNil(t, metrics.ActiveSessions)

	wantErr := errors.New("provider down")
	err = om.TrackAIOperation(context.Background(), "questions", func(ctx context.Context) (*ai.TokenUsage, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	err = om.TrackAIOperation(context.Background(), "chat", func(ctx context.Context) (*ai.TokenUsage, error) {
		return &ai.TokenUsage{InputTokens: 4, OutputTokens: 2, TotalTokens: 6}, nil
	})
	assert.NoError(t, err)

	om.RecordInterviewEvent(context.Background(), session.EventCreated, true)
	om.RecordInterviewEvent(context.Background(), session.EventTurn, true)
	om.RecordInterviewEvent(context.Background(), session.EventEnded, true)
}

func TestRouteSpanMiddleware(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "interviewer", Enabled: true, SampleRate: 1.0}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(RouteSpanMiddleware(om))
	r.Get("/interviews/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/interviews/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouteSpanMiddleware_Disabled(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{}, nil)
	require.NoError(t, err)

	handler := RouteSpanMiddleware(om)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
