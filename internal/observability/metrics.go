package observability

import (
	"context"
	"fmt"
	"time"

	"interviewer/internal/ai"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Session lifecycle events that move the active session gauge
const (
	eventSessionCreated = "session_created"
	eventSessionEnded   = "session_ended"
)

// Metrics holds the interviewer instruments
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	InterviewEvents metric.Int64Counter
	ActiveSessions  metric.Int64UpDownCounter

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"interviewer_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in AI provider calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"interviewer_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"interviewer_ai_errors_total",
		metric.WithDescription("Total number of failed AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"interviewer_ai_token_usage",
		metric.WithDescription("Token usage of AI requests by token type"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.InterviewEvents, err = meter.Int64Counter(
		"interviewer_interview_events_total",
		metric.WithDescription("Interview lifecycle events (started, turn, analysis unlocked, analysis generated, ended)"),
	); err != nil {
		return nil, fmt.Errorf("failed to create interview events metric: %w", err)
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"interviewer_active_sessions",
		metric.WithDescription("Number of live interview sessions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"interviewer_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// TrackAIOperation runs fn inside a span and records duration, outcome and
// token usage for the operation
func (om *ObservabilityManager) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	m := om.GetMetrics()
	if m.AIProcessingTime == nil {
		_, err := fn(ctx)
		return err
	}

	ctx, span := otel.Tracer("interviewer.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	usage, err := fn(ctx)
	duration := time.Since(start).Seconds()

	if om.aiMetricsEnabled() {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		if om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
			m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if usage != nil && (om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage) {
			m.recordTokenUsage(ctx, operation, usage)
		}
		span.SetAttributes(attrs...)
	}

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordTokenUsage(ctx context.Context, operation string, usage *ai.TokenUsage) {
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordInterviewEvent counts an interview lifecycle event and keeps the
// active session gauge in step with session creation and end
func (om *ObservabilityManager) RecordInterviewEvent(ctx context.Context, event string, success bool) {
	m := om.GetMetrics()
	if m.InterviewEvents == nil {
		return
	}

	switch event {
	case eventSessionCreated:
		m.ActiveSessions.Add(ctx, 1)
	case eventSessionEnded:
		m.ActiveSessions.Add(ctx, -1)
	}

	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.Interviews.Enabled {
		return
	}
	m.InterviewEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.Bool("success", success),
	))
}

// RecordRateLimitHit counts a rejected request
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, attrs ...attribute.KeyValue) {
	m := om.GetMetrics()
	if m.RateLimitHits == nil {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.RateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (om *ObservabilityManager) aiMetricsEnabled() bool {
	if om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}
