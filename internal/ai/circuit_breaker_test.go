package ai

import (
	"errors"
	"testing"
	"time"

	"interviewer/internal/config"
)

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	questionsCfg := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
	chatCfg := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          45 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.7,
	}

	questionsCB := NewCircuitBreaker[string]("AI-questions", questionsCfg, nil)
	chatCB := NewCircuitBreaker[string]("AI-chat", chatCfg, nil)

	tests := []struct {
		name         string
		cb           *CircuitBreaker[string]
		expectedName string
	}{
		{"questions", questionsCB, "AI-questions"},
		{"chat", chatCB, "AI-chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.cb.GetStats()

			name, ok := stats["name"].(string)
			if !ok {
				t.Fatal("Circuit breaker name not found")
			}
			if name != tt.expectedName {
				t.Errorf("Expected circuit breaker name '%s', got '%s'", tt.expectedName, name)
			}

			state, ok := stats["state"].(string)
			if !ok {
				t.Fatal("Circuit breaker state not found")
			}
			if state != "closed" {
				t.Errorf("Expected initial state 'closed', got '%s'", state)
			}

			if enabled, _ := stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
			if !tt.cb.IsHealthy() {
				t.Error("Circuit breaker should be healthy initially")
			}
		})
	}

	if questionsCB == chatCB {
		t.Error("Circuit breakers should be different instances")
	}
}

func TestCircuitBreakerTripsAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker[string]("AI-trip", config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}, nil)

	boom := errors.New("boom")
	calls := 0
	fail := func() (string, error) {
		calls++
		return "", boom
	}

	for range 2 {
		if _, err := cb.Execute(fail); !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
	}
	if cb.IsHealthy() {
		t.Fatal("Expected breaker to be open after two failures")
	}

	if _, err := cb.Execute(fail); err == nil || errors.Is(err, boom) {
		t.Errorf("Expected open-state rejection, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected open breaker to skip the call, got %d calls", calls)
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewCircuitBreaker[int]("AI-disabled", config.CircuitBreakerConfig{Enabled: false}, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	got, err := cb.Execute(func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Expected nil breaker to pass through, got %d, %v", got, err)
	}
	if !cb.IsHealthy() {
		t.Error("Nil breaker should report healthy")
	}
	if enabled := cb.GetStats()["enabled"]; enabled != false {
		t.Errorf("Expected enabled=false, got %v", enabled)
	}
}

func TestModelCircuitBreakerName(t *testing.T) {
	cb := newModelCircuitBreaker[string]("analysis", config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1}, nil)
	if name := cb.GetStats()["name"]; name != "AI-Model-analysis" {
		t.Errorf("Expected 'AI-Model-analysis', got %v", name)
	}
}
