package server

import (
	"context"
	"time"

	"interviewer/internal/ai"
	"interviewer/internal/config"
	"interviewer/internal/errors"
	"interviewer/internal/ingest"
	"interviewer/internal/observability"
	"interviewer/internal/session"
)

// MessageRequest represents the request body for the messages endpoint
type MessageRequest struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// StartResponse is returned when an interview starts
type StartResponse struct {
	SessionID string        `json:"sessionId"`
	State     session.State `json:"state"`
	Questions []string      `json:"questions"`
}

// ModelReporter exposes model and breaker status for the health endpoint
type ModelReporter interface {
	GetModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// Pinger is implemented by optional backing stores checked by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Sessions *session.Manager
	Ingestor *ingest.Ingestor
	Models   ModelReporter
	Archive  Pinger

	Observability *observability.ObservabilityManager

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies are the interview components served over HTTP
type Dependencies struct {
	Sessions      *session.Manager
	Ingestor      *ingest.Ingestor
	Models        ModelReporter
	Archive       Pinger
	Observability *observability.ObservabilityManager
}

// NewServerConfig derives the server settings from the application config
func NewServerConfig(appCfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: requestSizeLimit(appCfg.App.MaxUploadSize),
		RateLimit:      &appCfg.Server.RateLimit,
	}
}

// requestSizeLimit allows both documents plus multipart framing
func requestSizeLimit(maxUpload int64) int64 {
	if maxUpload <= 0 {
		return 0
	}
	return 2*maxUpload + 1<<20
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       deps.Sessions,
		Ingestor:       deps.Ingestor,
		Models:         deps.Models,
		Archive:        deps.Archive,
		Observability:  deps.Observability,
		Logger:         logger,
	}
}
