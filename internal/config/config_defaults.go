package config

import (
	"time"

	"github.com/spf13/viper"
)

// Operation names used for per-operation AI configuration and prompts
const (
	OperationQuestions = "questions"
	OperationChat      = "chat"
	OperationAnalysis  = "analysis"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.useSystemPrompts", true)
	v.SetDefault("ai.promptReload", false)

	// AI Configuration - Question generation defaults
	v.SetDefault("ai.questions.provider", "gemini")
	v.SetDefault("ai.questions.model", "")
	v.SetDefault("ai.questions.timeout", 90*time.Second) // Reads two full documents
	v.SetDefault("ai.questions.apiKey", "")
	v.SetDefault("ai.questions.maxRetries", 2)
	v.SetDefault("ai.questions.temperature", 0.4)
	v.SetDefault("ai.questions.useSystemPrompts", true)

	// AI Configuration - Interview chat defaults (OpenAI-compatible endpoint, Groq by default)
	v.SetDefault("ai.chat.provider", "openai")
	v.SetDefault("ai.chat.model", "gemma2-9b-it")
	v.SetDefault("ai.chat.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.chat.timeout", 30*time.Second)
	v.SetDefault("ai.chat.apiKey", "")
	v.SetDefault("ai.chat.maxRetries", 2)
	v.SetDefault("ai.chat.temperature", 0.0) // Deterministic interviewer
	v.SetDefault("ai.chat.useSystemPrompts", true)

	// AI Configuration - Analysis defaults
	v.SetDefault("ai.analysis.provider", "gemini")
	v.SetDefault("ai.analysis.model", "")
	v.SetDefault("ai.analysis.timeout", 120*time.Second)
	v.SetDefault("ai.analysis.apiKey", "")
	v.SetDefault("ai.analysis.maxRetries", 2)
	v.SetDefault("ai.analysis.temperature", 0.2)
	v.SetDefault("ai.analysis.useSystemPrompts", true)

	// Circuit Breaker Configuration defaults for all operations
	for _, op := range []string{OperationQuestions, OperationChat, OperationAnalysis} {
		prefix := "ai." + op + ".circuitBreaker."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"maxRequests", 3)
		v.SetDefault(prefix+"interval", 60*time.Second)
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"minRequests", 3)
		v.SetDefault(prefix+"failureThreshold", 0.6)
	}

	// Session Configuration
	v.SetDefault("session.startTimeout", 2*time.Minute)
	v.SetDefault("session.sendTimeout", 60*time.Second)
	v.SetDefault("session.analysisTimeout", 3*time.Minute)
	v.SetDefault("session.idleTimeout", 30*time.Minute)
	v.SetDefault("session.reapInterval", time.Minute)
	v.SetDefault("session.maxSessions", 100)

	// Ingest Configuration
	v.SetDefault("ingest.tempDir", "")

	// Archive Configuration
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.path", "interviews.db")

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 4*time.Minute) // Analysis may take minutes
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxUploadSize", 10*1024*1024) // 10MB per request

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.chatKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "interviewer")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.interviews.enabled", true)
	v.SetDefault("observability.customMetrics.rateLimits", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
