package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	apperrors "interviewer/internal/errors"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAIKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyAIKeyFallbacks picks up the conventional provider environment variables
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.AI.APIKey = key
		}
	}
	if c.AI.Chat.APIKey == "" && c.AI.Chat.Provider == "openai" {
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			c.AI.Chat.APIKey = key
		}
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("INTERVIEWER_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "" {
		c.Server.TLS.Mode = "disabled"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors that make startup pointless.
// It must run after Vault secrets have been applied.
func (c *Config) Validate() error {
	for _, op := range []string{OperationQuestions, OperationChat, OperationAnalysis} {
		opCfg, _ := c.GetOperationConfig(op)
		switch opCfg.Provider {
		case "gemini", "openai":
		default:
			return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
				fmt.Sprintf("unsupported AI provider %q for %s", opCfg.Provider, op), nil)
		}
		if opCfg.APIKey == "" {
			return apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey,
				fmt.Sprintf("no API key configured for %s (provider %s)", op, opCfg.Provider), nil).
				WithContext("operation", op)
		}
		if opCfg.Model == "" {
			return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
				fmt.Sprintf("no model configured for %s", op), nil)
		}
		if opCfg.TimeoutValue() <= 0 {
			return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
				fmt.Sprintf("timeout for %s must be positive", op), nil)
		}
		if opCfg.MaxRetriesValue() < 0 {
			return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
				fmt.Sprintf("maxRetries for %s must not be negative", op), nil)
		}
	}
	// Documents are handed to the questions and analysis providers as raw PDF bytes.
	for _, op := range []string{OperationQuestions, OperationAnalysis} {
		opCfg, _ := c.GetOperationConfig(op)
		if opCfg.Provider != "gemini" {
			return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
				fmt.Sprintf("%s requires a document-capable provider (gemini), got %q", op, opCfg.Provider), nil)
		}
	}

	if c.Session.StartTimeout <= 0 || c.Session.SendTimeout <= 0 || c.Session.AnalysisTimeout <= 0 {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "session action timeouts must be positive", nil)
	}
	if c.Session.MaxSessions <= 0 {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "session.maxSessions must be positive", nil)
	}
	if c.App.MaxUploadSize <= 0 {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "app.maxUploadSize must be positive", nil)
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "archive.path is required when the archive is enabled", nil)
	}
	if err := c.Server.TLS.Validate(); err != nil {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "invalid TLS configuration", err)
	}
	return nil
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"INTERVIEWER_AI_APIKEY",
		"INTERVIEWER_AI_PROVIDER",
		"INTERVIEWER_AI_MODEL",
		"INTERVIEWER_AI_CHAT_APIKEY",
		"INTERVIEWER_SERVER_PORT",
		"INTERVIEWER_SERVER_HOST",
		"INTERVIEWER_APP_LOGLEVEL",
		"INTERVIEWER_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"GROQ_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Archive Enabled: %t", c.Archive.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	log.Printf("[CONFIG] Questions - Provider: %s, Model: %s", c.AI.Questions.Provider, c.AI.Questions.Model)
	log.Printf("[CONFIG] Chat - Provider: %s, Model: %s", c.AI.Chat.Provider, c.AI.Chat.Model)
	log.Printf("[CONFIG] Analysis - Provider: %s, Model: %s", c.AI.Analysis.Provider, c.AI.Analysis.Model)

	log.Println("[CONFIG] =====================================")
}
