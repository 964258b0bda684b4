package config

import "time"

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	sameProvider := opCfg.Provider == c.AI.Provider
	if opCfg.Model == "" && sameProvider {
		opCfg.Model = c.AI.Model
	}
	// A key issued for one provider is useless against another.
	if opCfg.APIKey == "" && sameProvider {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.BaseURL == "" && sameProvider {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
}

// GetQuestionsConfig returns the AI configuration for question generation with fallback to global config
func (c *Config) GetQuestionsConfig() OperationAIConfig {
	config := c.AI.Questions
	c.applyOperationDefaults(&config)
	return config
}

// GetChatConfig returns the AI configuration for interview turns with fallback to global config
func (c *Config) GetChatConfig() OperationAIConfig {
	config := c.AI.Chat
	c.applyOperationDefaults(&config)
	return config
}

// GetAnalysisConfig returns the AI configuration for the final analysis with fallback to global config
func (c *Config) GetAnalysisConfig() OperationAIConfig {
	config := c.AI.Analysis
	c.applyOperationDefaults(&config)
	return config
}

// GetOperationConfig returns the resolved configuration for a named operation
func (c *Config) GetOperationConfig(operation string) (OperationAIConfig, bool) {
	switch operation {
	case OperationQuestions:
		return c.GetQuestionsConfig(), true
	case OperationChat:
		return c.GetChatConfig(), true
	case OperationAnalysis:
		return c.GetAnalysisConfig(), true
	default:
		return OperationAIConfig{}, false
	}
}

// TimeoutValue returns the configured timeout or zero when unset
func (o OperationAIConfig) TimeoutValue() time.Duration {
	if o.Timeout == nil {
		return 0
	}
	return *o.Timeout
}

// MaxRetriesValue returns the configured retry count or zero when unset
func (o OperationAIConfig) MaxRetriesValue() int {
	if o.MaxRetries == nil {
		return 0
	}
	return *o.MaxRetries
}

// TemperatureValue returns the configured temperature or zero when unset
func (o OperationAIConfig) TemperatureValue() float32 {
	if o.Temperature == nil {
		return 0
	}
	return *o.Temperature
}

// SystemPromptsEnabled reports whether the persona is sent as a system instruction
func (o OperationAIConfig) SystemPromptsEnabled() bool {
	return o.UseSystemPrompts == nil || *o.UseSystemPrompts
}
