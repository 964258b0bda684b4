package ai

import (
	"context"
	"fmt"

	"interviewer/internal/config"
	"interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/types"
)

// statsProvider is implemented by providers that expose circuit breaker stats
type statsProvider interface {
	GetCircuitBreakerStats() map[string]any
}

// Service routes each interview operation to its configured provider
type Service struct {
	questions Orchestrator
	analysis  Orchestrator
	chat      ChatCompleter
	logger    *errors.Logger
}

var (
	_ Orchestrator  = (*Service)(nil)
	_ ChatCompleter = (*Service)(nil)
)

// NewService creates the providers for question generation, chat and analysis
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	questions, err := newOrchestrator(ctx, cfg, config.OperationQuestions, logger)
	if err != nil {
		return nil, err
	}
	analysis, err := newOrchestrator(ctx, cfg, config.OperationAnalysis, logger)
	if err != nil {
		return nil, err
	}
	chat, err := NewChatCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewServiceWith(questions, analysis, chat, logger), nil
}

// NewServiceWith assembles a Service from existing providers
func NewServiceWith(questions, analysis Orchestrator, chat ChatCompleter, logger *errors.Logger) *Service {
	return &Service{
		questions: questions,
		analysis:  analysis,
		chat:      chat,
		logger:    logger,
	}
}

func newOrchestrator(ctx context.Context, cfg *config.Config, operation string, logger *errors.Logger) (Orchestrator, error) {
	opCfg, _ := cfg.GetOperationConfig(operation)
	logger.Debug("Initializing AI provider",
		"operation", operation,
		"provider", opCfg.Provider,
		"model", opCfg.Model,
		"temperature", opCfg.TemperatureValue(),
		"timeout", opCfg.TimeoutValue(),
		"max_retries", opCfg.MaxRetriesValue())

	switch opCfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg, operation, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported document provider for %s: %s", operation, opCfg.Provider), nil)
	}
}

// NewChatCompleter creates the provider that answers interview turns
func NewChatCompleter(ctx context.Context, cfg *config.Config, logger *errors.Logger) (ChatCompleter, error) {
	opCfg := cfg.GetChatConfig()
	logger.Debug("Initializing AI provider",
		"operation", config.OperationChat,
		"provider", opCfg.Provider,
		"model", opCfg.Model,
		"base_url", opCfg.BaseURL,
		"temperature", opCfg.TemperatureValue())

	switch opCfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg, config.OperationChat, logger)
	case "openai":
		return NewOpenAIProvider(opCfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported chat provider: %s", opCfg.Provider), nil)
	}
}

// GenerateQuestions implements Orchestrator
func (s *Service) GenerateQuestions(ctx context.Context, docs types.Documents) (types.QuestionSet, *TokenUsage, error) {
	return s.questions.GenerateQuestions(ctx, docs)
}

// GenerateAnalysis implements Orchestrator
func (s *Service) GenerateAnalysis(ctx context.Context, docs types.Documents, turns []history.Turn) (types.AnalysisReport, *TokenUsage, error) {
	return s.analysis.GenerateAnalysis(ctx, docs, turns)
}

// Complete implements ChatCompleter
func (s *Service) Complete(ctx context.Context, messages []Message) (string, *TokenUsage, error) {
	return s.chat.Complete(ctx, messages)
}

// GetModelInfo reports every configured model keyed by operation
func (s *Service) GetModelInfo(ctx context.Context) map[string]*ModelInfo {
	info := make(map[string]*ModelInfo, 3)
	for op, p := range map[string]any{
		config.OperationQuestions: s.questions,
		config.OperationChat:      s.chat,
		config.OperationAnalysis:  s.analysis,
	} {
		if mp, ok := p.(ModelInfoProvider); ok {
			info[op] = mp.GetModelInfo(ctx)
		}
	}
	return info
}

// GetCircuitBreakerStats returns breaker statistics keyed by operation
func (s *Service) GetCircuitBreakerStats() map[string]any {
	stats := make(map[string]any, 3)
	for op, p := range map[string]any{
		config.OperationQuestions: s.questions,
		config.OperationChat:      s.chat,
		config.OperationAnalysis:  s.analysis,
	} {
		if sp, ok := p.(statsProvider); ok {
			stats[op] = sp.GetCircuitBreakerStats()
		}
	}
	return stats
}
