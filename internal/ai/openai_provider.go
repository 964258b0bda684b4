package ai

import (
	"context"
	"strings"

	"interviewer/internal/config"
	apperrors "interviewer/internal/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// chatCompletions is the part of the openai Chat Completions service used here
type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider completes interview turns against any OpenAI-compatible
// endpoint (Groq by default).
type OpenAIProvider struct {
	completions    chatCompletions
	opCfg          config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*openai.ChatCompletion]
	logger         *apperrors.Logger
}

var (
	_ ChatCompleter     = (*OpenAIProvider)(nil)
	_ ModelInfoProvider = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider creates a chat completer for the given operation configuration
func NewOpenAIProvider(opCfg config.OperationAIConfig, logger *apperrors.Logger) (*OpenAIProvider, error) {
	if opCfg.APIKey == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey, "no API key for the chat provider", nil)
	}

	// Retries are handled by executeWithRetry.
	opts := []option.RequestOption{
		option.WithAPIKey(opCfg.APIKey),
		option.WithMaxRetries(0),
	}
	if opCfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(opCfg.BaseURL))
	}
	if timeout := opCfg.TimeoutValue(); timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	client := openai.NewClient(opts...)
	return newOpenAIProvider(&client.Chat.Completions, opCfg, logger), nil
}

func newOpenAIProvider(completions chatCompletions, opCfg config.OperationAIConfig, logger *apperrors.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		completions:    completions,
		opCfg:          opCfg,
		circuitBreaker: NewCircuitBreaker[*openai.ChatCompletion]("AI-"+config.OperationChat, opCfg.CircuitBreaker, logger),
		logger:         logger,
	}
}

// Complete sends the ordered messages and returns the first choice
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, *TokenUsage, error) {
	ctx, span := otel.Tracer("interviewer.ai.openai").Start(ctx, "openai.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", p.opCfg.Model),
		attribute.Int("input.messages", len(messages)),
	)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.opCfg.Model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(float64(p.opCfg.TemperatureValue())),
	}

	resp, err := p.circuitBreaker.Execute(func() (*openai.ChatCompletion, error) {
		return executeWithRetry(ctx, p.logger, "complete", p.opCfg.MaxRetriesValue(), func() (*openai.ChatCompletion, error) {
			return p.completions.New(ctx, params)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, wrapAIError("complete", err)
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, apperrors.NewAIError(apperrors.ErrCodeAIResponse, "model returned no choices", nil)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, apperrors.NewAIError(apperrors.ErrCodeAIResponse, "model returned an empty reply", nil)
	}

	usage := &TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
		attribute.Bool("success", true),
	)
	return reply, usage, nil
}

// GetModelInfo reports the configured model. OpenAI-compatible endpoints
// differ in their model listing support, so availability follows the breaker.
func (p *OpenAIProvider) GetModelInfo(_ context.Context) *ModelInfo {
	info := &ModelInfo{
		Name:      p.opCfg.Model,
		Provider:  "openai",
		Available: p.circuitBreaker.IsHealthy(),
	}
	if !info.Available {
		info.Error = "circuit breaker open"
	}
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (p *OpenAIProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":   p.circuitBreaker.GetStats(),
		"overall_healthy": p.circuitBreaker.IsHealthy(),
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
