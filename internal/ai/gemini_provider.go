package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"interviewer/internal/config"
	apperrors "interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// geminiModels is the part of the genai Models service used here
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiProvider talks to Google Gemini for one configured operation
type GeminiProvider struct {
	models         geminiModels
	cfg            *config.Config
	opCfg          config.OperationAIConfig
	operation      string
	circuitBreaker *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker   *CircuitBreaker[*genai.Model]
	logger         *apperrors.Logger
}

var (
	_ Orchestrator      = (*GeminiProvider)(nil)
	_ ChatCompleter     = (*GeminiProvider)(nil)
	_ ModelInfoProvider = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(ctx context.Context, cfg *config.Config, operation string, logger *apperrors.Logger) (*GeminiProvider, error) {
	opCfg, ok := cfg.GetOperationConfig(operation)
	if !ok {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "unknown AI operation: "+operation, nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client.Models, cfg, operation, opCfg, logger), nil
}

func newGeminiProvider(models geminiModels, cfg *config.Config, operation string, opCfg config.OperationAIConfig, logger *apperrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:         models,
		cfg:            cfg,
		opCfg:          opCfg,
		operation:      operation,
		circuitBreaker: NewCircuitBreaker[*genai.GenerateContentResponse]("AI-"+operation, opCfg.CircuitBreaker, logger),
		modelBreaker:   newModelCircuitBreaker[*genai.Model](operation, opCfg.CircuitBreaker, logger),
		logger:         logger,
	}
}

// GenerateQuestions builds the interview question set from the session documents
func (g *GeminiProvider) GenerateQuestions(ctx context.Context, docs types.Documents) (types.QuestionSet, *TokenUsage, error) {
	prompts := resolvePrompts(g.cfg, config.OperationQuestions)
	parts := append([]*genai.Part{genai.NewPartFromText(prompts.Task)}, documentParts(docs)...)

	genCfg := g.baseConfig()
	genCfg.ResponseMIMEType = "application/json"
	genCfg.ResponseSchema = questionSetSchema()

	var out struct {
		Questions []string `json:"questions"`
	}
	usage, err := g.generateJSON(ctx, "generate_questions", prompts.System, parts, genCfg, &out,
		attribute.Int("input.job_description_bytes", len(docs.JobDescription.Data)),
		attribute.Int("input.resume_bytes", len(docs.Resume.Data)),
	)
	if err != nil {
		return types.QuestionSet{}, nil, err
	}

	set := types.QuestionSet{}
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" {
			set.Questions = append(set.Questions, q)
		}
	}
	if set.IsEmpty() {
		return types.QuestionSet{}, usage, apperrors.NewAIError(apperrors.ErrCodeAIResponse,
			"model returned no interview questions", nil)
	}
	return set, usage, nil
}

// GenerateAnalysis assesses the candidate from the documents and the interview transcript
func (g *GeminiProvider) GenerateAnalysis(ctx context.Context, docs types.Documents, turns []history.Turn) (types.AnalysisReport, *TokenUsage, error) {
	prompts := resolvePrompts(g.cfg, config.OperationAnalysis)
	task := buildAnalysisTask(prompts.Task, history.Transcript(turns))
	parts := append([]*genai.Part{genai.NewPartFromText(task)}, documentParts(docs)...)

	genCfg := g.baseConfig()
	genCfg.ResponseMIMEType = "application/json"
	genCfg.ResponseSchema = analysisReportSchema()

	var report types.AnalysisReport
	usage, err := g.generateJSON(ctx, "generate_analysis", prompts.System, parts, genCfg, &report,
		attribute.Int("input.turns", len(turns)),
	)
	if err != nil {
		return types.AnalysisReport{}, nil, err
	}
	return report, usage, nil
}

// Complete returns the next assistant reply. System messages become the
// system instruction, the rest map to user and model contents in order.
func (g *GeminiProvider) Complete(ctx context.Context, messages []Message) (string, *TokenUsage, error) {
	ctx, span := otel.Tracer("interviewer.ai.gemini").Start(ctx, "gemini.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.opCfg.Model),
		attribute.Int("input.messages", len(messages)),
	)

	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	genCfg := g.baseConfig()
	if len(system) > 0 {
		instruction := strings.Join(system, "\n")
		if g.opCfg.SystemPromptsEnabled() {
			genCfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
		} else {
			contents = append([]*genai.Content{genai.NewContentFromText(instruction, genai.RoleUser)}, contents...)
		}
	}

	result, err := g.generate(ctx, "complete", contents, genCfg)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, err
	}

	reply := strings.TrimSpace(result.Text())
	if reply == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, apperrors.NewAIError(apperrors.ErrCodeAIResponse, "model returned an empty reply", nil)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return reply, extractTokenUsage(result), nil
}

// generateJSON runs a structured generation and decodes the JSON reply into out
func (g *GeminiProvider) generateJSON(
	ctx context.Context,
	operationName string,
	systemPrompt string,
	parts []*genai.Part,
	genCfg *genai.GenerateContentConfig,
	out any,
	spanAttributes ...attribute.KeyValue,
) (*TokenUsage, error) {
	ctx, span := otel.Tracer("interviewer.ai.gemini").Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.opCfg.Model),
		attribute.Float64("ai.temperature", float64(g.opCfg.TemperatureValue())),
	)
	span.SetAttributes(spanAttributes...)

	if systemPrompt != "" {
		if g.opCfg.SystemPromptsEnabled() {
			genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
		} else {
			parts = append([]*genai.Part{genai.NewPartFromText(systemPrompt)}, parts...)
		}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	result, err := g.generate(ctx, operationName, contents, genCfg)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}

	if err := json.Unmarshal([]byte(result.Text()), out); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIResponse, "Failed to parse AI response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return tokenUsage, nil
}

// generate calls the model through the circuit breaker and the retry loop
func (g *GeminiProvider) generate(ctx context.Context, operationName string, contents []*genai.Content, genCfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return executeWithRetry(ctx, g.logger, operationName, g.opCfg.MaxRetriesValue(), func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.opCfg.Model, contents, genCfg)
		})
	})
	if err != nil {
		return nil, wrapAIError(operationName, err)
	}
	return result, nil
}

// baseConfig returns a generation config carrying the operation temperature
func (g *GeminiProvider) baseConfig() *genai.GenerateContentConfig {
	temperature := g.opCfg.TemperatureValue()
	return &genai.GenerateContentConfig{Temperature: &temperature}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     g.opCfg.Model,
		Provider: "gemini",
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout())
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.opCfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.opCfg.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

func (g *GeminiProvider) modelCheckTimeout() time.Duration {
	if g.cfg != nil && g.cfg.Observability.HealthCheck.AIModelCheckTimeout > 0 {
		return g.cfg.Observability.HealthCheck.AIModelCheckTimeout
	}
	return 10 * time.Second
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// documentParts converts the session documents into labelled content parts.
// PDFs are sent inline, everything else as text.
func documentParts(docs types.Documents) []*genai.Part {
	var parts []*genai.Part
	for _, d := range []struct {
		label string
		doc   types.Document
	}{
		{"Job Description", docs.JobDescription},
		{"Candidate Resume", docs.Resume},
	} {
		if d.doc.MIMEType == "application/pdf" {
			parts = append(parts,
				genai.NewPartFromText(documentHeader(d.label, d.doc.Name)),
				genai.NewPartFromBytes(d.doc.Data, d.doc.MIMEType),
			)
			continue
		}
		parts = append(parts, genai.NewPartFromText(
			documentHeader(d.label, d.doc.Name)+"\n-----\n"+string(d.doc.Data)+"\n-----"))
	}
	return parts
}

func questionSetSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"questions"},
	}
}

func analysisReportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":  {Type: genai.TypeString},
			"fitScore": {Type: genai.TypeInteger},
			"strengths": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"concerns": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"recommendation": {Type: genai.TypeString},
		},
		Required: []string{"summary", "fitScore", "strengths", "concerns", "recommendation"},
	}
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
