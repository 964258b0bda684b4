package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"interviewer/internal/config"
	apperrors "interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeModels replays queued responses and records every call
type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     []generateCall
	model     *genai.Model
	getErr    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: cfg})
	i := len(f.calls) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("unexpected call")
	}
	return f.responses[i], nil
}

func (f *fakeModels) Get(_ context.Context, _ string, _ *genai.GetModelConfig) (*genai.Model, error) {
	return f.model, f.getErr
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}, Role: genai.RoleModel},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}
}

func testOpConfig(temperature float32) config.OperationAIConfig {
	retries := 1
	useSystem := true
	return config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "gemini-test",
		MaxRetries:       &retries,
		Temperature:      &temperature,
		UseSystemPrompts: &useSystem,
	}
}

func testDocuments() types.Documents {
	return types.Documents{
		JobDescription: types.Document{Name: "jd.txt", MIMEType: "text/plain", Data: []byte("Senior Go engineer")},
		Resume:         types.Document{Name: "cv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4 fake")},
	}
}

func allText(contents []*genai.Content) string {
	var b strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestGeminiGenerateQuestions(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{
		textResponse(`{"questions": ["Tell me about Go.", "  ", "Describe a hard bug."]}`),
	}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)

	set, usage, err := p.GenerateQuestions(context.Background(), testDocuments())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tell me about Go.", "Describe a hard bug."}, set.Questions)
	require.NotNil(t, usage)
	assert.Equal(t, int64(15), usage.TotalTokens)

	require.Len(t, models.calls, 1)
	call := models.calls[0]
	assert.Equal(t, "gemini-test", call.model)
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	require.NotNil(t, call.config.Temperature)
	assert.InDelta(t, 0.4, *call.config.Temperature, 0.0001)
	require.NotNil(t, call.config.SystemInstruction)
	assert.Contains(t, call.config.SystemInstruction.Parts[0].Text, "Expert Interviewer")

	text := allText(call.contents)
	assert.Contains(t, text, "Formulate 10-12 well-structured questions")
	assert.Contains(t, text, "Senior Go engineer")

	var sawPDF bool
	for _, part := range call.contents[0].Parts {
		if part.InlineData != nil && part.InlineData.MIMEType == "application/pdf" {
			sawPDF = true
		}
	}
	assert.True(t, sawPDF, "resume is sent inline as PDF")
}

func TestGeminiGenerateQuestionsEmpty(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(`{"questions": []}`)}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)

	_, _, err := p.GenerateQuestions(context.Background(), testDocuments())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAI))
}

func TestGeminiGenerateQuestionsInvalidJSON(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("not json")}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)

	_, _, err := p.GenerateQuestions(context.Background(), testDocuments())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAIResponse, appErr.Code)
}

func TestGeminiGenerateQuestionsRetriesTransientFailure(t *testing.T) {
	noSleep(t)
	models := &fakeModels{
		errs:      []error{genai.APIError{Code: http.StatusServiceUnavailable}},
		responses: []*genai.GenerateContentResponse{nil, textResponse(`{"questions": ["Q1"]}`)},
	}
	p := newGeminiProvider(models, &config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)

	set, _, err := p.GenerateQuestions(context.Background(), testDocuments())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Len(t, models.calls, 2)
}

func TestGeminiGenerateAnalysis(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(`{
		"summary": "Strong backend profile",
		"fitScore": 82,
		"strengths": ["Go"],
		"concerns": ["No Kubernetes"],
		"recommendation": "Proceed"
	}`)}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationAnalysis, testOpConfig(0.2), testLogger)

	turns := []history.Turn{
		{Role: history.RoleUser, Content: "Hello"},
		{Role: history.RoleAssistant, Content: "What is a goroutine?"},
	}
	report, _, err := p.GenerateAnalysis(context.Background(), testDocuments(), turns)
	require.NoError(t, err)
	assert.Equal(t, 82, report.FitScore)
	assert.Equal(t, "Proceed", report.Recommendation)

	call := models.calls[0]
	assert.Contains(t, call.config.SystemInstruction.Parts[0].Text, "Talent Acquisition Expert")
	text := allText(call.contents)
	assert.Contains(t, text, "Analyze the interview script")
	assert.Contains(t, text, "Interviewer: What is a goroutine?")
}

func TestGeminiComplete(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  Next question?  ")}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationChat, testOpConfig(0), testLogger)

	reply, _, err := p.Complete(context.Background(), []Message{
		SystemMessage("You are an Interviewer"),
		SystemMessage("Never answer the questions yourself"),
		UserMessage("hi"),
		AssistantMessage("Q1"),
		UserMessage("answer"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Next question?", reply)

	call := models.calls[0]
	assert.Equal(t, "You are an Interviewer\nNever answer the questions yourself", call.config.SystemInstruction.Parts[0].Text)
	require.Len(t, call.contents, 3)
	assert.Equal(t, genai.RoleUser, call.contents[0].Role)
	assert.Equal(t, genai.RoleModel, call.contents[1].Role)
	assert.Equal(t, "answer", call.contents[2].Parts[0].Text)
	require.NotNil(t, call.config.Temperature)
	assert.Equal(t, float32(0), *call.config.Temperature)
}

func TestGeminiCompleteEmptyReply(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("   ")}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationChat, testOpConfig(0), testLogger)

	_, _, err := p.Complete(context.Background(), []Message{UserMessage("hi")})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAI))
}

func TestGeminiGetModelInfo(t *testing.T) {
	models := &fakeModels{model: &genai.Model{DisplayName: "Gemini Test", Version: "001"}}
	p := newGeminiProvider(models, &config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)

	info := p.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "Gemini Test", info.DisplayName)

	models.getErr = errors.New("not found")
	info = p.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.Contains(t, info.Error, "not found")
}
