package ai

import (
	"context"
	"testing"

	"interviewer/internal/config"
	"interviewer/internal/history"
	"interviewer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubOrchestrator struct {
	questions types.QuestionSet
	report    types.AnalysisReport
	turns     []history.Turn
}

func (s *stubOrchestrator) GenerateQuestions(context.Context, types.Documents) (types.QuestionSet, *TokenUsage, error) {
	return s.questions, nil, nil
}

func (s *stubOrchestrator) GenerateAnalysis(_ context.Context, _ types.Documents, turns []history.Turn) (types.AnalysisReport, *TokenUsage, error) {
	s.turns = turns
	return s.report, nil, nil
}

type stubChat struct{ reply string }

func (s stubChat) Complete(context.Context, []Message) (string, *TokenUsage, error) {
	return s.reply, nil, nil
}

func TestServiceRoutesOperations(t *testing.T) {
	questions := &stubOrchestrator{questions: types.QuestionSet{Questions: []string{"Q1"}}}
	analysis := &stubOrchestrator{report: types.AnalysisReport{Summary: "ok"}}
	svc := NewServiceWith(questions, analysis, stubChat{reply: "hi"}, testLogger)

	set, _, err := svc.GenerateQuestions(context.Background(), types.Documents{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, set.Questions)

	turns := []history.Turn{{Role: history.RoleUser, Content: "a"}}
	report, _, err := svc.GenerateAnalysis(context.Background(), types.Documents{}, turns)
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Summary)
	assert.Equal(t, turns, analysis.turns)

	reply, _, err := svc.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestServiceModelInfoAndStats(t *testing.T) {
	gemini := newGeminiProvider(&fakeModels{model: &genai.Model{DisplayName: "G"}},
		&config.Config{}, config.OperationQuestions, testOpConfig(0.4), testLogger)
	chat := newOpenAIProvider(&fakeCompletions{}, chatOpConfig(), testLogger)
	svc := NewServiceWith(gemini, gemini, chat, testLogger)

	info := svc.GetModelInfo(context.Background())
	require.Len(t, info, 3)
	assert.Equal(t, "gemini", info[config.OperationQuestions].Provider)
	assert.Equal(t, "openai", info[config.OperationChat].Provider)

	stats := svc.GetCircuitBreakerStats()
	assert.Contains(t, stats, config.OperationAnalysis)
	assert.Contains(t, stats, config.OperationChat)
}

func TestNewChatCompleterRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.AI.Chat.Provider = "anthropic"
	_, err := NewChatCompleter(context.Background(), cfg, testLogger)
	assert.Error(t, err)
}
