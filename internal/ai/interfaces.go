package ai

import (
	"context"

	"interviewer/internal/history"
	"interviewer/internal/types"
)

// Orchestrator produces the question set and the final analysis from the
// session documents. Implementations are opaque to the session core.
type Orchestrator interface {
	GenerateQuestions(ctx context.Context, docs types.Documents) (types.QuestionSet, *TokenUsage, error)
	GenerateAnalysis(ctx context.Context, docs types.Documents, turns []history.Turn) (types.AnalysisReport, *TokenUsage, error)
}

// ChatCompleter returns the next assistant reply for an ordered message list
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message) (string, *TokenUsage, error)
}

// ModelInfoProvider reports model availability for health checks
type ModelInfoProvider interface {
	GetModelInfo(ctx context.Context) *ModelInfo
}

// MessageRole is the role of a chat message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a chat completion request
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// SystemMessage builds a system message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
