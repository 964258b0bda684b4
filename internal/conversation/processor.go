// Package conversation assembles interview chat requests and sends them to
// the completion service.
package conversation

import (
	"context"
	stderrors "errors"
	"strings"

	"interviewer/internal/ai"
	"interviewer/internal/errors"
	"interviewer/internal/history"
	"interviewer/internal/types"
)

// ClosingPhrase marks the end of the interview in an assistant reply.
// Matching is a case-sensitive substring test.
const ClosingPhrase = "Thank You"

// IsClosing reports whether reply contains the closing phrase.
func IsClosing(reply string) bool {
	return strings.Contains(reply, ClosingPhrase)
}

// BuildMessages returns the instruction sequence for one turn: the fixed
// interviewer directives, the prior history in order, then the new message.
func BuildMessages(questions types.QuestionSet, turns []history.Turn, userMessage string) []ai.Message {
	q := questions.Text()
	messages := make([]ai.Message, 0, 8+len(turns))
	messages = append(messages,
		ai.SystemMessage("You are an Interviewer"),
		ai.SystemMessage("You have a set of questions: "+q+". Ask them sequentially, one at a time."),
		ai.SystemMessage("Only ask the next unanswered question from "+q+"."),
		ai.SystemMessage("Do not repeat any question already present in chat history."),
		ai.SystemMessage("Ask only the question itself, without any additional text."),
		ai.SystemMessage("Never answer the questions yourself"),
		ai.SystemMessage("After questions are over say "+ClosingPhrase),
	)
	for _, t := range turns {
		if t.Role == history.RoleAssistant {
			messages = append(messages, ai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, ai.UserMessage(t.Content))
		}
	}
	return append(messages, ai.UserMessage(userMessage))
}

// Processor produces interviewer replies. It never writes to history.
type Processor struct {
	completer ai.ChatCompleter
	logger    *errors.Logger
}

// NewProcessor creates a turn processor backed by completer
func NewProcessor(completer ai.ChatCompleter, logger *errors.Logger) *Processor {
	return &Processor{completer: completer, logger: logger}
}

// Reply returns the interviewer's answer to userMessage. Provider failures
// come back as recoverable AI errors.
func (p *Processor) Reply(ctx context.Context, questions types.QuestionSet, turns []history.Turn, userMessage string) (string, *ai.TokenUsage, error) {
	messages := BuildMessages(questions, turns, userMessage)
	p.logger.Debug("Requesting interviewer reply",
		"messages", len(messages),
		"history_turns", len(turns))

	reply, usage, err := p.completer.Complete(ctx, messages)
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return "", nil, err
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", nil, errors.NewAIError(errors.ErrCodeAITimeout, "chat completion timed out", err)
		}
		return "", nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "chat completion failed", err)
	}
	return reply, usage, nil
}
