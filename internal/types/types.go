package types

import (
	"fmt"
	"strings"
)

// Document is a raw uploaded document handed to an AI provider
type Document struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Documents holds the job description and resume of one session
type Documents struct {
	JobDescription Document `json:"jobDescription"`
	Resume         Document `json:"resume"`
}

// QuestionSet is the list of interview questions generated for a session
type QuestionSet struct {
	Questions []string `json:"questions"`
}

// Len returns the number of questions
func (q QuestionSet) Len() int {
	return len(q.Questions)
}

// IsEmpty reports whether no question was generated
func (q QuestionSet) IsEmpty() bool {
	return len(q.Questions) == 0
}

// Text renders the questions as a numbered list
func (q QuestionSet) Text() string {
	var b strings.Builder
	for i, question := range q.Questions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, strings.TrimSpace(question))
	}
	return b.String()
}

// AnalysisReport represents the final suitability assessment
type AnalysisReport struct {
	Summary        string   `json:"summary"`
	FitScore       int      `json:"fitScore"`
	Strengths      []string `json:"strengths"`
	Concerns       []string `json:"concerns"`
	Recommendation string   `json:"recommendation"`
}

// Transcript is a finished interview rendered for output
type Transcript struct {
	SessionID string          `json:"sessionId"`
	State     string          `json:"state"`
	Questions QuestionSet     `json:"questions"`
	Messages  []Message       `json:"messages"`
	Report    *AnalysisReport `json:"report,omitempty"`
}

// Message is a role/content pair in output form
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
