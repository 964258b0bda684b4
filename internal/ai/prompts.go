package ai

import (
	"fmt"
	"strings"

	"interviewer/internal/config"
)

// OperationPrompts holds the persona (system instruction) and the task of an operation
type OperationPrompts struct {
	System string
	Task   string
}

// DefaultQuestionPrompts is used to generate the interview question set
var DefaultQuestionPrompts = OperationPrompts{
	System: `You are an Expert Interviewer. Your goal is to conduct a structured interview by asking relevant questions based on the job description and the candidate's resume.

You are an experienced interviewer skilled in assessing candidates based on job requirements and their qualifications.`,

	Task: `Analyze the job description and candidate's resume. Formulate 10-12 well-structured questions.

Return the questions only, one question per array entry, in the order they should be asked.
Do not number the questions and do not add commentary.`,
}

// DefaultAnalysisPrompts is used to produce the final suitability report
var DefaultAnalysisPrompts = OperationPrompts{
	System: `You are a Talent Acquisition Expert. Your goal is to evaluate the candidate's fit for the job based on the job description, resume, and interview script analysis.

You specialize in evaluating candidates based on their resumes, job descriptions, and interview performance.`,

	Task: `Analyze the interview script to assess the candidate's fit for the role.

Produce a detailed report assessing the candidate's suitability:
- summary: an overall assessment
- fitScore: an integer from 0 to 100
- strengths: evidence-backed strengths from the documents and the interview
- concerns: gaps or risks for this role
- recommendation: a short hiring recommendation`,
}

// DefaultPrompts returns the built-in prompts for an operation
func DefaultPrompts(operation string) OperationPrompts {
	switch operation {
	case config.OperationQuestions:
		return DefaultQuestionPrompts
	case config.OperationAnalysis:
		return DefaultAnalysisPrompts
	default:
		return OperationPrompts{}
	}
}

// resolvePrompts merges configured prompts over the built-in defaults.
// Configured prompts are re-read on every call so reloads take effect.
func resolvePrompts(cfg *config.Config, operation string) OperationPrompts {
	prompts := DefaultPrompts(operation)
	if cfg == nil {
		return prompts
	}
	configured := cfg.PromptsFor(operation)
	if configured.System != "" {
		prompts.System = configured.System
	}
	if configured.Task != "" {
		prompts.Task = configured.Task
	}
	return prompts
}

// buildAnalysisTask appends the interview transcript to the analysis task
func buildAnalysisTask(task, transcript string) string {
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\n**Interview Script:**\n-----\n")
	if strings.TrimSpace(transcript) == "" {
		b.WriteString("(no answers were recorded)")
	} else {
		b.WriteString(transcript)
	}
	b.WriteString("\n-----")
	return b.String()
}

// documentHeader labels a document part for the model
func documentHeader(label, name string) string {
	return fmt.Sprintf("**%s** (%s):", label, name)
}
