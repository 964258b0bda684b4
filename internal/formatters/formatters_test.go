package formatters

import (
	"encoding/json"
	"testing"

	"interviewer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() types.AnalysisReport {
	return types.AnalysisReport{
		Summary:        "Strong backend engineer.",
		FitScore:       82,
		Strengths:      []string{"Go expertise", "Clear communication"},
		Concerns:       []string{"Little frontend work"},
		Recommendation: "Proceed to onsite.",
	}
}

func sampleTranscript() types.Transcript {
	report := sampleReport()
	return types.Transcript{
		SessionID: "abc",
		State:     "analysis_unlocked",
		Questions: types.QuestionSet{Questions: []string{"Why Go?", "Describe a hard bug."}},
		Messages: []types.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "Why Go?"},
		},
		Report: &report,
	}
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}

func TestFormatReport(t *testing.T) {
	registry := NewFormatterRegistry()

	text, err := registry.Format(sampleReport(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Fit Score: 82/100")
	assert.Contains(t, text, "- Go expertise")
	assert.Contains(t, text, "Proceed to onsite.")

	md, err := registry.Format(sampleReport(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Candidate Analysis")
	assert.Contains(t, md, "**Fit Score:** 82/100")
	assert.Contains(t, md, "## Concerns")
}

func TestFormatTranscript(t *testing.T) {
	registry := NewFormatterRegistry()
	transcript := sampleTranscript()

	text, err := registry.Format(&transcript, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "=== INTERVIEW abc ===")
	assert.Contains(t, text, "1. Why Go?\n2. Describe a hard bug.")
	assert.Contains(t, text, "Candidate: hi\nInterviewer: Why Go?")
	assert.Contains(t, text, "Fit Score: 82/100")

	md, err := registry.Format(transcript, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Interview abc")
	assert.Contains(t, md, "**Candidate:** hi")
	assert.Contains(t, md, "## Candidate Analysis")
}

func TestFormatJSON(t *testing.T) {
	out, err := NewFormatterRegistry().Format(sampleReport(), "json")
	require.NoError(t, err)

	var decoded types.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, sampleReport(), decoded)
}

func TestFormatUnknown(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(sampleReport(), "xml")
	assert.Error(t, err)

	_, err = registry.Format("plain", "text")
	assert.Error(t, err)
}

func TestFormatterRejectsWrongType(t *testing.T) {
	_, err := (&ReportTextFormatter{}).Format(sampleTranscript())
	assert.Error(t, err)

	var nilTranscript *types.Transcript
	_, err = (&TranscriptMarkdownFormatter{}).Format(nilTranscript)
	assert.Error(t, err)
}
