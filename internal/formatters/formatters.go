package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"interviewer/internal/types"
)

// Data type keys used by the registry
const (
	typeAny        = "any"
	typeReport     = "AnalysisReport"
	typeTranscript = "Transcript"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", typeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", typeReport, &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", typeReport, &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", typeTranscript, &TranscriptTextFormatter{})
	registry.RegisterFormatter("markdown", typeTranscript, &TranscriptMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[typeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisReport, *types.AnalysisReport:
		return typeReport
	case types.Transcript, *types.Transcript:
		return typeTranscript
	default:
		return typeAny
	}
}

func asReport(data any) (types.AnalysisReport, error) {
	switch v := data.(type) {
	case types.AnalysisReport:
		return v, nil
	case *types.AnalysisReport:
		if v != nil {
			return *v, nil
		}
	}
	return types.AnalysisReport{}, fmt.Errorf("expected AnalysisReport, got %T", data)
}

func asTranscript(data any) (types.Transcript, error) {
	switch v := data.(type) {
	case types.Transcript:
		return v, nil
	case *types.Transcript:
		if v != nil {
			return *v, nil
		}
	}
	return types.Transcript{}, fmt.Errorf("expected Transcript, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return typeAny
}

// ReportTextFormatter renders an analysis report as plain text
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeReportText(&output, report)
	return output.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string {
	return typeReport
}

func writeReportText(output *strings.Builder, report types.AnalysisReport) {
	output.WriteString("=== CANDIDATE ANALYSIS ===\n")
	fmt.Fprintf(output, "Fit Score: %d/100\n\n", report.FitScore)
	output.WriteString("Summary:\n")
	output.WriteString(report.Summary)
	output.WriteString("\n\n")

	output.WriteString("Strengths:\n")
	for _, s := range report.Strengths {
		fmt.Fprintf(output, "- %s\n", s)
	}
	output.WriteString("\nConcerns:\n")
	for _, c := range report.Concerns {
		fmt.Fprintf(output, "- %s\n", c)
	}

	output.WriteString("\nRecommendation:\n")
	output.WriteString(report.Recommendation)
	output.WriteString("\n")
}

// ReportMarkdownFormatter renders an analysis report as markdown
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeReportMarkdown(&output, report, "#")
	return output.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string {
	return typeReport
}

func writeReportMarkdown(output *strings.Builder, report types.AnalysisReport, level string) {
	fmt.Fprintf(output, "%s Candidate Analysis\n\n", level)
	fmt.Fprintf(output, "**Fit Score:** %d/100\n\n", report.FitScore)
	fmt.Fprintf(output, "%s# Summary\n\n%s\n\n", level, report.Summary)

	fmt.Fprintf(output, "%s# Strengths\n\n", level)
	for _, s := range report.Strengths {
		fmt.Fprintf(output, "- %s\n", s)
	}
	fmt.Fprintf(output, "\n%s# Concerns\n\n", level)
	for _, c := range report.Concerns {
		fmt.Fprintf(output, "- %s\n", c)
	}

	fmt.Fprintf(output, "\n%s# Recommendation\n\n%s\n", level, report.Recommendation)
}

// TranscriptTextFormatter renders a finished interview as plain text
type TranscriptTextFormatter struct{}

func (f *TranscriptTextFormatter) Format(data any) (string, error) {
	transcript, err := asTranscript(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== INTERVIEW %s ===\n", transcript.SessionID)
	fmt.Fprintf(&output, "State: %s\n\n", transcript.State)

	output.WriteString("Questions:\n")
	output.WriteString(transcript.Questions.Text())
	output.WriteString("\n\n=== CONVERSATION ===\n")
	for _, m := range transcript.Messages {
		fmt.Fprintf(&output, "%s: %s\n", speaker(m.Role), m.Content)
	}

	if transcript.Report != nil {
		output.WriteString("\n")
		writeReportText(&output, *transcript.Report)
	}
	return output.String(), nil
}

func (f *TranscriptTextFormatter) SupportedType() string {
	return typeTranscript
}

// TranscriptMarkdownFormatter renders a finished interview as markdown
type TranscriptMarkdownFormatter struct{}

func (f *TranscriptMarkdownFormatter) Format(data any) (string, error) {
	transcript, err := asTranscript(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Interview %s\n\n", transcript.SessionID)
	fmt.Fprintf(&output, "**State:** %s\n\n", transcript.State)

	output.WriteString("## Questions\n\n")
	output.WriteString(transcript.Questions.Text())
	output.WriteString("\n\n## Conversation\n\n")
	for _, m := range transcript.Messages {
		fmt.Fprintf(&output, "**%s:** %s\n\n", speaker(m.Role), m.Content)
	}

	if transcript.Report != nil {
		writeReportMarkdown(&output, *transcript.Report, "##")
	}
	return output.String(), nil
}

func (f *TranscriptMarkdownFormatter) SupportedType() string {
	return typeTranscript
}

func speaker(role string) string {
	if role == "user" {
		return "Candidate"
	}
	return "Interviewer"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
