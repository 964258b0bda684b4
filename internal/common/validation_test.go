package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOutputFormat(t *testing.T) {
	configured := []string{"json", "text", "markdown"}

	tests := []struct {
		name          string
		format        string
		supported     []string
		expectedError string
	}{
		{name: "json", format: "json", supported: configured},
		{name: "markdown", format: "markdown", supported: configured},
		{
			name:          "unknown format",
			format:        "xml",
			supported:     configured,
			expectedError: "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:          "case sensitive",
			format:        "JSON",
			supported:     configured,
			expectedError: "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:          "restricted list",
			format:        "text",
			supported:     []string{"json"},
			expectedError: "unsupported output format 'text'. Supported formats: [json]",
		},
		{name: "registry fallback accepts text", format: "text", supported: nil},
		{
			name:          "registry fallback rejects unknown",
			format:        "yaml",
			supported:     nil,
			expectedError: "unsupported output format 'yaml'. Supported formats: [json markdown text]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json"}, GetSupportedFormats([]string{"json"}))
	assert.Equal(t, []string{"json", "markdown", "text"}, GetSupportedFormats(nil))
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	for b.Loop() {
		_ = ValidateOutputFormat("markdown", supportedFormats)
	}
}
