package common

import (
	"fmt"
	"slices"

	"interviewer/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats, or
// against every registered formatter when none are configured
func ValidateOutputFormat(format string, supportedFormats []string) error {
	allowed := GetSupportedFormats(supportedFormats)
	if slices.Contains(allowed, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, allowed)
}

// GetSupportedFormats returns the configured formats, falling back to the
// registered ones
func GetSupportedFormats(supportedFormats []string) []string {
	if len(supportedFormats) == 0 {
		return formatters.GlobalRegistry.GetSupportedFormats()
	}
	return supportedFormats
}
