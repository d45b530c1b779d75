package common

import (
	"fmt"
	"slices"

	"resumeseo/internal/errors"
	"resumeseo/internal/formatters"
)

// ValidateOutputFormat checks format against the configured list and the
// formatters actually registered. An empty configured list allows every
// registered format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	allowed := supportedFormats
	if len(allowed) == 0 {
		allowed = formatters.GlobalRegistry.GetSupportedFormats()
	}

	if slices.Contains(allowed, format) && slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, allowed), nil)
}
