package errors

import (
	"strings"
	"unicode"
)

// ValidateSlideID validates a slide identifier for safety and correctness.
// Slide IDs appear in file paths (per-slide measurement artifacts) and in
// split-suffix derivation, so they must be simple, path-safe tokens.
//
// The validation rules are intentionally conservative:
//   - No empty IDs
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateSlideID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidSlideID, "slide ID cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidSlideID, "slide ID too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSlideID, "slide ID contains control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidSlideID, "slide ID contains invalid characters: %q", pattern)
		}
	}

	return nil
}
