package errors

import (
	"strings"
	"testing"
)

func TestValidateSlideID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "s1", false},
		{"valid with dash", "intro-1", false},
		{"valid with underscore", "section_02", false},
		{"valid split suffix", "s3-b", false},

		{"empty", "", true},
		{"too long", strings.Repeat("x", 200), true},
		{"path traversal", "..", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"control char", "a\x01b", true},
		{"newline", "a\nb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlideID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlideID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
