package validator_test

import (
	"fmt"
	"messenger/internal/validator"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedError error
	}{
		// valid cases
		{
			name:          "Valid: Single word",
			input:         "Alice",
			expectedError: nil,
		},
		{
			name:          "Valid: Spaces inside",
			input:         "Town square",
			expectedError: nil,
		},
		{
			name:          "Valid: Digits only",
			input:         "4",
			expectedError: nil,
		},
		{
			name:          "Valid: Non ASCII",
			input:         "Élodie 👋",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length (64 runes)",
			input:         strings.Repeat("é", 64),
			expectedError: nil,
		},

		// empty
		{
			name:          "Error: Empty",
			input:         "",
			expectedError: fmt.Errorf("empty_name"),
		},
		{
			name:          "Error: Only spaces",
			input:         "   ",
			expectedError: fmt.Errorf("empty_name"),
		},

		// too long
		{
			name:          "Error: Too long (65 runes)",
			input:         strings.Repeat("a", 65),
			expectedError: fmt.Errorf("long_name"),
		},

		// bad format
		{
			name:          "Error: Newline inside",
			input:         "Ali\nce",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Escape sequence",
			input:         "\033[31mAlice",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Name(tc.input)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Name(%q) failed unexpectedly: got error %v, want nil", tc.input, err)
				}
				return
			}

			if err == nil {
				t.Errorf("Name(%q) passed unexpectedly: got nil, want error %v", tc.input, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("Name(%q) got error %q, want error %q", tc.input, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestContent(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedError error
	}{
		{
			name:          "Valid: Short message",
			input:         "Hi 👋",
			expectedError: nil,
		},
		{
			name:          "Valid: Multiline",
			input:         "first line\nsecond line",
			expectedError: nil,
		},
		{
			name:          "Valid: Maximum length",
			input:         strings.Repeat("a", 2000),
			expectedError: nil,
		},

		{
			name:          "Error: Empty",
			input:         "",
			expectedError: fmt.Errorf("empty_content"),
		},
		{
			name:          "Error: Too long",
			input:         strings.Repeat("a", 2001),
			expectedError: fmt.Errorf("long_content"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Content(tc.input)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Content(%q) failed unexpectedly: got error %v, want nil", tc.input, err)
				}
				return
			}

			if err == nil {
				t.Errorf("Content(%q) passed unexpectedly: got nil, want error %v", tc.input, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("Content(%q) got error %q, want error %q", tc.input, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestStruct(t *testing.T) {
	type request struct {
		Name    string `validate:"name"`
		Content string `validate:"content"`
		Port    int    `validate:"min=1,max=65535"`
	}

	tests := []struct {
		name     string
		input    request
		expected map[string]string
	}{
		{
			name:     "valid",
			input:    request{Name: "Alice", Content: "hi", Port: 8080},
			expected: map[string]string{},
		},
		{
			name:     "bad name",
			input:    request{Name: "", Content: "hi", Port: 8080},
			expected: map[string]string{"Name": "name"},
		},
		{
			name:     "every field",
			input:    request{Name: "\t", Content: "", Port: 0},
			expected: map[string]string{"Name": "name", "Content": "content", "Port": "min"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, validator.Fields(validator.Struct(tc.input)))
		})
	}
}
