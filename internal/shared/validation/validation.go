// Package validation provides input sanitization for user-supplied text.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString cleans a string input by:
// - Trimming leading/trailing whitespace
// - Removing null bytes (which can cause issues in databases)
// - Ensuring valid UTF-8 encoding
// Markup and quotes are kept as raw text; they are stored, never executed.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	return strings.TrimSpace(s)
}

// ContainsControlChars checks if a string contains control characters
// (except for common whitespace like space, tab, newline).
func ContainsControlChars(s string) bool {
	for _, r := range s {
		if isStrippedControl(r) {
			return true
		}
	}
	return false
}

// RemoveControlChars removes control characters from a string,
// preserving common whitespace (space, tab, newline, carriage return).
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if isStrippedControl(r) {
			return -1
		}
		return r
	}, s)
}

// ValidateStringLength checks that the number of characters (not bytes) in s
// is within bounds.
func ValidateStringLength(s string, minLen, maxLen int) bool {
	length := utf8.RuneCountInString(s)
	return length >= minLen && length <= maxLen
}

func isStrippedControl(r rune) bool {
	return unicode.IsControl(r) && r != ' ' && r != '\t' && r != '\n' && r != '\r'
}
