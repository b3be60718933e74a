package utils

import (
	"strings"

	"golang.org/x/net/html"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces runs of whitespace with a single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// CleanText decodes HTML entities and normalizes whitespace.
func (s *StringHelper) CleanText(str string) string {
	return s.NormalizeWhitespace(html.UnescapeString(str))
}

// TruncateString truncates str to maxLength runes.
func (s *StringHelper) TruncateString(str string, maxLength int) string {
	r := []rune(str)
	if len(r) <= maxLength {
		return str
	}

	return string(r[:maxLength]) + "..."
}
