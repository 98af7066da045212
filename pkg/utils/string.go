package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces multiple whitespace with single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates str to maxWidth terminal columns, ending with
// "..." when cut. Wide runes count as two columns.
func (s *StringHelper) TruncateString(str string, maxWidth int) string {
	if runewidth.StringWidth(str) <= maxWidth {
		return str
	}

	return runewidth.Truncate(str, maxWidth, "...")
}

// PadRight pads str with spaces to width terminal columns.
func (s *StringHelper) PadRight(str string, width int) string {
	return runewidth.FillRight(str, width)
}
