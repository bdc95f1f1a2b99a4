package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString normalizes a single-line shopper input: control characters
// are dropped, whitespace runs collapse to one space and the result is cut to
// maxLen runes. A maxLen of zero disables truncation.
func SanitizeString(input string, maxLen int) string {
	fields := strings.FieldsFunc(stripControl(input, false), unicode.IsSpace)
	return truncateRunes(strings.Join(fields, " "), maxLen)
}

// SanitizeText is SanitizeString for multi-line fields such as order notes.
// Line breaks survive; trailing spaces on each line do not.
func SanitizeText(input string, maxLen int) string {
	cleaned := strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(stripControl(cleaned, true), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return truncateRunes(strings.TrimSpace(strings.Join(lines, "\n")), maxLen)
}

func stripControl(input string, keepNewlines bool) string {
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && keepNewlines:
			return r
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, input)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:maxLen]), unicode.IsSpace)
}
