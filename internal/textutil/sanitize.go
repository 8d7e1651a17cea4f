package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeSegment turns arbitrary user text into a single path segment.
// Surrounding whitespace is trimmed, internal whitespace runs collapse to a
// single underscore, and every character outside [A-Za-z0-9_-] is dropped.
// Input is NFC-normalised first so composed and decomposed spellings of the
// same name map to the same segment ("São" and "Sa\u0303o" both give "So").
// The result is idempotent: sanitizing it again returns the same string.
// Empty input, or input with no usable characters, yields "".
func SanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = norm.NFC.String(value)

	var b strings.Builder
	b.Grow(len(value))
	inSpace := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if isSegmentRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeID applies SanitizeSegment and lowercases the result, producing
// the canonical form used for session identifiers.
func SanitizeID(value string) string {
	return strings.ToLower(SanitizeSegment(value))
}

func isSegmentRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}
