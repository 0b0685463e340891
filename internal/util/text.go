package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanText strips control and invisible formatting characters from user
// supplied text and trims surrounding whitespace. Newlines and tabs survive.
func CleanText(raw string) string {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "")
	}

	builder := strings.Builder{}
	builder.Grow(len(raw))

	for _, char := range raw {
		if char == '\n' || char == '\t' {
			builder.WriteRune(char)
			continue
		}
		if char == '\r' {
			continue
		}
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	return strings.TrimSpace(builder.String())
}

// RuneLen counts characters, not bytes, so limits treat multi-byte text fairly.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
