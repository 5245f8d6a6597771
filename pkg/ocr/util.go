package ocr

import (
	"strings"
	"unicode/utf8"
)

// snippet shortens s to at most max runes for logging.
func snippet(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}

// normalizeText collapses newlines, tabs and repeated spaces.
func normalizeText(t string) string {
	return strings.Join(strings.Fields(t), " ")
}
