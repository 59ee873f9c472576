package util

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// EqualFoldAny reports whether any label equals needle, ignoring case and
// surrounding whitespace.
func EqualFoldAny(needle string, labels []string) bool {
	n := strings.TrimSpace(needle)
	if n == "" {
		return false
	}
	for _, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), n) {
			return true
		}
	}
	return false
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
