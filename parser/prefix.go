package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reminder trigger phrases, longest first so "remind me to " wins over
// "remind ". Matching is case-insensitive and anchored at the start; only
// the first matching pattern is stripped.
var reminderPrefixes = []string{
	"remind me to ",
	"remind me ",
	"reminder to ",
	"reminder ",
	"remind ",
}

// Single-word prepositions stripped from both ends of the title.
var fillerWords = map[string]bool{
	"at":  true,
	"on":  true,
	"by":  true,
	"for": true,
	"the": true,
	"in":  true,
	"to":  true,
}

func stripReminderPrefix(text string) string {
	lower := lowerASCII(text)
	for _, prefix := range reminderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return text[len(prefix):]
		}
	}
	return text
}

// cleanTitle builds the final title from the text residue: strips any
// reminder prefixes the extraction stages exposed, trims filler words from
// both ends, collapses whitespace and capitalizes the first letter.
// Running it on an already-clean title is a no-op.
func cleanTitle(text string) string {
	text = strings.TrimSpace(text)
	for {
		stripped := strings.TrimSpace(stripReminderPrefix(text))
		if stripped == text {
			break
		}
		text = stripped
	}

	words := strings.Fields(text)
	for len(words) > 0 && fillerWords[lowerASCII(words[0])] {
		words = words[1:]
	}
	for len(words) > 0 && fillerWords[lowerASCII(words[len(words)-1])] {
		words = words[:len(words)-1]
	}

	return capitalizeFirst(strings.Join(words, " "))
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
