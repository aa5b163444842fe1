package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTitleLen is the longest generated title in runes, ellipsis included.
const MaxTitleLen = 80

const ellipsis = "..."

var (
	titleMarker     = regexp.MustCompile(`^\s*(?:[-*]\s+)?\[[ xX]\]\s*|^\s*[-*]\s+|^\s*\d+\.(?:\s+|([^\s\d]))`)
	titleObligation = regexp.MustCompile(`(?i)^(?:need to|have to|must|should|will|want to)\b\s*`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// GenerateTitle turns raw candidate text into a task title. The transform is
// applied until it reaches a fixed point, so the result maps to itself.
func GenerateTitle(raw string) string {
	s := raw
	for {
		next := truncateTitle(cleanTitle(s))
		if next == s {
			return s
		}
		s = next
	}
}

func cleanTitle(s string) string {
	s = titleMarker.ReplaceAllString(s, "$1")
	s = bracketTag.ReplaceAllString(s, " ")
	s = hashTag.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)
	s = titleObligation.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	return capitalize(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleLen {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRightFunc(string(runes[:MaxTitleLen-len(ellipsis)]), unicode.IsSpace)
	return cut + ellipsis
}
