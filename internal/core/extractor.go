package core

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

var (
	headingLine   = regexp.MustCompile(`^\s*#{1,6}\s+(.+?)\s*$`)
	checklistLine = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s*(.+)$`)
	bulletLine    = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)

	// A number glued to its text must not start with a digit, so "3.14 is
	// close enough" stays prose.
	numberedLine = regexp.MustCompile(`^\s*\d+\.(?:\s+(.+)|([^\s\d].*))$`)
)

const (
	minListTextLen   = 5
	minIntentLineLen = 15
)

// ExtractCandidates scans a note body line by line and returns every todo
// candidate in source order. Line numbers are 1-based within body. The
// result depends only on body.
func ExtractCandidates(body string) []models.TodoCandidate {
	var (
		out     []models.TodoCandidate
		section string
		window  contextWindow
		blanks  int
	)

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			blanks++
			if blanks >= 2 {
				window.reset()
			}
			continue
		}
		blanks = 0

		if m := headingLine.FindStringSubmatch(raw); m != nil {
			section = m[1]
			continue
		}

		c, ok := classifyLine(raw, trimmed)
		if !ok {
			window.push(trimmed)
			continue
		}
		c.Raw = raw
		c.Section = section
		c.Context = window.snapshot()
		c.LineNumber = i + 1
		out = append(out, c)
	}
	return out
}

// classifyLine applies the list forms in order, then the intent heuristic.
func classifyLine(raw, trimmed string) (models.TodoCandidate, bool) {
	if m := checklistLine.FindStringSubmatch(raw); m != nil {
		text := strings.TrimSpace(m[2])
		if utf8.RuneCountInString(text) < minListTextLen {
			return models.TodoCandidate{}, false
		}
		return models.TodoCandidate{
			Text:                    text,
			IsExplicitChecklistItem: true,
			Checked:                 m[1] != " ",
		}, true
	}
	for _, re := range []*regexp.Regexp{bulletLine, numberedLine} {
		if m := re.FindStringSubmatch(raw); m != nil {
			text := strings.TrimSpace(strings.Join(m[1:], ""))
			if utf8.RuneCountInString(text) < minListTextLen {
				return models.TodoCandidate{}, false
			}
			return models.TodoCandidate{Text: text}, true
		}
	}
	if HasActionableIntent(trimmed) {
		return models.TodoCandidate{Text: trimmed}, true
	}
	return models.TodoCandidate{}, false
}

// HasActionableIntent reports whether a plain line states an intention: it
// matches an explicit intent pattern, is at least 15 characters long and is
// not a question.
func HasActionableIntent(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < minIntentLineLen {
		return false
	}
	if strings.HasSuffix(line, "?") || interrogativeStart.MatchString(line) {
		return false
	}
	return matchesAny(explicitPatterns, line)
}
