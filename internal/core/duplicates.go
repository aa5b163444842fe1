package core

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/valter-silva-au/taskflow/internal/storage"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

// DefaultMaxRelated caps the related-task list.
const DefaultMaxRelated = 3

// titleTokens splits a title on whitespace, strips surrounding punctuation
// and keeps lowercase tokens longer than three characters.
func titleTokens(title string) []string {
	var tokens []string
	for _, w := range strings.Fields(title) {
		w = strings.ToLower(strings.Trim(w, "[](){}|*_`#-:;,.\"'/!?"))
		if utf8.RuneCountInString(w) > 3 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// FindRelated returns existing tasks whose titles overlap title. A task is
// related when at least two candidate tokens occur in its title or more than
// half of them do. Results are ranked by match ratio, then match count, then
// id, and capped at limit (DefaultMaxRelated when limit <= 0).
func FindRelated(title string, existing []*models.Task, limit int) []models.RelatedTask {
	if limit <= 0 {
		limit = DefaultMaxRelated
	}
	tokens := titleTokens(title)
	if len(tokens) == 0 {
		return nil
	}

	var related []models.RelatedTask
	for _, t := range existing {
		matches, ratio := tokenMatches(tokens, t.Title)
		if isRelated(matches, ratio) {
			related = append(related, models.RelatedTask{
				ID:         t.ID,
				Title:      t.Title,
				Matches:    matches,
				MatchRatio: ratio,
			})
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		a, b := related[i], related[j]
		if a.MatchRatio != b.MatchRatio {
			return a.MatchRatio > b.MatchRatio
		}
		if a.Matches != b.Matches {
			return a.Matches > b.Matches
		}
		return storage.CompareTaskIDs(a.ID, b.ID) < 0
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

// tokenMatches counts the tokens that occur in text, case-insensitively.
func tokenMatches(tokens []string, text string) (int, float64) {
	haystack := strings.ToLower(text)
	matches := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			matches++
		}
	}
	return matches, float64(matches) / float64(len(tokens))
}

func isRelated(matches int, ratio float64) bool {
	return matches >= 2 || ratio > 0.5
}

// FindDocReferences returns the markdown headings in docs that overlap
// title by the same rule as FindRelated. Docs are visited in name order.
func FindDocReferences(title string, docs map[string]string) []models.DocReference {
	tokens := titleTokens(title)
	if len(tokens) == 0 || len(docs) == 0 {
		return nil
	}
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	var refs []models.DocReference
	for _, name := range names {
		for _, line := range strings.Split(docs[name], "\n") {
			m := headingLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if isRelated(tokenMatches(tokens, m[1])) {
				refs = append(refs, models.DocReference{Doc: name, Heading: m[1]})
			}
		}
	}
	return refs
}
