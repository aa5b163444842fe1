package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

var (
	bracketTag = regexp.MustCompile(`\[([^\[\]]+)\]`)
	hashTag    = regexp.MustCompile(`(^|\s)#([\p{L}\p{N}_-]+)`)
	listMarker = regexp.MustCompile(`^\s*(?:[-*]\s+(?:\[[ xX]\]\s*)?|\d+\.\s+)`)
)

// AnalyzeIntent derives the three intent layers, a priority, tags and a
// confidence score for one candidate. It is a pure function of c.
func AnalyzeIntent(c models.TodoCandidate) models.IntentAnalysis {
	combined := combinedText(c)

	a := models.IntentAnalysis{
		ExplicitStatement: c.Text,
		ShadowRationale:   shadowRationale(combined),
		PracticalNote:     practicalNote(combined),
		Priority:          DerivePriority(combined),
		Tags:              ExtractTags(c.Raw),
	}
	a.Confidence = confidence(c, a)
	return a
}

func combinedText(c models.TodoCandidate) string {
	if len(c.Context) == 0 {
		return c.Text
	}
	return c.Text + " " + strings.Join(c.Context, " ")
}

func confidence(c models.TodoCandidate, a models.IntentAnalysis) int {
	score := 0
	if c.IsExplicitChecklistItem {
		score += checklistWeight
	}
	raw := c.Raw
	if raw == "" {
		raw = c.Text
	}
	if matchesAny(explicitPatterns, raw) {
		score += explicitWeight
	}
	if a.ShadowRationale != nil {
		score += shadowWeight
	}
	if a.PracticalNote != nil {
		score += practicalWeight
	}
	return min(score, maxConfidence)
}

// shadowRationale joins the context window around the first match of every
// matching motivation pattern. It returns nil when nothing matches.
func shadowRationale(text string) *string {
	var windows []string
	for _, p := range shadowPatterns {
		loc := p.Regex.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := runeStart(text, loc[0]-p.Before)
		end := runeEnd(text, loc[1]+p.After)
		if w := strings.TrimSpace(text[start:end]); w != "" {
			windows = append(windows, w)
		}
	}
	if len(windows) == 0 {
		return nil
	}
	s := strings.Join(windows, "; ")
	return &s
}

// practicalNote names the matched categories in table order with the terms
// that matched them.
func practicalNote(text string) *string {
	var parts []string
	for _, p := range practicalPatterns {
		found := p.Regex.FindAllString(text, -1)
		if len(found) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Category, strings.Join(distinctLower(found), ", ")))
	}
	if len(parts) == 0 {
		return nil
	}
	s := "Involves: " + strings.Join(parts, "; ")
	return &s
}

// DerivePriority returns the first matching urgency tier, defaulting to P2,
// then lets the keyword table raise it.
func DerivePriority(text string) models.Priority {
	priority := models.P2
tiers:
	for _, tier := range priorityTiers {
		for _, re := range tier.Patterns {
			if re.MatchString(text) {
				priority = tier.Priority
				break tiers
			}
		}
	}
	for _, kw := range priorityKeywords {
		if kw.Keyword.MatchString(text) {
			priority = upgrade(priority, kw.Priority)
		}
	}
	return priority
}

// upgrade returns the more urgent of current and candidate.
func upgrade(current, candidate models.Priority) models.Priority {
	if candidate.Rank() < current.Rank() {
		return candidate
	}
	return current
}

// ExtractTags returns bracket groups and hashtags from raw candidate text,
// lowercased, in order of appearance. A leading list or checkbox marker is
// not a tag. Markdown link text is skipped.
func ExtractTags(raw string) []string {
	text := listMarker.ReplaceAllString(raw, "")

	type hit struct {
		pos int
		tag string
	}
	var hits []hit
	for _, m := range bracketTag.FindAllStringSubmatchIndex(text, -1) {
		if m[1] < len(text) && text[m[1]] == '(' {
			continue
		}
		tag := strings.ToLower(strings.TrimSpace(text[m[2]:m[3]]))
		if tag != "" {
			hits = append(hits, hit{m[0], tag})
		}
	}
	for _, m := range hashTag.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[4], strings.ToLower(text[m[4]:m[5]])})
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	tags := make([]string, len(hits))
	for i, h := range hits {
		tags[i] = h.tag
	}
	return tags
}

func distinctLower(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.ToLower(v)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// runeStart clamps i into s and moves it back to a rune boundary.
func runeStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeEnd clamps i into s and moves it forward to a rune boundary.
func runeEnd(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if i <= 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
