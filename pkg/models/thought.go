package models

import "time"

// ThoughtNote is an inbox file of unstructured text. Preamble holds the
// optional YAML front matter, passed through untouched.
type ThoughtNote struct {
	Name      string         `json:"name"`
	Preamble  map[string]any `json:"preamble,omitempty"`
	Body      string         `json:"body"`
	LineCount int            `json:"line_count"`
}

// TodoCandidate is a line-level extraction of a possible task. It is never
// persisted on its own.
type TodoCandidate struct {
	Raw                     string   `json:"raw"`
	Text                    string   `json:"text"`
	Section                 string   `json:"section,omitempty"`
	Context                 []string `json:"context,omitempty"`
	LineNumber              int      `json:"line_number"`
	IsExplicitChecklistItem bool     `json:"is_explicit_checklist_item"`
	Checked                 bool     `json:"checked,omitempty"`
}

// IntentAnalysis holds the three intent layers plus derived scoring for one
// candidate. ShadowRationale and PracticalNote are nil when absent.
type IntentAnalysis struct {
	ExplicitStatement string   `json:"explicit_statement"`
	ShadowRationale   *string  `json:"shadow_rationale,omitempty"`
	PracticalNote     *string  `json:"practical_note,omitempty"`
	Priority          Priority `json:"priority"`
	Confidence        int      `json:"confidence"`
	Tags              []string `json:"tags,omitempty"`
}

// RelatedTask is an existing task whose title overlaps a candidate title.
type RelatedTask struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Matches    int     `json:"matches"`
	MatchRatio float64 `json:"match_ratio"`
}

// DocReference is a heading in a project document that overlaps a
// candidate title.
type DocReference struct {
	Doc     string `json:"doc"`
	Heading string `json:"heading"`
}

// ProposedTask bundles a candidate with its analysis, derived title and any
// possible duplicates. It is the unit the caller accepts or rejects.
type ProposedTask struct {
	Candidate  TodoCandidate  `json:"candidate"`
	Analysis   IntentAnalysis `json:"analysis"`
	Title      string         `json:"title"`
	Related    []RelatedTask  `json:"related,omitempty"`
	References []DocReference `json:"references,omitempty"`
}

// ArchiveEntry is one record in the thought archive log.
type ArchiveEntry struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	ArchivedAt time.Time `json:"archived_at"`
	LineCount  int       `json:"line_count"`
	TaskIDs    []string  `json:"task_ids"`
	Notes      string    `json:"notes,omitempty"`
}
