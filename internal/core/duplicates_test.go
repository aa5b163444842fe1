package core

import (
	"reflect"
	"testing"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

func titled(id, title string) *models.Task {
	return &models.Task{ID: id, Title: title}
}

func TestFindRelated(t *testing.T) {
	existing := []*models.Task{
		titled("AUTH-001", "Fix login redirect bug"),
		titled("AUTH-002", "Login page styling"),
		titled("API-001", "Add caching layer"),
		titled("OPS-001", "Rotate credentials"),
	}

	got := FindRelated("Fix login redirect issue", existing, 0)
	if len(got) != 1 || got[0].ID != "AUTH-001" {
		t.Fatalf("expected only AUTH-001, got %+v", got)
	}
	if got[0].Matches != 2 {
		t.Errorf("expected 2 matches, got %+v", got[0])
	}

	// "fix" and "bug" are too short to count, leaving one of two tokens.
	if got := FindRelated("Fix login bug - urgent!", existing, 0); got != nil {
		t.Errorf("expected a half match to be unrelated, got %+v", got)
	}
}

func TestFindRelated_RuleAndRanking(t *testing.T) {
	existing := []*models.Task{
		titled("A-003", "caching for the search endpoint"),
		titled("A-001", "search caching"),
		titled("A-002", "unrelated work item"),
		titled("A-004", "endpoint caching search rewrite"),
		titled("A-005", "search endpoint caching"),
	}
	got := FindRelated("search endpoint caching", existing, 3)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if want := []string{"A-003", "A-004", "A-005"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ranked ids = %v, want %v", ids, want)
	}
	for _, r := range got {
		if r.Matches != 3 || r.MatchRatio != 1 {
			t.Errorf("unexpected match detail %+v", r)
		}
	}
}

func TestFindRelated_NoTokens(t *testing.T) {
	if got := FindRelated("do it", []*models.Task{titled("A-001", "do it now")}, 3); got != nil {
		t.Errorf("expected nil for titles without long tokens, got %+v", got)
	}
}

func TestFindDocReferences(t *testing.T) {
	docs := map[string]string{
		"ROADMAP.md":   "# Roadmap\n## Q3: search caching rollout\n## Q4: billing\n",
		"DECISIONS.md": "# Decisions\n## Search caching via redis\n",
	}
	got := FindDocReferences("Add search caching", docs)
	want := []models.DocReference{
		{Doc: "DECISIONS.md", Heading: "Search caching via redis"},
		{Doc: "ROADMAP.md", Heading: "Q3: search caching rollout"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("refs = %+v, want %+v", got, want)
	}
}
