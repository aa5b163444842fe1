package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

const authNote = `---
source: standup
---
# Auth
Login keeps failing for mobile users because the token expires early.
- [ ] Need to fix login bug - urgent!
- [x] Already rotated the signing key
What's causing the slow query?
maybe later
- [ ] Add [security] audit of session storage #auth
`

func TestProcess_Proposals(t *testing.T) {
	f := newFixture(t)
	f.writeNote(t, "auth.md", authNote)

	res, err := f.thought.Process("auth.md", ProcessOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Note.Preamble["source"] != "standup" {
		t.Errorf("expected preamble passthrough, got %v", res.Note.Preamble)
	}
	if res.Candidates != 3 || res.Filtered != 1 {
		t.Errorf("candidates=%d filtered=%d, want 3 and 1", res.Candidates, res.Filtered)
	}
	if len(res.Proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %+v", res.Proposals)
	}

	login := res.Proposals[0]
	if login.Title != "Fix login bug - urgent!" || login.Analysis.Priority != models.P0 {
		t.Errorf("unexpected login proposal: %q %s", login.Title, login.Analysis.Priority)
	}
	if login.Candidate.Section != "Auth" {
		t.Errorf("section = %q", login.Candidate.Section)
	}
	if login.Analysis.ShadowRationale == nil {
		t.Error("expected rationale from the preceding line")
	}

	audit := res.Proposals[1]
	if audit.Title != "Add audit of session storage" {
		t.Errorf("title = %q", audit.Title)
	}
	if !reflect.DeepEqual(audit.Analysis.Tags, []string{"security", "auth"}) {
		t.Errorf("tags = %v", audit.Analysis.Tags)
	}

	names, _ := f.thought.ListThoughts()
	if len(names) != 1 {
		t.Errorf("Process must not move the note, inbox = %v", names)
	}
	if len(f.events.types()) != 0 {
		t.Errorf("Process must not emit events, got %v", f.events.types())
	}
}

func TestProcess_RelatedTasksAndDocs(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tasks.CreateTask(models.TaskInput{Title: "Login bug on urgent path", Project: "AUTH"}); err != nil {
		t.Fatal(err)
	}
	if err := f.text.Write("docs/ROADMAP.md", "# Roadmap\n## Session storage audit\n"); err != nil {
		t.Fatal(err)
	}
	f.writeNote(t, "auth.md", authNote)

	res, err := f.thought.Process("auth.md", ProcessOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel := res.Proposals[0].Related; len(rel) != 1 || rel[0].ID != "AUTH-001" {
		t.Errorf("expected AUTH-001 related to the login proposal, got %+v", rel)
	}
	refs := res.Proposals[1].References
	if len(refs) != 1 || refs[0].Doc != "ROADMAP.md" {
		t.Errorf("expected roadmap reference, got %+v", refs)
	}
}

func TestProcess_MinConfidenceOverride(t *testing.T) {
	f := newFixture(t)
	f.writeNote(t, "n.md", "Should add caching to the API calls\n")

	res, _ := f.thought.Process("n.md", ProcessOptions{})
	if len(res.Proposals) != 1 || res.Proposals[0].Analysis.PracticalNote == nil {
		t.Fatalf("expected one proposal with a practical note, got %+v", res.Proposals)
	}
	res, _ = f.thought.Process("n.md", ProcessOptions{MinConfidence: 90})
	if len(res.Proposals) != 0 {
		t.Errorf("expected high threshold to filter everything, got %+v", res.Proposals)
	}
}

func TestProcess_MissingNote(t *testing.T) {
	f := newFixture(t)
	if _, err := f.thought.Process("nope.md", ProcessOptions{}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAcceptProposals_CreatesAndArchives(t *testing.T) {
	f := newFixture(t)
	f.writeNote(t, "auth.md", authNote)
	res, err := f.thought.Process("auth.md", ProcessOptions{})
	if err != nil {
		t.Fatal(err)
	}

	out, err := f.thought.AcceptProposals("auth.md", res.Proposals, AcceptOptions{Project: "auth", Notes: "triaged"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Created) != 2 || out.Created[0].ID != "AUTH-001" || out.Created[1].ID != "AUTH-002" {
		t.Fatalf("unexpected created tasks: %+v", out.Created)
	}
	if out.Created[0].Priority != models.P0 {
		t.Errorf("expected analyzed priority on task, got %s", out.Created[0].Priority)
	}
	if !strings.Contains(out.Created[0].Description, "Source: auth.md line 3") {
		t.Errorf("description = %q", out.Created[0].Description)
	}

	if out.Entry == nil || !reflect.DeepEqual(out.Entry.TaskIDs, []string{"AUTH-001", "AUTH-002"}) {
		t.Fatalf("unexpected archive entry %+v", out.Entry)
	}
	logEntries, _ := f.thought.ArchiveLog()
	if len(logEntries) != 1 || logEntries[0].Notes != "triaged" {
		t.Errorf("unexpected log: %+v", logEntries)
	}
	if inbox, _ := f.thought.ListThoughts(); len(inbox) != 0 {
		t.Errorf("expected inbox empty, got %v", inbox)
	}

	want := []string{EventTaskCreated, EventTaskCreated, EventThoughtExtracted, EventThoughtArchived}
	if got := f.events.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestAcceptProposals_SkipsRelatedUnlessForced(t *testing.T) {
	f := newFixture(t)
	_, _ = f.tasks.CreateTask(models.TaskInput{Title: "Login bug on urgent path", Project: "AUTH"})
	f.writeNote(t, "auth.md", authNote)
	res, _ := f.thought.Process("auth.md", ProcessOptions{})

	out, err := f.thought.AcceptProposals("auth.md", res.Proposals, AcceptOptions{Project: "AUTH", KeepNote: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Created) != 1 || len(out.Skipped) != 1 || out.Entry != nil {
		t.Fatalf("expected one created, one skipped and no archive, got %+v", out)
	}

	out, err = f.thought.AcceptProposals("auth.md", res.Proposals, AcceptOptions{Project: "AUTH", Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Created) != 2 || out.Entry == nil {
		t.Fatalf("expected forced accept to create both and archive, got %+v", out)
	}
}

func TestAcceptProposals_RequiresProject(t *testing.T) {
	f := newFixture(t)
	if _, err := f.thought.AcceptProposals("x.md", nil, AcceptOptions{}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestArchiveThought_Scenario(t *testing.T) {
	f := newFixture(t)
	f.writeNote(t, "ideas.md", "- [ ] one\n")

	entry, err := f.thought.ArchiveThought("ideas.md", []string{"AUTH-001", "AUTH-002"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Filename != "ideas.md" {
		t.Errorf("filename = %q", entry.Filename)
	}
	log, _ := f.thought.ArchiveLog()
	if !reflect.DeepEqual(log[0].TaskIDs, []string{"AUTH-001", "AUTH-002"}) {
		t.Errorf("newest entry ids = %v", log[0].TaskIDs)
	}
	if archived, _ := f.thought.ListArchived(); len(archived) != 1 {
		t.Errorf("archived = %v", archived)
	}
	if _, err := f.thought.ArchiveThought("ideas.md", nil, ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found on second archive, got %v", err)
	}
}
