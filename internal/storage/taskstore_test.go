package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

func newTestTaskStore(t *testing.T) (*fileTaskStore, TextStore) {
	t.Helper()
	text := NewTextStore(afero.NewMemMapFs(), "/proj")
	store := NewTaskStore(text, TaskStoreConfig{Dir: "tasks", ArchiveDir: "tasks/archive"}, nil, nil).(*fileTaskStore)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return store, text
}

func mustCreate(t *testing.T, s TaskStore, in models.TaskInput) *models.Task {
	t.Helper()
	task, err := s.CreateTask(in)
	if err != nil {
		t.Fatalf("unexpected error creating %q: %v", in.Title, err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	s, _ := newTestTaskStore(t)

	task := mustCreate(t, s, models.TaskInput{Title: "Fix login bug", Project: "auth"})

	if task.ID != "AUTH-001" {
		t.Fatalf("expected AUTH-001, got %s", task.ID)
	}
	if task.Project != "AUTH" {
		t.Errorf("expected project uppercased, got %q", task.Project)
	}
	if task.Status != models.StatusTodo {
		t.Errorf("expected status todo, got %q", task.Status)
	}
	if task.Priority != models.P2 {
		t.Errorf("expected default priority P2, got %q", task.Priority)
	}
	if task.Owner != models.DefaultOwner {
		t.Errorf("expected owner %q, got %q", models.DefaultOwner, task.Owner)
	}
	if !task.Created.Equal(task.Updated) {
		t.Errorf("expected created == updated on creation")
	}

	got, err := s.GetTask("AUTH-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Fix login bug" {
		t.Errorf("expected title to round-trip, got %q", got.Title)
	}
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	s, _ := newTestTaskStore(t)

	cases := []struct {
		name string
		in   models.TaskInput
	}{
		{"empty title", models.TaskInput{Title: "  ", Project: "AUTH"}},
		{"empty project", models.TaskInput{Title: "Something"}},
		{"bad project", models.TaskInput{Title: "Something", Project: "a-b"}},
		{"bad priority", models.TaskInput{Title: "Something", Project: "AUTH", Priority: "P9"}},
		{"unknown dependency", models.TaskInput{Title: "Something", Project: "AUTH", DependsOn: []string{"AUTH-042"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateTask(tc.in)
			if !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateTask_SequencePerPrefix(t *testing.T) {
	s, _ := newTestTaskStore(t)

	mustCreate(t, s, models.TaskInput{Title: "one", Project: "AUTH"})
	mustCreate(t, s, models.TaskInput{Title: "two", Project: "API"})
	third := mustCreate(t, s, models.TaskInput{Title: "three", Project: "AUTH"})

	if third.ID != "AUTH-002" {
		t.Fatalf("expected AUTH-002, got %s", third.ID)
	}
}

func TestCreateTask_NeverReusesArchivedID(t *testing.T) {
	s, _ := newTestTaskStore(t)
	for i := 0; i < 4; i++ {
		mustCreate(t, s, models.TaskInput{Title: "task", Project: "AUTH"})
	}

	if err := s.ArchiveTask("AUTH-003"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ArchiveTask("AUTH-004"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := mustCreate(t, s, models.TaskInput{Title: "after archive", Project: "AUTH"})
	if next.ID != "AUTH-005" {
		t.Fatalf("expected AUTH-005 after archiving the highest ids, got %s", next.ID)
	}
}

func TestUpdateTask(t *testing.T) {
	s, _ := newTestTaskStore(t)
	orig := mustCreate(t, s, models.TaskInput{Title: "Write docs", Project: "DOC", Owner: "sam"})

	status := models.StatusInProgress
	prio := models.P1
	updated, err := s.UpdateTask(orig.ID, models.TaskUpdate{Status: &status, Priority: &prio})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.StatusInProgress || updated.Priority != models.P1 {
		t.Fatalf("expected fields merged, got status=%s priority=%s", updated.Status, updated.Priority)
	}
	if updated.Owner != "sam" {
		t.Errorf("expected owner preserved, got %q", updated.Owner)
	}
	if !updated.Updated.After(orig.Updated) {
		t.Errorf("expected updated to advance: before=%v after=%v", orig.Updated, updated.Updated)
	}
	if !updated.Created.Equal(orig.Created) {
		t.Errorf("expected created unchanged")
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	s, _ := newTestTaskStore(t)
	title := "nope"
	_, err := s.UpdateTask("AUTH-999", models.TaskUpdate{Title: &title})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateTask_RejectsImmutableFields(t *testing.T) {
	s, _ := newTestTaskStore(t)
	task := mustCreate(t, s, models.TaskInput{Title: "immutable", Project: "CORE"})

	newID := "CORE-099"
	newProject := "OTHER"
	newCreated := task.Created.Add(-time.Hour)

	for name, upd := range map[string]models.TaskUpdate{
		"id":      {ID: &newID},
		"project": {Project: &newProject},
		"created": {Created: &newCreated},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.UpdateTask(task.ID, upd)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != name {
				t.Errorf("expected field %q, got %q", name, verr.Field)
			}
		})
	}

	sameProject := "core"
	if _, err := s.UpdateTask(task.ID, models.TaskUpdate{Project: &sameProject}); err != nil {
		t.Errorf("restating the same project should not fail: %v", err)
	}
}

func TestArchiveTask(t *testing.T) {
	s, text := newTestTaskStore(t)
	task := mustCreate(t, s, models.TaskInput{Title: "archive me", Project: "OPS"})

	if err := s.ArchiveTask(task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetTask(task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected archived task to leave the active set, got %v", err)
	}
	ok, _ := text.Exists("tasks/archive/OPS-001.md")
	if !ok {
		t.Fatal("expected record in archive directory")
	}

	archived, err := s.LoadArchivedTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archived.Tasks) != 1 || archived.Tasks[0].ID != task.ID {
		t.Fatalf("expected archived task to be retained, got %+v", archived.Tasks)
	}

	if err := s.ArchiveTask(task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected re-archive to fail with not found, got %v", err)
	}
}

func TestLoadAllTasks_SkipsMalformed(t *testing.T) {
	s, text := newTestTaskStore(t)
	mustCreate(t, s, models.TaskInput{Title: "good one", Project: "AUTH"})
	mustCreate(t, s, models.TaskInput{Title: "good two", Project: "AUTH"})

	if err := text.Write("tasks/AUTH-003.md", "no header here"); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}
	if err := text.Write("tasks/AUTH-004.md", "---\nid: AUTH-004\ntitle: [unterminated\n---\n"); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	res, err := s.LoadAllTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tasks) != 2 {
		t.Fatalf("expected 2 good tasks, got %d", len(res.Tasks))
	}
	if len(res.Malformed) != 2 {
		t.Fatalf("expected 2 malformed records, got %d", len(res.Malformed))
	}
	for _, m := range res.Malformed {
		if !errors.Is(m, models.ErrMalformedRecord) {
			t.Errorf("expected malformed record kind, got %v", m)
		}
	}

	// A malformed file still retires its id.
	next := mustCreate(t, s, models.TaskInput{Title: "next", Project: "AUTH"})
	if next.ID != "AUTH-005" {
		t.Errorf("expected AUTH-005, got %s", next.ID)
	}
}

func TestLoadAllTasks_IDMismatchIsMalformed(t *testing.T) {
	s, text := newTestTaskStore(t)
	task := mustCreate(t, s, models.TaskInput{Title: "original", Project: "AUTH"})
	doc, _ := text.Read("tasks/AUTH-001.md")
	if err := text.Write("tasks/AUTH-002.md", doc); err != nil {
		t.Fatalf("copying record: %v", err)
	}

	res, err := s.LoadAllTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].ID != task.ID {
		t.Fatalf("expected only the original task, got %+v", res.Tasks)
	}
	if len(res.Malformed) != 1 || !strings.Contains(res.Malformed[0].Error(), "does not match") {
		t.Fatalf("expected id mismatch to be reported, got %+v", res.Malformed)
	}
}

func TestCreateTask_DependencyOnExistingTask(t *testing.T) {
	s, _ := newTestTaskStore(t)
	dep := mustCreate(t, s, models.TaskInput{Title: "schema", Project: "DB"})
	task := mustCreate(t, s, models.TaskInput{Title: "migration", Project: "DB", DependsOn: []string{dep.ID, dep.ID}})

	if len(task.DependsOn) != 1 || task.DependsOn[0] != dep.ID {
		t.Fatalf("expected deduplicated dependency, got %v", task.DependsOn)
	}
}

func TestNextID_PadWidth(t *testing.T) {
	text := NewTextStore(afero.NewMemMapFs(), "/proj")
	s := NewTaskStore(text, TaskStoreConfig{Dir: "tasks", ArchiveDir: "tasks/archive", PadWidth: 5}, nil, nil)

	id, err := s.NextID("web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "WEB-00001" {
		t.Fatalf("expected WEB-00001, got %s", id)
	}
}

func TestCompareTaskIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"AUTH-999", "AUTH-1000", -1},
		{"AUTH-1000", "AUTH-999", 1},
		{"APP-010", "APP-010", 0},
		{"APP-002", "AUTH-001", -1},
		{"APP-001", "garbage", -1},
		{"garbage", "APP-001", 1},
	}
	for _, tt := range tests {
		if got := CompareTaskIDs(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareTaskIDs(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
