package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/taskflow/internal/observability"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

func TestTaskCmds_NilService(t *testing.T) {
	orig := TaskSvc
	defer func() { TaskSvc = orig }()
	TaskSvc = nil

	for _, cmd := range []struct {
		name string
		run  func() error
	}{
		{"create", func() error { return taskCreateCmd.RunE(taskCreateCmd, []string{"x"}) }},
		{"list", func() error { return taskListCmd.RunE(taskListCmd, nil) }},
		{"next", func() error { return taskNextCmd.RunE(taskNextCmd, nil) }},
		{"graph", func() error { return graphCmd.RunE(graphCmd, nil) }},
	} {
		err := cmd.run()
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("%s: expected not initialized error, got %v", cmd.name, err)
		}
	}
}

func TestTaskCreateCmd(t *testing.T) {
	useServices(t)
	setFlags(t, taskCreateCmd, map[string]string{"project": "app", "priority": "p1", "tags": "auth,api"})

	out, err := run(t, taskCreateCmd, "Fix", "login", "timeout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Created task APP-001") || !strings.Contains(out, "[P1]") {
		t.Errorf("unexpected output:\n%s", out)
	}

	task, err := TaskSvc.GetTask("APP-001")
	if err != nil {
		t.Fatal(err)
	}
	if task.Title != "Fix login timeout" || task.Priority != models.P1 || len(task.Tags) != 2 {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestTaskCreateCmd_DefaultProject(t *testing.T) {
	useServices(t)

	_, err := run(t, taskCreateCmd, "No project anywhere")
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	DefaultProject = "OPS"
	out, err := run(t, taskCreateCmd, "Rotate keys")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "OPS-001") {
		t.Errorf("expected OPS-001, got:\n%s", out)
	}
}

func TestTaskUpdateCmd(t *testing.T) {
	useServices(t)
	if _, err := TaskSvc.CreateTask(models.TaskInput{Title: "Write docs", Project: "APP"}); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, taskUpdateCmd, "APP-001"); err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("expected nothing-to-update error, got %v", err)
	}

	setFlags(t, taskUpdateCmd, map[string]string{"status": "in_progress", "owner": "sam"})
	out, err := run(t, taskUpdateCmd, "APP-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Updated task APP-001") || !strings.Contains(out, "in_progress") {
		t.Errorf("unexpected output:\n%s", out)
	}

	task, _ := TaskSvc.GetTask("APP-001")
	if task.Status != models.StatusInProgress || task.Owner != "sam" {
		t.Errorf("update not applied: %+v", task)
	}
}

func TestTaskUpdateCmd_NotFound(t *testing.T) {
	useServices(t)
	setFlags(t, taskUpdateCmd, map[string]string{"title": "anything"})

	_, err := run(t, taskUpdateCmd, "APP-404")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTaskListCmd(t *testing.T) {
	env := useServices(t)
	for _, in := range []models.TaskInput{
		{Title: "Alpha", Project: "APP"},
		{Title: "Beta", Project: "OPS"},
	} {
		if _, err := TaskSvc.CreateTask(in); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.text.Write("tasks/APP-009.md", "garbage"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, taskListCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "APP-001") || !strings.Contains(out, "OPS-001") {
		t.Errorf("expected both tasks, got:\n%s", out)
	}
	if !strings.Contains(out, "1 task file(s) could not be read") {
		t.Errorf("expected malformed report, got:\n%s", out)
	}

	setFlags(t, taskListCmd, map[string]string{"project": "ops", "json": "true"})
	out, err = run(t, taskListCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(tasks) != 1 || tasks[0].ID != "OPS-001" {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func TestTaskArchiveAndListArchived(t *testing.T) {
	useServices(t)
	if _, err := TaskSvc.CreateTask(models.TaskInput{Title: "Old work", Project: "APP"}); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, taskArchiveCmd, "APP-001")
	if err != nil || !strings.Contains(out, "Archived task APP-001") {
		t.Fatalf("archive: %v\n%s", err, out)
	}

	setFlags(t, taskListCmd, map[string]string{"archived": "true"})
	out, err = run(t, taskListCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "APP-001") {
		t.Errorf("expected archived task listed, got:\n%s", out)
	}
}

func TestTaskShowCmd(t *testing.T) {
	useServices(t)
	base, _ := TaskSvc.CreateTask(models.TaskInput{Title: "Schema", Project: "APP"})
	if _, err := TaskSvc.CreateTask(models.TaskInput{
		Title:       "Migration",
		Project:     "APP",
		DependsOn:   []string{base.ID},
		Description: "Move the data.",
	}); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, taskShowCmd, "APP-002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"APP-002  Migration", "Depends:  APP-001", "depends on APP-001 (todo)", "Move the data."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, taskShowCmd, "APP-001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Needed by: APP-002") {
		t.Errorf("expected dependents line, got:\n%s", out)
	}
}

func TestTaskShowCmd_History(t *testing.T) {
	useServices(t)
	if _, err := TaskSvc.CreateTask(models.TaskInput{Title: "Schema", Project: "APP"}); err != nil {
		t.Fatal(err)
	}
	log, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), ".tflow_events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = log.Close() })
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, e := range []observability.Event{
		{Type: "task.created", Data: map[string]any{"task_id": "APP-001"}},
		{Type: "task.created", Data: map[string]any{"task_id": "APP-002"}},
		{Type: "task.status_changed", Data: map[string]any{"task_id": "APP-001", "new_status": "in_progress"}},
	} {
		e.Time = base.Add(time.Duration(i) * time.Hour)
		if err := log.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	EventLog = log

	out, err := run(t, taskShowCmd, "APP-001")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"History:", "task.created", "task.status_changed -> in_progress"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "task.created") != 1 {
		t.Errorf("history should only list APP-001 events:\n%s", out)
	}
}

func TestTaskNextCmd(t *testing.T) {
	useServices(t)

	out, err := run(t, taskNextCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No actionable task.") {
		t.Errorf("expected empty message, got:\n%s", out)
	}

	base, _ := TaskSvc.CreateTask(models.TaskInput{Title: "Schema", Project: "APP", Priority: models.P3})
	if _, err := TaskSvc.CreateTask(models.TaskInput{Title: "Migration", Project: "APP", Priority: models.P0, DependsOn: []string{base.ID}}); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, taskNextCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "APP-001") {
		t.Errorf("expected the unblocked P3 first, got:\n%s", out)
	}
}
