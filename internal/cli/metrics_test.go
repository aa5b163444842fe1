package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/taskflow/internal/observability"
)

func useMetrics(t *testing.T, events ...observability.Event) {
	t.Helper()
	log, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), ".tflow_events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = log.Close() })
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatal(err)
		}
	}

	orig := MetricsCalc
	origJSON, origSince := metricsJSON, metricsSince
	t.Cleanup(func() {
		MetricsCalc = orig
		metricsJSON, metricsSince = origJSON, origSince
	})
	MetricsCalc = observability.NewMetricsCalculator(log)
}

func TestMetricsCmd_NotInitialized(t *testing.T) {
	orig := MetricsCalc
	defer func() { MetricsCalc = orig }()
	MetricsCalc = nil

	err := metricsCmd.RunE(metricsCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}

func TestMetricsCmd(t *testing.T) {
	now := time.Now().UTC()
	useMetrics(t,
		observability.Event{Time: now.Add(-time.Hour), Level: "INFO", Type: "task.created", Data: map[string]any{"task_id": "APP-001", "project": "APP"}},
		observability.Event{Time: now.Add(-time.Hour), Level: "INFO", Type: "task.created", Data: map[string]any{"task_id": "OPS-001", "project": "OPS"}},
		observability.Event{Time: now.Add(-30 * time.Minute), Level: "INFO", Type: "task.status_changed", Data: map[string]any{"task_id": "APP-001", "new_status": "done"}},
		observability.Event{Time: now.Add(-30 * 24 * time.Hour), Level: "INFO", Type: "task.created", Data: map[string]any{"task_id": "APP-000", "project": "APP"}},
	)

	metricsSince = "7d"
	out, err := run(t, metricsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Tasks created:", "Tasks by project:", "OPS:", "done:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	metricsJSON = true
	metricsSince = "60d"
	out, err = run(t, metricsCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m observability.Metrics
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if m.TasksCreated != 3 || m.TasksCompleted != 1 || m.TasksByProject["APP"] != 2 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestMetricsCmd_BadSince(t *testing.T) {
	useMetrics(t)
	metricsSince = "soon"

	err := metricsCmd.RunE(metricsCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--since") {
		t.Errorf("expected --since error, got %v", err)
	}
}

func TestParseSinceDuration_Default(t *testing.T) {
	got, err := parseSinceDuration("")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if d := got.Sub(want); d < -time.Minute || d > time.Minute {
		t.Errorf("default window = %v, want about %v", got, want)
	}
}
