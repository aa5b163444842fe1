package cli

import (
	"io"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/storage"
)

// captureStdout captures stdout output during fn execution.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = origStdout

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out)
}

type cliEnv struct {
	text storage.TextStore
}

// useServices points the package-level services at a fresh in-memory
// workspace and restores the previous ones when the test ends.
func useServices(t *testing.T) *cliEnv {
	t.Helper()
	origTasks, origThoughts, origProject := TaskSvc, ThoughtSvc, DefaultProject
	origAlerts, origMetrics, origEvents := AlertEngine, MetricsCalc, EventLog
	t.Cleanup(func() {
		TaskSvc, ThoughtSvc, DefaultProject = origTasks, origThoughts, origProject
		AlertEngine, MetricsCalc, EventLog = origAlerts, origMetrics, origEvents
	})

	text := storage.NewTextStore(afero.NewMemMapFs(), "/proj")
	store := storage.NewTaskStore(text, storage.TaskStoreConfig{Dir: "tasks", ArchiveDir: "tasks/archive"}, nil, nil)
	TaskSvc = core.NewTaskService(store, nil, nil)
	inbox := storage.NewThoughtInbox(text, storage.ThoughtInboxConfig{
		InboxDir:   "thoughts/inbox",
		ArchiveDir: "thoughts/archive",
		LogPath:    "thoughts/ARCHIVE_LOG.md",
	}, nil, nil)
	ThoughtSvc = core.NewThoughtProcessor(inbox, TaskSvc, text, core.ThoughtProcessorConfig{DocsDir: "docs"}, nil, nil)
	DefaultProject = ""
	AlertEngine = nil
	MetricsCalc = nil
	EventLog = nil
	return &cliEnv{text: text}
}

// setFlags sets flags on cmd for one test and resets every flag of cmd to
// its default afterwards.
func setFlags(t *testing.T, cmd *cobra.Command, values map[string]string) {
	t.Helper()
	t.Cleanup(func() { resetFlags(cmd) })
	for name, v := range values {
		if err := cmd.Flags().Set(name, v); err != nil {
			t.Fatalf("setting --%s: %v", name, err)
		}
	}
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var err error
	out := captureStdout(t, func() {
		err = cmd.RunE(cmd, args)
	})
	return out, err
}
