package core

import (
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/taskflow/internal/storage"
)

type recordedEvent struct {
	Type string
	Data map[string]any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	text    storage.TextStore
	store   storage.TaskStore
	tasks   TaskService
	thought ThoughtProcessor
	events  *recordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	text := storage.NewTextStore(afero.NewMemMapFs(), "/proj")
	events := &recordingEvents{}
	store := storage.NewTaskStore(text, storage.TaskStoreConfig{Dir: "tasks", ArchiveDir: "tasks/archive"}, nil, nil)
	tasks := NewTaskService(store, events, nil)
	inbox := storage.NewThoughtInbox(text, storage.ThoughtInboxConfig{
		InboxDir:   "thoughts/inbox",
		ArchiveDir: "thoughts/archive",
		LogPath:    "thoughts/ARCHIVE_LOG.md",
	}, nil, nil)
	thought := NewThoughtProcessor(inbox, tasks, text, ThoughtProcessorConfig{DocsDir: "docs"}, events, nil)
	return &fixture{text: text, store: store, tasks: tasks, thought: thought, events: events}
}

func (f *fixture) writeNote(t *testing.T, name, content string) {
	t.Helper()
	if err := f.text.Write("thoughts/inbox/"+name, content); err != nil {
		t.Fatalf("writing note: %v", err)
	}
}
