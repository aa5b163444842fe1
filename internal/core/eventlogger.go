package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by core services.
const (
	EventTaskCreated       = "task.created"
	EventTaskUpdated       = "task.updated"
	EventTaskStatusChanged = "task.status_changed"
	EventTaskArchived      = "task.archived"
	EventThoughtExtracted  = "thought.extracted"
	EventThoughtArchived   = "thought.archived"
)

type nopEventLogger struct{}

func (nopEventLogger) LogEvent(string, map[string]any) error { return nil }
