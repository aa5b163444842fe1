package observability

import (
	"fmt"
	"time"
)

// Metrics is an aggregate over the event log since some point in time.
type Metrics struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksArchived     int            `json:"tasks_archived"`
	TasksByProject    map[string]int `json:"tasks_by_project"`
	StatusChanges     map[string]int `json:"status_changes"`
	TasksFromThoughts int            `json:"tasks_from_thoughts"`
	ThoughtsArchived  int            `json:"thoughts_archived"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since. A zero since covers
// the whole log.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	filter := EventFilter{}
	if !since.IsZero() {
		filter.Since = &since
	}
	events, err := mc.eventLog.Read(filter)
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		TasksByProject: make(map[string]int),
		StatusChanges:  make(map[string]int),
		EventCount:     len(events),
	}
	for _, event := range events {
		t := event.Time
		if m.OldestEvent == nil || t.Before(*m.OldestEvent) {
			m.OldestEvent = &t
		}
		if m.NewestEvent == nil || t.After(*m.NewestEvent) {
			m.NewestEvent = &t
		}

		switch event.Type {
		case "task.created":
			m.TasksCreated++
			if project, ok := event.Data["project"].(string); ok && project != "" {
				m.TasksByProject[project]++
			}
		case "task.status_changed":
			status, _ := event.Data["new_status"].(string)
			if status == "" {
				continue
			}
			m.StatusChanges[status]++
			if status == "done" {
				m.TasksCompleted++
			}
		case "task.archived":
			m.TasksArchived++
		case "thought.extracted":
			m.TasksFromThoughts += intField(event.Data, "created")
		case "thought.archived":
			m.ThoughtsArchived++
		}
	}
	return m, nil
}

// intField reads a count from event data. Values read back from JSON arrive
// as float64.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
