package models

import (
	"slices"
	"time"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

// Priority represents the urgency level of a task. P0 is the most urgent.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Rank returns the ordering position of the priority (P0 = 0). Unknown
// priorities sort after P3.
func (p Priority) Rank() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	case P3:
		return 3
	default:
		return 4
	}
}

// Valid reports whether p is one of P0..P3.
func (p Priority) Valid() bool {
	return p.Rank() < 4
}

// DefaultOwner is assigned to tasks created without an owner.
const DefaultOwner = "unassigned"

// Subtask is a single checklist line in a task body.
type Subtask struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task is the unit of trackable work. Each task is stored as one markdown
// file with a YAML header block followed by a free-text body.
type Task struct {
	ID          string     `yaml:"id" json:"id" validate:"required,taskid"`
	Title       string     `yaml:"title" json:"title" validate:"required"`
	Project     string     `yaml:"project" json:"project" validate:"required,uppercase"`
	Priority    Priority   `yaml:"priority" json:"priority" validate:"oneof=P0 P1 P2 P3"`
	Status      TaskStatus `yaml:"status" json:"status" validate:"required"`
	Owner       string     `yaml:"owner" json:"owner"`
	DependsOn   []string   `yaml:"depends_on" json:"depends_on"`
	BlockedBy   []string   `yaml:"blocked_by" json:"blocked_by"`
	Tags        []string   `yaml:"tags" json:"tags"`
	Created     time.Time  `yaml:"created" json:"created" validate:"required"`
	Updated     time.Time  `yaml:"updated" json:"updated" validate:"required"`
	Estimate    string     `yaml:"estimate,omitempty" json:"estimate,omitempty"`
	Description string     `yaml:"-" json:"description,omitempty"`
	Subtasks    []Subtask  `yaml:"-" json:"subtasks,omitempty"`
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// TaskInput holds the caller-supplied fields for a new task.
type TaskInput struct {
	Title       string
	Project     string
	Priority    Priority
	Owner       string
	DependsOn   []string
	BlockedBy   []string
	Tags        []string
	Estimate    string
	Description string
	Subtasks    []Subtask
}

// TaskUpdate is a partial update. Nil fields are left untouched. ID, Project
// and Created exist only so that attempts to change them can be rejected.
type TaskUpdate struct {
	ID          *string
	Project     *string
	Created     *time.Time
	Title       *string
	Priority    *Priority
	Status      *TaskStatus
	Owner       *string
	DependsOn   []string
	BlockedBy   []string
	Tags        []string
	Estimate    *string
	Description *string
	Subtasks    []Subtask

	// ClearBlockedBy empties blocked_by, since a nil BlockedBy means "unchanged".
	ClearBlockedBy bool
}
