package cli

import (
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	TaskSvc     core.TaskService
	ThoughtSvc  core.ThoughtProcessor
	ProjectInit core.ProjectInitializer
	BasePath    string

	// DefaultProject is defaults.project from the config, used when a
	// command is not given --project.
	DefaultProject string
)

// Observability service instances. They stay nil when the event log is
// disabled in config.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
)
