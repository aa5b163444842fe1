// Package internal provides the App struct that wires the taskflow
// components together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/taskflow/internal/cli"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/logging"
	"github.com/valter-silva-au/taskflow/internal/observability"
	"github.com/valter-silva-au/taskflow/internal/storage"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"go.uber.org/zap"
)

const (
	// HomeEnv overrides base path discovery.
	HomeEnv = "TFLOW_HOME"

	eventLogFile = ".tflow_events.jsonl"
	lockFile     = ".taskflow.lock"
)

// App holds all service dependencies for taskflow.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Logger   *zap.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Text  storage.TextStore
	Lock  storage.WriteLock
	Tasks storage.TaskStore
	Inbox storage.ThoughtInbox

	// Core services
	TaskSvc     core.TaskService
	ThoughtSvc  core.ThoughtProcessor
	ProjectInit core.ProjectInitializer

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components rooted at basePath, the
// directory holding .taskflow.yaml.
func NewApp(basePath string) (*App, error) {
	return newApp(basePath, afero.NewOsFs(), storage.NewFileWriteLock(filepath.Join(basePath, lockFile)))
}

func newApp(basePath string, fsys afero.Fs, lock storage.WriteLock) (*App, error) {
	app := &App{BasePath: basePath, Lock: lock}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Logger, err = logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	// --- Observability ---
	var events core.EventLogger
	if cfg.Events.Enabled {
		app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, eventLogFile))
		if err != nil {
			// The event log is optional; the stores work without it.
			app.Logger.Warn("event log unavailable", zap.Error(err))
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	app.AlertEngine = observability.NewAlertEngine(observability.ThresholdsFromConfig(cfg.Alerts), time.Now)

	// --- Storage ---
	app.Text = storage.NewTextStore(fsys, basePath)
	app.Tasks = storage.NewTaskStore(app.Text, storage.TaskStoreConfig{
		Dir:          cfg.Paths.Tasks,
		ArchiveDir:   cfg.Paths.TasksArchive,
		PadWidth:     cfg.TaskID.PadWidth,
		DefaultOwner: cfg.Defaults.Owner,
	}, app.Lock, app.Logger)
	app.Inbox = storage.NewThoughtInbox(app.Text, storage.ThoughtInboxConfig{
		InboxDir:   cfg.Paths.Inbox,
		ArchiveDir: cfg.Paths.ThoughtsArchive,
		LogPath:    cfg.Paths.ArchiveLog,
	}, app.Lock, app.Logger)

	// --- Core services ---
	app.TaskSvc = core.NewTaskService(app.Tasks, events, app.Logger)
	app.ThoughtSvc = core.NewThoughtProcessor(app.Inbox, app.TaskSvc, app.Text, core.ThoughtProcessorConfig{
		DocsDir:        cfg.Paths.Docs,
		MinConfidence:  cfg.Extraction.MinConfidence,
		MaxRelated:     cfg.Extraction.MaxRelated,
		DefaultProject: cfg.Defaults.Project,
	}, events, app.Logger)
	app.ProjectInit = core.NewProjectInitializer()

	cli.BasePath = basePath
	cli.TaskSvc = app.TaskSvc
	cli.ThoughtSvc = app.ThoughtSvc
	cli.ProjectInit = app.ProjectInit
	cli.DefaultProject = cfg.Defaults.Project

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc

	app.Logger.Debug("app initialized",
		zap.String("base_path", basePath),
		zap.Bool("events", app.EventLog != nil),
	)
	return app, nil
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the taskflow base directory. TFLOW_HOME wins;
// otherwise the nearest ancestor of the working directory holding
// .taskflow.yaml; otherwise the working directory itself.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// eventLogAdapter bridges observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
