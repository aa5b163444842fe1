// Package core contains the business logic for taskflow: the task graph,
// thought extraction and intent analysis, duplicate detection, title
// generation, and the services that tie them to storage.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project config file at the base path.
const ConfigFileName = ".taskflow.yaml"

var validProjectPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)

// ConfigurationManager loads and validates .taskflow.yaml.
type ConfigurationManager interface {
	LoadConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
	WriteDefaultConfig(project string) (string, error)
}

type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads the
// config file from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a GlobalConfig populated with defaults.
func DefaultConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Paths: models.PathsConfig{
			Tasks:           "tasks",
			TasksArchive:    "tasks/archive",
			Inbox:           "thoughts/inbox",
			ThoughtsArchive: "thoughts/archive",
			ArchiveLog:      "thoughts/ARCHIVE_LOG.md",
			Docs:            "docs",
		},
		Defaults:   models.DefaultsConfig{Owner: models.DefaultOwner},
		TaskID:     models.TaskIDConfig{PadWidth: 3},
		Extraction: models.ExtractionConfig{MinConfidence: MinConfidence, MaxRelated: DefaultMaxRelated},
		Logging:    models.LoggingConfig{Level: "info", Format: "console"},
		Events:     models.EventsConfig{Enabled: true},
		Alerts:     models.AlertConfig{BlockedHours: 72, StaleDays: 14},
	}
}

func setDefaults(v *viper.Viper, cfg *models.GlobalConfig) {
	v.SetDefault("paths.tasks", cfg.Paths.Tasks)
	v.SetDefault("paths.tasks_archive", cfg.Paths.TasksArchive)
	v.SetDefault("paths.inbox", cfg.Paths.Inbox)
	v.SetDefault("paths.thoughts_archive", cfg.Paths.ThoughtsArchive)
	v.SetDefault("paths.archive_log", cfg.Paths.ArchiveLog)
	v.SetDefault("paths.docs", cfg.Paths.Docs)
	v.SetDefault("defaults.owner", cfg.Defaults.Owner)
	v.SetDefault("defaults.project", cfg.Defaults.Project)
	v.SetDefault("task_id.pad_width", cfg.TaskID.PadWidth)
	v.SetDefault("extraction.min_confidence", cfg.Extraction.MinConfidence)
	v.SetDefault("extraction.max_related", cfg.Extraction.MaxRelated)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("events.enabled", cfg.Events.Enabled)
	v.SetDefault("alerts.blocked_hours", cfg.Alerts.BlockedHours)
	v.SetDefault("alerts.stale_days", cfg.Alerts.StaleDays)
}

// LoadConfig reads .taskflow.yaml from the base path. A missing file yields
// the defaults. TFLOW_* environment variables override file values.
func (cm *viperConfigManager) LoadConfig() (*models.GlobalConfig, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("TFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	cfg.Defaults.Project = strings.ToUpper(strings.TrimSpace(cfg.Defaults.Project))
	return cfg, nil
}

// ValidateConfig reports every invalid value at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string
	for key, val := range map[string]string{
		"paths.tasks":            cfg.Paths.Tasks,
		"paths.tasks_archive":    cfg.Paths.TasksArchive,
		"paths.inbox":            cfg.Paths.Inbox,
		"paths.thoughts_archive": cfg.Paths.ThoughtsArchive,
		"paths.archive_log":      cfg.Paths.ArchiveLog,
	} {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, key+" must not be empty")
		}
	}
	if cfg.Paths.Tasks != "" && cfg.Paths.Tasks == cfg.Paths.TasksArchive {
		errs = append(errs, "paths.tasks_archive must differ from paths.tasks")
	}
	if cfg.Paths.Inbox != "" && cfg.Paths.Inbox == cfg.Paths.ThoughtsArchive {
		errs = append(errs, "paths.thoughts_archive must differ from paths.inbox")
	}
	if cfg.TaskID.PadWidth < 1 || cfg.TaskID.PadWidth > 10 {
		errs = append(errs, fmt.Sprintf("task_id.pad_width %d is invalid, must be between 1 and 10", cfg.TaskID.PadWidth))
	}
	if p := cfg.Defaults.Project; p != "" && !validProjectPattern.MatchString(p) {
		errs = append(errs, fmt.Sprintf("defaults.project %q is invalid, must match [A-Z][A-Z0-9]{0,9}", p))
	}
	if c := cfg.Extraction.MinConfidence; c < 0 || c > maxConfidence {
		errs = append(errs, fmt.Sprintf("extraction.min_confidence %d is invalid, must be between 0 and 100", c))
	}
	if cfg.Extraction.MaxRelated < 1 {
		errs = append(errs, fmt.Sprintf("extraction.max_related %d must be at least 1", cfg.Extraction.MaxRelated))
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid, must be console or json", cfg.Logging.Format))
	}
	if cfg.Alerts.BlockedHours < 0 || cfg.Alerts.StaleDays < 0 {
		errs = append(errs, "alerts thresholds must be non-negative")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// WriteDefaultConfig writes the default config file, with project as
// defaults.project, unless one exists. It returns the file's path.
func (cm *viperConfigManager) WriteDefaultConfig(project string) (string, error) {
	path := filepath.Join(cm.basePath, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	cfg := DefaultConfig()
	cfg.Defaults.Project = strings.ToUpper(strings.TrimSpace(project))
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(cm.basePath, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", cm.basePath, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
