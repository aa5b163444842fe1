package models

// PathsConfig holds the store layout, relative to the base path.
type PathsConfig struct {
	Tasks           string `yaml:"tasks" mapstructure:"tasks"`
	TasksArchive    string `yaml:"tasks_archive" mapstructure:"tasks_archive"`
	Inbox           string `yaml:"inbox" mapstructure:"inbox"`
	ThoughtsArchive string `yaml:"thoughts_archive" mapstructure:"thoughts_archive"`
	ArchiveLog      string `yaml:"archive_log" mapstructure:"archive_log"`
	Docs            string `yaml:"docs" mapstructure:"docs"`
}

// DefaultsConfig holds values applied when a caller omits them.
type DefaultsConfig struct {
	Owner   string `yaml:"owner" mapstructure:"owner"`
	Project string `yaml:"project,omitempty" mapstructure:"project"`
}

// TaskIDConfig controls id formatting.
type TaskIDConfig struct {
	PadWidth int `yaml:"pad_width" mapstructure:"pad_width"`
}

// ExtractionConfig tunes the thought pipeline.
type ExtractionConfig struct {
	MinConfidence int `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxRelated    int `yaml:"max_related" mapstructure:"max_related"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// EventsConfig toggles the JSONL event log.
type EventsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// AlertConfig holds thresholds for graph alerts.
type AlertConfig struct {
	BlockedHours int `yaml:"blocked_hours" mapstructure:"blocked_hours"`
	StaleDays    int `yaml:"stale_days" mapstructure:"stale_days"`
}

// GlobalConfig holds settings read from .taskflow.yaml via Viper.
type GlobalConfig struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Defaults   DefaultsConfig   `yaml:"defaults" mapstructure:"defaults"`
	TaskID     TaskIDConfig     `yaml:"task_id" mapstructure:"task_id"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Alerts     AlertConfig      `yaml:"alerts" mapstructure:"alerts"`
}
