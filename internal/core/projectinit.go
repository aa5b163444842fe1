package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig holds the parameters for initializing a taskflow workspace.
type InitConfig struct {
	BasePath string
	Name     string
	Project  string
}

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// ProjectInitializer lays out a workspace: store directories, the config
// file and starter docs.
type ProjectInitializer interface {
	Init(config InitConfig) (*InitResult, error)
}

type projectInitializer struct {
	configs      func(basePath string) ConfigurationManager
	docTemplates *DocTemplates
}

// NewProjectInitializer creates a new ProjectInitializer.
func NewProjectInitializer() ProjectInitializer {
	return &projectInitializer{
		configs:      NewConfigurationManager,
		docTemplates: NewDocTemplates(),
	}
}

// Init is safe to run on an existing workspace: anything already present is
// skipped and never overwritten.
func (pi *projectInitializer) Init(config InitConfig) (*InitResult, error) {
	result := &InitResult{}
	if config.Name == "" {
		config.Name = filepath.Base(config.BasePath)
	}
	if config.Project == "" {
		config.Project = "TASK"
	}

	cm := pi.configs(config.BasePath)
	cfgPath := filepath.Join(config.BasePath, ConfigFileName)
	_, statErr := os.Stat(cfgPath)
	if _, err := cm.WriteDefaultConfig(config.Project); err != nil {
		return nil, fmt.Errorf("initializing project: %w", err)
	}
	record(result, cfgPath, statErr != nil)

	cfg, err := cm.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("initializing project: %w", err)
	}

	dirs := []string{
		cfg.Paths.Tasks,
		cfg.Paths.TasksArchive,
		cfg.Paths.Inbox,
		cfg.Paths.ThoughtsArchive,
		cfg.Paths.Docs,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		full := filepath.Join(config.BasePath, dir)
		created, err := ensureDir(full)
		if err != nil {
			return nil, fmt.Errorf("initializing project: creating directory %s: %w", full, err)
		}
		record(result, full, created)
	}

	files := []struct {
		template string
		target   string
	}{
		{"roadmap.md", filepath.Join(cfg.Paths.Docs, "ROADMAP.md")},
		{"decisions.md", filepath.Join(cfg.Paths.Docs, "DECISIONS.md")},
		{"inbox-readme.md", filepath.Join(cfg.Paths.Inbox, "..", "README.md")},
		{"gitignore", ".gitignore"},
	}
	for _, f := range files {
		target := filepath.Join(config.BasePath, f.target)
		if err := pi.writeFileIfNotExists(target, f.template, config, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func record(result *InitResult, path string, created bool) {
	if created {
		result.Created = append(result.Created, path)
	} else {
		result.Skipped = append(result.Skipped, path)
	}
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

func (pi *projectInitializer) writeFileIfNotExists(path, templateName string, data InitConfig, result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	content, err := pi.docTemplates.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("initializing project: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("initializing project: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("initializing project: writing %s: %w", path, err)
	}
	result.Created = append(result.Created, path)
	return nil
}
