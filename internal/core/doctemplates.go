package core

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates
var templateFS embed.FS

// DocTemplates renders the embedded files written by tflow init.
type DocTemplates struct{}

// NewDocTemplates creates a new DocTemplates instance.
func NewDocTemplates() *DocTemplates {
	return &DocTemplates{}
}

// GetTemplate returns the raw content of a named template.
func (dt *DocTemplates) GetTemplate(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(data), nil
}

// Render executes a named template with data.
func (dt *DocTemplates) Render(name string, data any) ([]byte, error) {
	content, err := dt.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
