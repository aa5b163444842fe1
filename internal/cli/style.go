package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/taskflow/internal/observability"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	priorityStyles = map[models.Priority]lipgloss.Style{
		models.P0: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		models.P1: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		models.P2: lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		models.P3: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}

	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.StatusTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		models.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		models.StatusBlocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}

	severityStyles = map[observability.AlertSeverity]lipgloss.Style{
		observability.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		observability.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		observability.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
	}
)

func priorityBadge(p models.Priority) string {
	style, ok := priorityStyles[p]
	if !ok {
		return "[" + string(p) + "]"
	}
	return style.Render("[" + string(p) + "]")
}

// statusLabel renders known statuses in color and others plain.
func statusLabel(s models.TaskStatus) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func severityLabel(s observability.AlertSeverity) string {
	if style, ok := severityStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}
