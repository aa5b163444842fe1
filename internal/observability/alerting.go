package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

func (s AlertSeverity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	}
	return 2
}

// Alert conditions.
const (
	ConditionDanglingDependency = "dangling_dependency"
	ConditionDependencyCycle    = "dependency_cycle"
	ConditionBlockedTooLong     = "task_blocked_too_long"
	ConditionStaleInProgress    = "task_stale_in_progress"
)

// Alert is one triggered condition on the task graph.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	TaskIDs     []string      `json:"task_ids"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures the time-based conditions. A zero value
// disables that condition.
type AlertThresholds struct {
	BlockedHours int `json:"blocked_hours"`
	StaleDays    int `json:"stale_days"`
}

// ThresholdsFromConfig maps the alerts config section.
func ThresholdsFromConfig(cfg models.AlertConfig) AlertThresholds {
	return AlertThresholds{BlockedHours: cfg.BlockedHours, StaleDays: cfg.StaleDays}
}

// AlertEngine evaluates alert conditions over a set of active tasks.
type AlertEngine interface {
	Evaluate(tasks []*models.Task) []Alert
}

type alertEngine struct {
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine. now may be nil.
func NewAlertEngine(thresholds AlertThresholds, now func() time.Time) AlertEngine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &alertEngine{thresholds: thresholds, now: now}
}

// Evaluate returns alerts ordered by severity, then id.
func (ae *alertEngine) Evaluate(tasks []*models.Task) []Alert {
	now := ae.now()
	g := core.NewTaskGraph(tasks)

	var alerts []Alert
	alerts = append(alerts, danglingAlerts(g, now)...)
	alerts = append(alerts, cycleAlerts(g, now)...)
	alerts = append(alerts, ae.blockedAlerts(g, now)...)
	alerts = append(alerts, ae.staleAlerts(g, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.rank(), alerts[j].Severity.rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts
}

func danglingAlerts(g *core.TaskGraph, now time.Time) []Alert {
	var alerts []Alert
	for taskID, missing := range g.DanglingDependencies() {
		alerts = append(alerts, Alert{
			ID:          "dangling-" + taskID,
			Condition:   ConditionDanglingDependency,
			Severity:    SeverityHigh,
			TaskIDs:     []string{taskID},
			Message:     fmt.Sprintf("task %s depends on missing %s", taskID, strings.Join(missing, ", ")),
			TriggeredAt: now,
		})
	}
	return alerts
}

func cycleAlerts(g *core.TaskGraph, now time.Time) []Alert {
	var alerts []Alert
	for _, cycle := range g.Cycles() {
		members := cycle[:len(cycle)-1]
		alerts = append(alerts, Alert{
			ID:          "cycle-" + strings.Join(members, "-"),
			Condition:   ConditionDependencyCycle,
			Severity:    SeverityHigh,
			TaskIDs:     members,
			Message:     "dependency cycle " + strings.Join(cycle, " -> "),
			TriggeredAt: now,
		})
	}
	return alerts
}

// blockedAlerts fires for tasks that are blocked (by status or blocked_by)
// and have not been touched within the threshold.
func (ae *alertEngine) blockedAlerts(g *core.TaskGraph, now time.Time) []Alert {
	if ae.thresholds.BlockedHours <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.BlockedHours) * time.Hour
	var alerts []Alert
	for _, t := range g.Tasks() {
		if t.Status == models.StatusDone {
			continue
		}
		if t.Status != models.StatusBlocked && len(t.BlockedBy) == 0 {
			continue
		}
		if now.Sub(t.Updated) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "blocked-" + t.ID,
			Condition:   ConditionBlockedTooLong,
			Severity:    SeverityMedium,
			TaskIDs:     []string{t.ID},
			Message:     fmt.Sprintf("task %s has been blocked for more than %d hours", t.ID, ae.thresholds.BlockedHours),
			TriggeredAt: now,
		})
	}
	return alerts
}

func (ae *alertEngine) staleAlerts(g *core.TaskGraph, now time.Time) []Alert {
	if ae.thresholds.StaleDays <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.StaleDays) * 24 * time.Hour
	var alerts []Alert
	for _, t := range g.Tasks() {
		if t.Status != models.StatusInProgress || now.Sub(t.Updated) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "stale-" + t.ID,
			Condition:   ConditionStaleInProgress,
			Severity:    SeverityLow,
			TaskIDs:     []string{t.ID},
			Message:     fmt.Sprintf("task %s has been in progress with no update for more than %d days", t.ID, ae.thresholds.StaleDays),
			TriggeredAt: now,
		})
	}
	return alerts
}
