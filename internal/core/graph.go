package core

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/valter-silva-au/taskflow/internal/storage"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

// NextTaskFilter narrows the actionable set. Empty fields match everything.
type NextTaskFilter struct {
	Project string
	Owner   string
	Tags    []string
}

// TaskGraph is an in-memory view over a set of active tasks and the
// dependency edges between them. It is rebuilt per call from the store and
// never mutated.
type TaskGraph struct {
	tasks []*models.Task
	byID  map[string]*models.Task
}

// NewTaskGraph builds a graph over tasks. Tasks are kept in id order so every
// query is deterministic for identical input sets.
func NewTaskGraph(tasks []*models.Task) *TaskGraph {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b *models.Task) int { return storage.CompareTaskIDs(a.ID, b.ID) })

	byID := make(map[string]*models.Task, len(sorted))
	for _, t := range sorted {
		byID[t.ID] = t
	}
	return &TaskGraph{tasks: sorted, byID: byID}
}

// Tasks returns every task in the graph in id order.
func (g *TaskGraph) Tasks() []*models.Task {
	return g.tasks
}

// Get returns the task with the given id.
func (g *TaskGraph) Get(taskID string) (*models.Task, bool) {
	t, ok := g.byID[taskID]
	return t, ok
}

// dependencyDone treats a dependency missing from the graph as not done.
func (g *TaskGraph) dependencyDone(depID string) bool {
	dep, ok := g.byID[depID]
	return ok && dep.Status == models.StatusDone
}

// IsActionable reports whether t is a todo with no manual block and every
// dependency done.
func (g *TaskGraph) IsActionable(t *models.Task) bool {
	if t.Status != models.StatusTodo {
		return false
	}
	if len(t.BlockedBy) > 0 {
		return false
	}
	for _, dep := range t.DependsOn {
		if !g.dependencyDone(dep) {
			return false
		}
	}
	return true
}

func (f NextTaskFilter) matches(t *models.Task) bool {
	if f.Project != "" && !strings.EqualFold(f.Project, t.Project) {
		return false
	}
	if f.Owner != "" && f.Owner != t.Owner {
		return false
	}
	for _, tag := range f.Tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	return true
}

// Actionable returns every actionable task matching filter, ordered by
// priority (P0 first), then created (oldest first), then id.
func (g *TaskGraph) Actionable(filter NextTaskFilter) []*models.Task {
	var out []*models.Task
	for _, t := range g.tasks {
		if filter.matches(t) && g.IsActionable(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		return storage.CompareTaskIDs(a.ID, b.ID) < 0
	})
	return out
}

// NextTask returns the first actionable task. ok is false when nothing is
// actionable, which is a valid empty result.
func (g *TaskGraph) NextTask(filter NextTaskFilter) (*models.Task, bool) {
	actionable := g.Actionable(filter)
	if len(actionable) == 0 {
		return nil, false
	}
	return actionable[0], true
}

// DanglingDependencies maps task id to the depends_on ids that are not in the
// graph. Dangling ids are reported, never dropped.
func (g *TaskGraph) DanglingDependencies() map[string][]string {
	out := make(map[string][]string)
	for _, t := range g.tasks {
		for _, dep := range t.DependsOn {
			if _, ok := g.byID[dep]; !ok {
				out[t.ID] = append(out[t.ID], dep)
			}
		}
	}
	return out
}

// Dependents returns the ids of tasks that depend on taskID, in id order.
func (g *TaskGraph) Dependents(taskID string) []string {
	var out []string
	for _, t := range g.tasks {
		if slices.Contains(t.DependsOn, taskID) {
			out = append(out, t.ID)
		}
	}
	return out
}

// BlockingReasons explains why a task is not actionable. It returns nil for
// actionable tasks.
func (g *TaskGraph) BlockingReasons(taskID string) []string {
	t, ok := g.byID[taskID]
	if !ok {
		return []string{fmt.Sprintf("task %s is not in the active set", taskID)}
	}
	var reasons []string
	if t.Status != models.StatusTodo {
		reasons = append(reasons, fmt.Sprintf("status is %s", t.Status))
	}
	for _, b := range t.BlockedBy {
		reasons = append(reasons, fmt.Sprintf("blocked by %s", b))
	}
	for _, dep := range t.DependsOn {
		d, ok := g.byID[dep]
		switch {
		case !ok:
			reasons = append(reasons, fmt.Sprintf("depends on %s, which is missing", dep))
		case d.Status != models.StatusDone:
			reasons = append(reasons, fmt.Sprintf("depends on %s (%s)", dep, d.Status))
		}
	}
	return reasons
}

// Cycles returns each dependency cycle once, as the ids along the cycle with
// the first id repeated at the end. Traversal is in id order.
func (g *TaskGraph) Cycles() [][]string {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(g.tasks))
	var stack []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		state[id] = visiting
		stack = append(stack, id)

		deps := slices.Clone(g.byID[id].DependsOn)
		slices.SortFunc(deps, storage.CompareTaskIDs)
		for _, dep := range deps {
			if _, ok := g.byID[dep]; !ok {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case visiting:
				start := slices.Index(stack, dep)
				cycle := append(slices.Clone(stack[start:]), dep)
				cycles = append(cycles, cycle)
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = visited
	}

	for _, t := range g.tasks {
		if state[t.ID] == unvisited {
			visit(t.ID)
		}
	}
	return cycles
}
