// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the task graph and the thought pipeline as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/observability"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

// Server wraps the taskflow services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	tasks       core.TaskService
	thoughts    core.ThoughtProcessor
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be nil
// when the event log is disabled.
func NewServer(tasks core.TaskService, thoughts core.ThoughtProcessor, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		tasks:       tasks,
		thoughts:    thoughts,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "tflow", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskOutput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Project     string   `json:"project"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Owner       string   `json:"owner"`
	DependsOn   []string `json:"depends_on,omitempty"`
	BlockedBy   []string `json:"blocked_by,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Estimate    string   `json:"estimate,omitempty"`
	Description string   `json:"description,omitempty"`
	Created     string   `json:"created"`
	Updated     string   `json:"updated"`
}

type createTaskInput struct {
	Title       string   `json:"title" jsonschema:"the task title"`
	Project     string   `json:"project" jsonschema:"project prefix, e.g. APP"`
	Priority    string   `json:"priority,omitempty" jsonschema:"P0 to P3, defaults to P2"`
	Owner       string   `json:"owner,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty" jsonschema:"ids of tasks this one waits for"`
	Tags        []string `json:"tags,omitempty"`
	Estimate    string   `json:"estimate,omitempty"`
	Description string   `json:"description,omitempty"`
}

type updateTaskInput struct {
	TaskID         string   `json:"task_id" jsonschema:"the task id, e.g. APP-001"`
	Title          string   `json:"title,omitempty"`
	Status         string   `json:"status,omitempty" jsonschema:"todo, in_progress, blocked, done or another lowercase status"`
	Priority       string   `json:"priority,omitempty"`
	Owner          string   `json:"owner,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty"`
	BlockedBy      []string `json:"blocked_by,omitempty"`
	ClearBlockedBy bool     `json:"clear_blocked_by,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Estimate       string   `json:"estimate,omitempty"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"the task id, e.g. APP-001"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type listTasksInput struct {
	Status   string `json:"status,omitempty" jsonschema:"only tasks with this status"`
	Project  string `json:"project,omitempty"`
	Archived bool   `json:"archived,omitempty" jsonschema:"list archived tasks instead of active ones"`
}

type listTasksOutput struct {
	Tasks     []taskOutput `json:"tasks"`
	Count     int          `json:"count"`
	Malformed []string     `json:"malformed,omitempty"`
}

type nextTaskInput struct {
	Project string   `json:"project,omitempty"`
	Owner   string   `json:"owner,omitempty"`
	Tags    []string `json:"tags,omitempty" jsonschema:"the task must carry every tag"`
}

type nextTaskOutput struct {
	Found bool        `json:"found"`
	Task  *taskOutput `json:"task,omitempty"`
}

type extractThoughtsInput struct {
	Note            string `json:"note" jsonschema:"inbox note file name"`
	MinConfidence   int    `json:"min_confidence,omitempty"`
	IncludeChecked  bool   `json:"include_checked,omitempty"`
	IncludeArchived bool   `json:"include_archived,omitempty" jsonschema:"also compare against archived tasks"`
	Accept          bool   `json:"accept,omitempty" jsonschema:"create tasks and archive the note"`
	Force           bool   `json:"force,omitempty" jsonschema:"with accept, also create proposals that have related tasks"`
	Project         string `json:"project,omitempty" jsonschema:"with accept, project for the created tasks"`
	Owner           string `json:"owner,omitempty"`
}

type relatedOutput struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	MatchRatio float64 `json:"match_ratio"`
}

type proposalOutput struct {
	Title           string          `json:"title"`
	Line            int             `json:"line"`
	Section         string          `json:"section,omitempty"`
	Priority        string          `json:"priority"`
	Confidence      int             `json:"confidence"`
	Tags            []string        `json:"tags,omitempty"`
	ShadowRationale string          `json:"shadow_rationale,omitempty"`
	PracticalNote   string          `json:"practical_note,omitempty"`
	Related         []relatedOutput `json:"related,omitempty"`
	References      []string        `json:"references,omitempty"`
}

type extractThoughtsOutput struct {
	Note       string           `json:"note"`
	Candidates int              `json:"candidates"`
	Filtered   int              `json:"filtered"`
	Proposals  []proposalOutput `json:"proposals"`
	Created    []string         `json:"created,omitempty"`
	Skipped    []string         `json:"skipped,omitempty"`
	ArchivedAs string           `json:"archived_as,omitempty"`
}

type archiveThoughtInput struct {
	Note    string   `json:"note"`
	TaskIDs []string `json:"task_ids,omitempty" jsonschema:"ids of tasks created from the note"`
	Notes   string   `json:"notes,omitempty"`
}

type archiveThoughtOutput struct {
	Filename   string   `json:"filename"`
	ArchivedAt string   `json:"archived_at"`
	LineCount  int      `json:"line_count"`
	TaskIDs    []string `json:"task_ids"`
}

type listThoughtsInput struct{}

type listThoughtsOutput struct {
	Notes []string `json:"notes"`
	Count int      `json:"count"`
}

type readThoughtInput struct {
	Note     string `json:"note"`
	Archived bool   `json:"archived,omitempty"`
}

type readThoughtOutput struct {
	Name      string         `json:"name"`
	Preamble  map[string]any `json:"preamble,omitempty"`
	Body      string         `json:"body"`
	LineCount int            `json:"line_count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksArchived     int            `json:"tasks_archived"`
	TasksByProject    map[string]int `json:"tasks_by_project"`
	StatusChanges     map[string]int `json:"status_changes"`
	TasksFromThoughts int            `json:"tasks_from_thoughts"`
	ThoughtsArchived  int            `json:"thoughts_archived"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string   `json:"id"`
	Condition   string   `json:"condition"`
	Severity    string   `json:"severity"`
	TaskIDs     []string `json:"task_ids"`
	Message     string   `json:"message"`
	TriggeredAt string   `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a task. The id is allocated from the project prefix. Dependencies must name existing tasks.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Update fields of a task. Omitted fields are left unchanged. id, project and created cannot change.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_task",
		Description: "Move a task file to the archive. Its id is never reused.",
	}, s.handleArchiveTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by id, including its description.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List active or archived tasks with optional status and project filters. Unparseable task files are reported separately.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_next_task",
		Description: "Return the highest priority todo whose dependencies are all done and which is not blocked.",
	}, s.handleGetNextTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "extract_thoughts",
		Description: "Analyze an inbox note and propose tasks. With accept, create the tasks and archive the note.",
	}, s.handleExtractThoughts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_thought",
		Description: "Move an inbox note to the thought archive and record it in the archive log.",
	}, s.handleArchiveThought)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_thoughts",
		Description: "List note files waiting in the inbox.",
	}, s.handleListThoughts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_archived_thoughts",
		Description: "List note files in the thought archive.",
	}, s.handleListArchivedThoughts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "read_thought",
		Description: "Read an inbox or archived note, with its front matter split out.",
	}, s.handleReadThought)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: tasks created, completed, archived and extracted from thoughts.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate the task graph for dangling dependencies, cycles, long blocked tasks and stale work.",
	}, s.handleGetAlerts)
}

// --- Task handlers ---

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	task, err := s.tasks.CreateTask(models.TaskInput{
		Title:       input.Title,
		Project:     input.Project,
		Priority:    models.Priority(input.Priority),
		Owner:       input.Owner,
		DependsOn:   input.DependsOn,
		Tags:        input.Tags,
		Estimate:    input.Estimate,
		Description: input.Description,
	})
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation", "task_id is required"), taskOutput{}, nil
	}

	upd := models.TaskUpdate{
		DependsOn:      input.DependsOn,
		BlockedBy:      input.BlockedBy,
		ClearBlockedBy: input.ClearBlockedBy,
		Tags:           input.Tags,
	}
	if input.Title != "" {
		upd.Title = &input.Title
	}
	if input.Status != "" {
		status := models.TaskStatus(input.Status)
		upd.Status = &status
	}
	if input.Priority != "" {
		prio := models.Priority(input.Priority)
		upd.Priority = &prio
	}
	if input.Owner != "" {
		upd.Owner = &input.Owner
	}
	if input.Estimate != "" {
		upd.Estimate = &input.Estimate
	}

	task, err := s.tasks.UpdateTask(input.TaskID, upd)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleArchiveTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation", "task_id is required"), messageOutput{}, nil
	}
	if err := s.tasks.ArchiveTask(input.TaskID); err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s archived", input.TaskID)}, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation", "task_id is required"), taskOutput{}, nil
	}
	task, err := s.tasks.GetTask(input.TaskID)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	load := s.tasks.LoadAllTasks
	if input.Archived {
		load = s.tasks.LoadArchivedTasks
	}
	res, err := load()
	if err != nil {
		return toolError(err), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range core.NewTaskGraph(res.Tasks).Tasks() {
		if input.Status != "" && string(t.Status) != input.Status {
			continue
		}
		if input.Project != "" && !strings.EqualFold(input.Project, t.Project) {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)
	for _, m := range res.Malformed {
		out.Malformed = append(out.Malformed, m.Error())
	}
	return nil, out, nil
}

func (s *Server) handleGetNextTask(_ context.Context, _ *gomcp.CallToolRequest, input nextTaskInput) (*gomcp.CallToolResult, nextTaskOutput, error) {
	task, ok, err := s.tasks.GetNextTask(core.NextTaskFilter{
		Project: input.Project,
		Owner:   input.Owner,
		Tags:    input.Tags,
	})
	if err != nil {
		return toolError(err), nextTaskOutput{}, nil
	}
	if !ok {
		return nil, nextTaskOutput{}, nil
	}
	out := taskToOutput(task)
	return nil, nextTaskOutput{Found: true, Task: &out}, nil
}

// --- Thought handlers ---

func (s *Server) handleExtractThoughts(_ context.Context, _ *gomcp.CallToolRequest, input extractThoughtsInput) (*gomcp.CallToolResult, extractThoughtsOutput, error) {
	if input.Note == "" {
		return errorResult("validation", "note is required"), extractThoughtsOutput{}, nil
	}

	res, err := s.thoughts.Process(input.Note, core.ProcessOptions{
		MinConfidence:   input.MinConfidence,
		IncludeChecked:  input.IncludeChecked,
		IncludeArchived: input.IncludeArchived,
	})
	if err != nil {
		return toolError(err), extractThoughtsOutput{}, nil
	}

	out := extractThoughtsOutput{
		Note:       input.Note,
		Candidates: res.Candidates,
		Filtered:   res.Filtered,
		Proposals:  make([]proposalOutput, len(res.Proposals)),
	}
	for i, p := range res.Proposals {
		out.Proposals[i] = proposalToOutput(p)
	}
	if !input.Accept {
		return nil, out, nil
	}

	accepted, err := s.thoughts.AcceptProposals(input.Note, res.Proposals, core.AcceptOptions{
		Project: input.Project,
		Owner:   input.Owner,
		Force:   input.Force,
	})
	if err != nil {
		return partialAcceptError(err, accepted), extractThoughtsOutput{}, nil
	}
	for _, t := range accepted.Created {
		out.Created = append(out.Created, t.ID)
	}
	for _, p := range accepted.Skipped {
		out.Skipped = append(out.Skipped, p.Title)
	}
	if accepted.Entry != nil {
		out.ArchivedAs = accepted.Entry.Filename
	}
	return nil, out, nil
}

func (s *Server) handleArchiveThought(_ context.Context, _ *gomcp.CallToolRequest, input archiveThoughtInput) (*gomcp.CallToolResult, archiveThoughtOutput, error) {
	if input.Note == "" {
		return errorResult("validation", "note is required"), archiveThoughtOutput{}, nil
	}
	entry, err := s.thoughts.ArchiveThought(input.Note, input.TaskIDs, input.Notes)
	if err != nil {
		return toolError(err), archiveThoughtOutput{}, nil
	}
	return nil, archiveThoughtOutput{
		Filename:   entry.Filename,
		ArchivedAt: entry.ArchivedAt.Format(time.RFC3339),
		LineCount:  entry.LineCount,
		TaskIDs:    nonNil(entry.TaskIDs),
	}, nil
}

func (s *Server) handleListThoughts(_ context.Context, _ *gomcp.CallToolRequest, _ listThoughtsInput) (*gomcp.CallToolResult, listThoughtsOutput, error) {
	return listNotes(s.thoughts.ListThoughts)
}

func (s *Server) handleListArchivedThoughts(_ context.Context, _ *gomcp.CallToolRequest, _ listThoughtsInput) (*gomcp.CallToolResult, listThoughtsOutput, error) {
	return listNotes(s.thoughts.ListArchived)
}

func listNotes(list func() ([]string, error)) (*gomcp.CallToolResult, listThoughtsOutput, error) {
	names, err := list()
	if err != nil {
		return toolError(err), listThoughtsOutput{}, nil
	}
	names = nonNil(names)
	return nil, listThoughtsOutput{Notes: names, Count: len(names)}, nil
}

func (s *Server) handleReadThought(_ context.Context, _ *gomcp.CallToolRequest, input readThoughtInput) (*gomcp.CallToolResult, readThoughtOutput, error) {
	if input.Note == "" {
		return errorResult("validation", "note is required"), readThoughtOutput{}, nil
	}
	read := s.thoughts.ReadThought
	if input.Archived {
		read = s.thoughts.ReadArchivedThought
	}
	note, err := read(input.Note)
	if err != nil {
		return toolError(err), readThoughtOutput{}, nil
	}
	return nil, readThoughtOutput{
		Name:      note.Name,
		Preamble:  note.Preamble,
		Body:      note.Body,
		LineCount: note.LineCount,
	}, nil
}

// --- Observability handlers ---

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("internal", "metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := observability.ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult("validation", fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return toolError(err), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCreated:      metrics.TasksCreated,
		TasksCompleted:    metrics.TasksCompleted,
		TasksArchived:     metrics.TasksArchived,
		TasksByProject:    metrics.TasksByProject,
		StatusChanges:     metrics.StatusChanges,
		TasksFromThoughts: metrics.TasksFromThoughts,
		ThoughtsArchived:  metrics.ThoughtsArchived,
		EventCount:        metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("internal", "alert engine not available"), getAlertsOutput{}, nil
	}
	res, err := s.tasks.LoadAllTasks()
	if err != nil {
		return toolError(err), getAlertsOutput{}, nil
	}

	alerts := s.alertEngine.Evaluate(res.Tasks)
	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			TaskIDs:     a.TaskIDs,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		ID:          t.ID,
		Title:       t.Title,
		Project:     t.Project,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Owner:       t.Owner,
		DependsOn:   t.DependsOn,
		BlockedBy:   t.BlockedBy,
		Tags:        t.Tags,
		Estimate:    t.Estimate,
		Description: t.Description,
		Created:     t.Created.Format(time.RFC3339),
		Updated:     t.Updated.Format(time.RFC3339),
	}
}

func proposalToOutput(p models.ProposedTask) proposalOutput {
	out := proposalOutput{
		Title:      p.Title,
		Line:       p.Candidate.LineNumber,
		Section:    p.Candidate.Section,
		Priority:   string(p.Analysis.Priority),
		Confidence: p.Analysis.Confidence,
		Tags:       p.Analysis.Tags,
	}
	if r := p.Analysis.ShadowRationale; r != nil {
		out.ShadowRationale = *r
	}
	if n := p.Analysis.PracticalNote; n != nil {
		out.PracticalNote = *n
	}
	for _, r := range p.Related {
		out.Related = append(out.Related, relatedOutput{ID: r.ID, Title: r.Title, MatchRatio: r.MatchRatio})
	}
	for _, ref := range p.References {
		out.References = append(out.References, ref.Doc+": "+ref.Heading)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TasksByProject: make(map[string]int),
		StatusChanges:  make(map[string]int),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// toolError reports err as a tool failure tagged with its error kind.
// partialAcceptError reports an accept failure along with the tasks already
// created before it, which stay in the store.
func partialAcceptError(err error, accepted *core.AcceptResult) *gomcp.CallToolResult {
	if accepted == nil || len(accepted.Created) == 0 {
		return toolError(err)
	}
	ids := make([]string, len(accepted.Created))
	for i, t := range accepted.Created {
		ids[i] = t.ID
	}
	return errorResult(models.ErrorKind(err), fmt.Sprintf("%v (already created: %s)", err, strings.Join(ids, ", ")))
}

func toolError(err error) *gomcp.CallToolResult {
	return errorResult(models.ErrorKind(err), err.Error())
}

func errorResult(kind, msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: kind + ": " + msg}},
		IsError: true,
	}
}
