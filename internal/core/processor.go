package core

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/valter-silva-au/taskflow/internal/storage"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"go.uber.org/zap"
)

// projectDocs are read into every AnalysisContext when present.
var projectDocs = []string{"ROADMAP.md", "DECISIONS.md"}

// AnalysisContext is the cross-document state one processing call needs. It
// is built fresh per call and never cached.
type AnalysisContext struct {
	Tasks []*models.Task
	Docs  map[string]string
}

// ProcessOptions tunes a single Process call. Zero values fall back to the
// processor config.
type ProcessOptions struct {
	MinConfidence   int
	MaxRelated      int
	IncludeChecked  bool
	IncludeArchived bool
}

// ProcessResult is the outcome of analyzing one note.
type ProcessResult struct {
	Note       *models.ThoughtNote   `json:"note"`
	Candidates int                   `json:"candidates"`
	Filtered   int                   `json:"filtered"`
	Proposals  []models.ProposedTask `json:"proposals"`
}

// AcceptOptions controls how proposals become tasks.
type AcceptOptions struct {
	Project  string
	Owner    string
	Force    bool
	KeepNote bool
	Notes    string
}

// AcceptResult lists what AcceptProposals did.
type AcceptResult struct {
	Created []*models.Task        `json:"created"`
	Skipped []models.ProposedTask `json:"skipped,omitempty"`
	Entry   *models.ArchiveEntry  `json:"archive_entry,omitempty"`
}

// ThoughtProcessor runs the note pipeline: extract, analyze, title, relate,
// then optionally create tasks and archive the note.
type ThoughtProcessor interface {
	ListThoughts() ([]string, error)
	ListArchived() ([]string, error)
	ReadThought(name string) (*models.ThoughtNote, error)
	ReadArchivedThought(name string) (*models.ThoughtNote, error)
	Extract(name string) ([]models.TodoCandidate, error)
	Process(name string, opts ProcessOptions) (*ProcessResult, error)
	AcceptProposals(name string, proposals []models.ProposedTask, opts AcceptOptions) (*AcceptResult, error)
	ArchiveThought(name string, taskIDs []string, notes string) (*models.ArchiveEntry, error)
	ArchiveLog() ([]models.ArchiveEntry, error)
}

// ThoughtProcessorConfig holds defaults for processing.
type ThoughtProcessorConfig struct {
	DocsDir        string
	MinConfidence  int
	MaxRelated     int
	DefaultProject string
}

type thoughtProcessor struct {
	inbox  storage.ThoughtInbox
	tasks  TaskService
	text   storage.TextStore
	cfg    ThoughtProcessorConfig
	events EventLogger
	logger *zap.Logger
}

// NewThoughtProcessor creates a ThoughtProcessor. text is used to read
// project docs and may be nil.
func NewThoughtProcessor(inbox storage.ThoughtInbox, tasks TaskService, text storage.TextStore, cfg ThoughtProcessorConfig, events EventLogger, logger *zap.Logger) ThoughtProcessor {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = MinConfidence
	}
	if cfg.MaxRelated <= 0 {
		cfg.MaxRelated = DefaultMaxRelated
	}
	if events == nil {
		events = nopEventLogger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &thoughtProcessor{
		inbox:  inbox,
		tasks:  tasks,
		text:   text,
		cfg:    cfg,
		events: events,
		logger: logger.Named("thoughts"),
	}
}

func (p *thoughtProcessor) ListThoughts() ([]string, error) {
	return p.inbox.List()
}

func (p *thoughtProcessor) ListArchived() ([]string, error) {
	return p.inbox.ListArchived()
}

func (p *thoughtProcessor) ReadThought(name string) (*models.ThoughtNote, error) {
	return p.inbox.Read(name)
}

func (p *thoughtProcessor) ReadArchivedThought(name string) (*models.ThoughtNote, error) {
	return p.inbox.ReadArchived(name)
}

// Extract returns the raw candidates of an inbox note without analysis.
func (p *thoughtProcessor) Extract(name string) ([]models.TodoCandidate, error) {
	note, err := p.inbox.Read(name)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}
	return ExtractCandidates(note.Body), nil
}

// BuildAnalysisContext loads the active tasks (plus archived ones when
// includeArchived is set) and any project docs.
func (p *thoughtProcessor) BuildAnalysisContext(includeArchived bool) (*AnalysisContext, error) {
	actx := &AnalysisContext{Docs: map[string]string{}}

	res, err := p.tasks.LoadAllTasks()
	if err != nil {
		return nil, err
	}
	actx.Tasks = res.Tasks
	if includeArchived {
		archived, err := p.tasks.LoadArchivedTasks()
		if err != nil {
			return nil, err
		}
		actx.Tasks = append(actx.Tasks, archived.Tasks...)
	}

	if p.text == nil || p.cfg.DocsDir == "" {
		return actx, nil
	}
	for _, doc := range projectDocs {
		content, err := p.text.Read(path.Join(p.cfg.DocsDir, doc))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.logger.Debug("project doc unavailable", zap.String("doc", doc), zap.Error(err))
				continue
			}
			return nil, err
		}
		actx.Docs[doc] = content
	}
	return actx, nil
}

// Process analyzes an inbox note and returns proposals. It writes nothing.
func (p *thoughtProcessor) Process(name string, opts ProcessOptions) (*ProcessResult, error) {
	note, err := p.inbox.Read(name)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", name, err)
	}
	actx, err := p.BuildAnalysisContext(opts.IncludeArchived)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", name, err)
	}

	minConf := opts.MinConfidence
	if minConf <= 0 {
		minConf = p.cfg.MinConfidence
	}
	maxRelated := opts.MaxRelated
	if maxRelated <= 0 {
		maxRelated = p.cfg.MaxRelated
	}

	candidates := ExtractCandidates(note.Body)
	res := &ProcessResult{Note: note, Candidates: len(candidates)}
	for _, c := range candidates {
		proposal, ok := Propose(c, actx, minConf, maxRelated, opts.IncludeChecked)
		if !ok {
			res.Filtered++
			continue
		}
		res.Proposals = append(res.Proposals, proposal)
	}

	p.logger.Debug("note processed",
		zap.String("note", name),
		zap.Int("candidates", res.Candidates),
		zap.Int("proposals", len(res.Proposals)),
	)
	return res, nil
}

// Propose turns one candidate into a proposal. ok is false for checked
// items (unless includeChecked), low-confidence noise and empty titles.
func Propose(c models.TodoCandidate, actx *AnalysisContext, minConfidence, maxRelated int, includeChecked bool) (models.ProposedTask, bool) {
	if c.Checked && !includeChecked {
		return models.ProposedTask{}, false
	}
	analysis := AnalyzeIntent(c)
	if analysis.Confidence < minConfidence {
		return models.ProposedTask{}, false
	}
	title := GenerateTitle(c.Raw)
	if title == "" {
		return models.ProposedTask{}, false
	}
	proposal := models.ProposedTask{Candidate: c, Analysis: analysis, Title: title}
	if actx != nil {
		proposal.Related = FindRelated(title, actx.Tasks, maxRelated)
		proposal.References = FindDocReferences(title, actx.Docs)
	}
	return proposal, true
}

// AcceptProposals creates a task per proposal and archives the note with the
// created ids. Proposals with related tasks are skipped unless opts.Force.
// When a creation fails the tasks created so far are returned with the
// error and the note stays in the inbox.
func (p *thoughtProcessor) AcceptProposals(name string, proposals []models.ProposedTask, opts AcceptOptions) (*AcceptResult, error) {
	project := opts.Project
	if project == "" {
		project = p.cfg.DefaultProject
	}
	if strings.TrimSpace(project) == "" {
		return nil, &models.ValidationError{Field: "project", Reason: "must not be empty"}
	}

	res := &AcceptResult{}
	for _, prop := range proposals {
		if len(prop.Related) > 0 && !opts.Force {
			res.Skipped = append(res.Skipped, prop)
			continue
		}
		task, err := p.tasks.CreateTask(taskInputFor(name, prop, project, opts.Owner))
		if err != nil {
			return res, fmt.Errorf("accepting %q from %s: %w", prop.Title, name, err)
		}
		res.Created = append(res.Created, task)
	}

	ids := make([]string, len(res.Created))
	for i, t := range res.Created {
		ids[i] = t.ID
	}
	p.emit(EventThoughtExtracted, map[string]any{
		"note":      name,
		"proposals": len(proposals),
		"created":   len(res.Created),
		"task_ids":  ids,
	})

	if opts.KeepNote {
		return res, nil
	}
	entry, err := p.ArchiveThought(name, ids, opts.Notes)
	if err != nil {
		return res, err
	}
	res.Entry = entry
	return res, nil
}

func taskInputFor(note string, prop models.ProposedTask, project, owner string) models.TaskInput {
	var desc strings.Builder
	desc.WriteString(prop.Analysis.ExplicitStatement)
	desc.WriteString("\n")
	if r := prop.Analysis.ShadowRationale; r != nil {
		fmt.Fprintf(&desc, "\nWhy: %s\n", *r)
	}
	if n := prop.Analysis.PracticalNote; n != nil {
		fmt.Fprintf(&desc, "\n%s\n", *n)
	}
	fmt.Fprintf(&desc, "\nSource: %s line %d (confidence %d)\n", note, prop.Candidate.LineNumber, prop.Analysis.Confidence)

	return models.TaskInput{
		Title:       prop.Title,
		Project:     project,
		Priority:    prop.Analysis.Priority,
		Owner:       owner,
		Tags:        dedupeTags(prop.Analysis.Tags),
		Description: desc.String(),
	}
}

func dedupeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (p *thoughtProcessor) ArchiveThought(name string, taskIDs []string, notes string) (*models.ArchiveEntry, error) {
	entry, err := p.inbox.Archive(name, taskIDs, notes)
	if err != nil {
		return nil, fmt.Errorf("archiving thought %s: %w", name, err)
	}
	p.logger.Info("thought archived", zap.String("note", name), zap.Strings("task_ids", taskIDs))
	p.emit(EventThoughtArchived, map[string]any{
		"note":     name,
		"archived": entry.Filename,
		"lines":    entry.LineCount,
		"task_ids": taskIDs,
	})
	return entry, nil
}

func (p *thoughtProcessor) ArchiveLog() ([]models.ArchiveEntry, error) {
	return p.inbox.Log().Entries()
}

func (p *thoughtProcessor) emit(eventType string, data map[string]any) {
	if err := p.events.LogEvent(eventType, data); err != nil {
		p.logger.Warn("recording event failed", zap.String("type", eventType), zap.Error(err))
	}
}
