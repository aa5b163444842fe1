package storage

import (
	"cmp"
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"go.uber.org/zap"
)

const taskFileExt = ".md"

var (
	validPrefixPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)
	taskIDPattern      = regexp.MustCompile(`^([A-Z][A-Z0-9]{0,9})-(\d+)$`)
	statusPattern      = regexp.MustCompile(`^[a-z][a-z_]*$`)
)

// LoadResult holds the tasks that parsed plus one error per file that did
// not. A malformed file never hides the rest of the store.
type LoadResult struct {
	Tasks     []*models.Task
	Malformed []*models.MalformedRecordError
}

// TaskStore defines CRUD over task records plus ID allocation.
type TaskStore interface {
	CreateTask(in models.TaskInput) (*models.Task, error)
	UpdateTask(taskID string, upd models.TaskUpdate) (*models.Task, error)
	ArchiveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	LoadAllTasks() (*LoadResult, error)
	LoadArchivedTasks() (*LoadResult, error)
	NextID(project string) (string, error)
}

// TaskStoreConfig locates task records inside the TextStore.
type TaskStoreConfig struct {
	Dir          string
	ArchiveDir   string
	PadWidth     int
	DefaultOwner string
}

type fileTaskStore struct {
	text     TextStore
	cfg      TaskStoreConfig
	lock     WriteLock
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewTaskStore creates a TaskStore that keeps one markdown file per task
// under cfg.Dir and moves archived tasks to cfg.ArchiveDir.
func NewTaskStore(text TextStore, cfg TaskStoreConfig, lock WriteLock, logger *zap.Logger) TaskStore {
	if cfg.PadWidth <= 0 {
		cfg.PadWidth = 3
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = models.DefaultOwner
	}
	if lock == nil {
		lock = NewNoopWriteLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fileTaskStore{
		text:     text,
		cfg:      cfg,
		lock:     lock,
		logger:   logger,
		validate: newTaskValidator(),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func newTaskValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("taskid", func(fl validator.FieldLevel) bool {
		return taskIDPattern.MatchString(fl.Field().String())
	})
	return v
}

func (s *fileTaskStore) activePath(taskID string) string {
	return path.Join(s.cfg.Dir, taskID+taskFileExt)
}

func (s *fileTaskStore) archivePath(taskID string) string {
	return path.Join(s.cfg.ArchiveDir, taskID+taskFileExt)
}

// NormalizeProject uppercases and validates a project prefix.
func NormalizeProject(project string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(project))
	if p == "" {
		return "", &models.ValidationError{Field: "project", Reason: "must not be empty"}
	}
	if !validPrefixPattern.MatchString(p) {
		return "", &models.ValidationError{Field: "project", Reason: fmt.Sprintf("%q must match [A-Z][A-Z0-9]{0,9}", p)}
	}
	return p, nil
}

// ParseTaskID splits an id into its prefix and sequence number.
func ParseTaskID(taskID string) (prefix string, seq int, ok bool) {
	m := taskIDPattern.FindStringSubmatch(taskID)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// CompareTaskIDs orders ids by prefix, then numerically by sequence, so
// APP-999 sorts before APP-1000. Ids that do not parse fall back to a plain
// string comparison after all well-formed ids.
func CompareTaskIDs(a, b string) int {
	pa, sa, oka := ParseTaskID(a)
	pb, sb, okb := ParseTaskID(b)
	switch {
	case oka && okb:
		if c := strings.Compare(pa, pb); c != 0 {
			return c
		}
		return cmp.Compare(sa, sb)
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

// knownIDs lists every id present as a file, active or archived. Malformed
// files still retire their id.
func (s *fileTaskStore) knownIDs() ([]string, error) {
	var ids []string
	for _, dir := range []string{s.cfg.Dir, s.cfg.ArchiveDir} {
		names, err := s.text.List(dir, taskFileExt)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			ids = append(ids, strings.TrimSuffix(baseName(name), taskFileExt))
		}
	}
	return ids, nil
}

// NextID returns max+1 over all ids ever issued for project. Callers that
// then write the record must hold the write lock across both steps.
func (s *fileTaskStore) NextID(project string) (string, error) {
	prefix, err := NormalizeProject(project)
	if err != nil {
		return "", err
	}
	ids, err := s.knownIDs()
	if err != nil {
		return "", fmt.Errorf("allocating id for %s: %w", prefix, err)
	}
	maxSeq := 0
	for _, id := range ids {
		p, n, ok := ParseTaskID(id)
		if ok && p == prefix && n > maxSeq {
			maxSeq = n
		}
	}
	return fmt.Sprintf("%s-%0*d", prefix, s.cfg.PadWidth, maxSeq+1), nil
}

func (s *fileTaskStore) CreateTask(in models.TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	project, err := NormalizeProject(in.Project)
	if err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = models.P2
	}
	if !priority.Valid() {
		return nil, &models.ValidationError{Field: "priority", Reason: fmt.Sprintf("%q must be one of P0, P1, P2, P3", priority)}
	}
	owner := strings.TrimSpace(in.Owner)
	if owner == "" {
		owner = s.cfg.DefaultOwner
	}

	unlock, err := s.lock.Lock()
	if err != nil {
		return nil, &models.StorageIOError{Op: "lock", Path: s.cfg.Dir, Err: err}
	}
	defer func() { _ = unlock() }()

	id, err := s.NextID(project)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(id, in.DependsOn, in.BlockedBy); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          id,
		Title:       title,
		Project:     project,
		Priority:    priority,
		Status:      models.StatusTodo,
		Owner:       owner,
		DependsOn:   dedupe(in.DependsOn),
		BlockedBy:   dedupe(in.BlockedBy),
		Tags:        dedupe(in.Tags),
		Created:     now,
		Updated:     now,
		Estimate:    strings.TrimSpace(in.Estimate),
		Description: in.Description,
		Subtasks:    in.Subtasks,
	}
	if err := s.write(task); err != nil {
		return nil, fmt.Errorf("creating task %s: %w", id, err)
	}
	s.logger.Debug("task created", zap.String("task_id", id), zap.String("project", project))
	return task, nil
}

func (s *fileTaskStore) UpdateTask(taskID string, upd models.TaskUpdate) (*models.Task, error) {
	unlock, err := s.lock.Lock()
	if err != nil {
		return nil, &models.StorageIOError{Op: "lock", Path: s.cfg.Dir, Err: err}
	}
	defer func() { _ = unlock() }()

	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	if upd.ID != nil && *upd.ID != task.ID {
		return nil, &models.ValidationError{Field: "id", Reason: "is immutable"}
	}
	if upd.Project != nil && !strings.EqualFold(strings.TrimSpace(*upd.Project), task.Project) {
		return nil, &models.ValidationError{Field: "project", Reason: "is immutable"}
	}
	if upd.Created != nil && !upd.Created.Equal(task.Created) {
		return nil, &models.ValidationError{Field: "created", Reason: "is immutable"}
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, &models.ValidationError{Field: "title", Reason: "must not be empty"}
		}
		task.Title = title
	}
	if upd.Priority != nil {
		if !upd.Priority.Valid() {
			return nil, &models.ValidationError{Field: "priority", Reason: fmt.Sprintf("%q must be one of P0, P1, P2, P3", *upd.Priority)}
		}
		task.Priority = *upd.Priority
	}
	if upd.Status != nil {
		if !statusPattern.MatchString(string(*upd.Status)) {
			return nil, &models.ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not a valid status", *upd.Status)}
		}
		task.Status = *upd.Status
	}
	if upd.Owner != nil {
		task.Owner = strings.TrimSpace(*upd.Owner)
		if task.Owner == "" {
			task.Owner = s.cfg.DefaultOwner
		}
	}
	if upd.DependsOn != nil {
		task.DependsOn = dedupe(upd.DependsOn)
	}
	if upd.BlockedBy != nil {
		task.BlockedBy = dedupe(upd.BlockedBy)
	}
	if upd.ClearBlockedBy {
		task.BlockedBy = nil
	}
	if upd.Tags != nil {
		task.Tags = dedupe(upd.Tags)
	}
	if upd.Estimate != nil {
		task.Estimate = strings.TrimSpace(*upd.Estimate)
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Subtasks != nil {
		task.Subtasks = upd.Subtasks
	}

	if upd.DependsOn != nil || upd.BlockedBy != nil {
		if err := s.checkReferences(task.ID, upd.DependsOn, upd.BlockedBy); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if !now.After(task.Updated) {
		now = task.Updated.Add(time.Second)
	}
	task.Updated = now

	if err := s.write(task); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *fileTaskStore) ArchiveTask(taskID string) error {
	unlock, err := s.lock.Lock()
	if err != nil {
		return &models.StorageIOError{Op: "lock", Path: s.cfg.Dir, Err: err}
	}
	defer func() { _ = unlock() }()

	ok, err := s.text.Exists(s.activePath(taskID))
	if err != nil {
		return err
	}
	if !ok {
		return &models.NotFoundError{Kind: "task", ID: taskID}
	}
	if err := s.text.Move(s.activePath(taskID), s.archivePath(taskID)); err != nil {
		return fmt.Errorf("archiving task %s: %w", taskID, err)
	}
	return nil
}

func (s *fileTaskStore) GetTask(taskID string) (*models.Task, error) {
	if _, _, ok := ParseTaskID(taskID); !ok {
		return nil, &models.NotFoundError{Kind: "task", ID: taskID}
	}
	return s.readTask(s.activePath(taskID))
}

func (s *fileTaskStore) readTask(name string) (*models.Task, error) {
	doc, err := s.text.Read(name)
	if err != nil {
		if isNotExist(err) {
			return nil, &models.NotFoundError{Kind: "task", ID: strings.TrimSuffix(baseName(name), taskFileExt)}
		}
		return nil, err
	}
	task, err := DecodeTask(doc)
	if err != nil {
		return nil, &models.MalformedRecordError{Path: name, Err: err}
	}
	if want := strings.TrimSuffix(baseName(name), taskFileExt); task.ID != want {
		return nil, &models.MalformedRecordError{Path: name, Err: fmt.Errorf("id %q does not match file name", task.ID)}
	}
	if err := s.validate.Struct(task); err != nil {
		return nil, &models.MalformedRecordError{Path: name, Err: err}
	}
	return task, nil
}

func (s *fileTaskStore) LoadAllTasks() (*LoadResult, error) {
	return s.loadDir(s.cfg.Dir)
}

func (s *fileTaskStore) LoadArchivedTasks() (*LoadResult, error) {
	return s.loadDir(s.cfg.ArchiveDir)
}

func (s *fileTaskStore) loadDir(dir string) (*LoadResult, error) {
	names, err := s.text.List(dir, taskFileExt)
	if err != nil {
		return nil, fmt.Errorf("loading tasks from %s: %w", dir, err)
	}
	res := &LoadResult{}
	for _, name := range names {
		task, err := s.readTask(name)
		if err != nil {
			var mre *models.MalformedRecordError
			if errors.As(err, &mre) {
				s.logger.Warn("skipping malformed task record", zap.String("path", name), zap.Error(mre.Err))
				res.Malformed = append(res.Malformed, mre)
				continue
			}
			res.Malformed = append(res.Malformed, &models.MalformedRecordError{Path: name, Err: err})
			continue
		}
		res.Tasks = append(res.Tasks, task)
	}
	slices.SortStableFunc(res.Tasks, func(a, b *models.Task) int { return CompareTaskIDs(a.ID, b.ID) })
	return res, nil
}

// checkReferences rejects self references and references to ids that were
// never issued. Ids known only from the archive are accepted.
func (s *fileTaskStore) checkReferences(self string, dependsOn, blockedBy []string) error {
	if len(dependsOn) == 0 && len(blockedBy) == 0 {
		return nil
	}
	ids, err := s.knownIDs()
	if err != nil {
		return err
	}
	for _, ref := range dependsOn {
		if ref == self {
			return &models.ValidationError{Field: "depends_on", Reason: "must not reference the task itself"}
		}
		if !slices.Contains(ids, ref) {
			return &models.ValidationError{Field: "depends_on", Reason: fmt.Sprintf("references unknown task %s", ref)}
		}
	}
	for _, ref := range blockedBy {
		if ref == self {
			return &models.ValidationError{Field: "blocked_by", Reason: "must not reference the task itself"}
		}
	}
	return nil
}

func (s *fileTaskStore) write(task *models.Task) error {
	if err := s.validate.Struct(task); err != nil {
		return &models.ValidationError{Reason: err.Error()}
	}
	doc, err := EncodeTask(task)
	if err != nil {
		return err
	}
	return s.text.Write(s.activePath(task.ID), doc)
}

func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
