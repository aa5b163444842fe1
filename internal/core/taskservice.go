package core

import (
	"fmt"

	"github.com/valter-silva-au/taskflow/internal/storage"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"go.uber.org/zap"
)

// TaskService is the caller-facing task API: store operations plus graph
// queries, with domain events and logging around each write.
type TaskService interface {
	CreateTask(in models.TaskInput) (*models.Task, error)
	UpdateTask(taskID string, upd models.TaskUpdate) (*models.Task, error)
	ArchiveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	LoadAllTasks() (*storage.LoadResult, error)
	LoadArchivedTasks() (*storage.LoadResult, error)
	GetNextTask(filter NextTaskFilter) (*models.Task, bool, error)
	Graph() (*TaskGraph, *storage.LoadResult, error)
}

type taskService struct {
	store  storage.TaskStore
	events EventLogger
	logger *zap.Logger
}

// NewTaskService wraps store. events and logger may be nil.
func NewTaskService(store storage.TaskStore, events EventLogger, logger *zap.Logger) TaskService {
	if events == nil {
		events = nopEventLogger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taskService{store: store, events: events, logger: logger.Named("tasks")}
}

func (s *taskService) CreateTask(in models.TaskInput) (*models.Task, error) {
	task, err := s.store.CreateTask(in)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("priority", string(task.Priority)),
	)
	s.emit(EventTaskCreated, map[string]any{
		"task_id":  task.ID,
		"project":  task.Project,
		"priority": string(task.Priority),
		"owner":    task.Owner,
	})
	return task, nil
}

func (s *taskService) UpdateTask(taskID string, upd models.TaskUpdate) (*models.Task, error) {
	var before *models.Task
	if upd.Status != nil {
		prev, err := s.store.GetTask(taskID)
		if err != nil {
			return nil, fmt.Errorf("updating task %s: %w", taskID, err)
		}
		before = prev
	}

	task, err := s.store.UpdateTask(taskID, upd)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	s.logger.Info("task updated", zap.String("task_id", task.ID))
	s.emit(EventTaskUpdated, map[string]any{"task_id": task.ID, "project": task.Project})

	if before != nil && before.Status != task.Status {
		s.emit(EventTaskStatusChanged, map[string]any{
			"task_id":    task.ID,
			"project":    task.Project,
			"old_status": string(before.Status),
			"new_status": string(task.Status),
		})
	}
	return task, nil
}

func (s *taskService) ArchiveTask(taskID string) error {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("archiving task %s: %w", taskID, err)
	}
	if err := s.store.ArchiveTask(taskID); err != nil {
		return fmt.Errorf("archiving task %s: %w", taskID, err)
	}
	s.logger.Info("task archived", zap.String("task_id", taskID))
	s.emit(EventTaskArchived, map[string]any{
		"task_id": taskID,
		"project": task.Project,
		"status":  string(task.Status),
	})
	return nil
}

func (s *taskService) GetTask(taskID string) (*models.Task, error) {
	return s.store.GetTask(taskID)
}

func (s *taskService) LoadAllTasks() (*storage.LoadResult, error) {
	res, err := s.store.LoadAllTasks()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return res, nil
}

func (s *taskService) LoadArchivedTasks() (*storage.LoadResult, error) {
	res, err := s.store.LoadArchivedTasks()
	if err != nil {
		return nil, fmt.Errorf("loading archived tasks: %w", err)
	}
	return res, nil
}

// GetNextTask returns the next actionable task. ok is false when nothing
// qualifies.
func (s *taskService) GetNextTask(filter NextTaskFilter) (*models.Task, bool, error) {
	g, _, err := s.Graph()
	if err != nil {
		return nil, false, err
	}
	task, ok := g.NextTask(filter)
	return task, ok, nil
}

// Graph builds a graph over the active tasks. The load result is returned so
// callers can report malformed records.
func (s *taskService) Graph() (*TaskGraph, *storage.LoadResult, error) {
	res, err := s.LoadAllTasks()
	if err != nil {
		return nil, nil, err
	}
	return NewTaskGraph(res.Tasks), res, nil
}

// emit logs event failures without failing the operation that caused them.
func (s *taskService) emit(eventType string, data map[string]any) {
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.logger.Warn("recording event failed", zap.String("type", eventType), zap.Error(err))
	}
}
