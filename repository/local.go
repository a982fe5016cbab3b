package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"remindme/model"
)

// LocalTaskStore is the persistence boundary for the authoritative local
// task collection: a keyed record store with ordered listing. Save errors
// surface to the caller; retry policy is the caller's concern.
type LocalTaskStore interface {
	GetByID(ctx context.Context, userID, taskID string) (*model.Task, error)
	Upsert(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, taskID string) error
	ListOrdered(ctx context.Context, userID, orderBy string) ([]*model.Task, error)
}

// OrderTasks sorts tasks in place by the named record field, ascending.
// Unknown fields fall back to sort_order.
func OrderTasks(tasks []*model.Task, orderBy string) {
	sort.SliceStable(tasks, func(i, j int) bool {
		switch orderBy {
		case "created_at":
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		case "updated_at":
			return tasks[i].UpdatedAt.Before(tasks[j].UpdatedAt)
		case "scheduled_date":
			// Inbox tasks (no date) sort last.
			if (tasks[i].ScheduledDate == nil) != (tasks[j].ScheduledDate == nil) {
				return tasks[j].ScheduledDate == nil
			}
			if tasks[i].ScheduledDate == nil {
				return tasks[i].SortOrder < tasks[j].SortOrder
			}
			return tasks[i].ScheduledDate.Before(*tasks[j].ScheduledDate)
		default:
			return tasks[i].SortOrder < tasks[j].SortOrder
		}
	})
}

// MemoryTaskStore keeps the task collection in process memory. It is the
// default store and the one the tests run against.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]map[string]*model.Task // userID -> taskID -> task
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]map[string]*model.Task)}
}

func (s *MemoryTaskStore) GetByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[userID][taskID]
	if !ok {
		return nil, nil
	}
	return task.Clone(), nil
}

func (s *MemoryTaskStore) Upsert(ctx context.Context, task *model.Task) error {
	if task.TaskID == "" {
		return errors.New("task ID is required")
	}
	if task.UserID == "" {
		return errors.New("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tasks[task.UserID] == nil {
		s.tasks[task.UserID] = make(map[string]*model.Task)
	}
	s.tasks[task.UserID][task.TaskID] = task.Clone()
	return nil
}

func (s *MemoryTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID != "" {
		delete(s.tasks[userID], taskID)
		return nil
	}
	// Remote deletions only carry the task id; find the owner by scan.
	for _, byID := range s.tasks {
		delete(byID, taskID)
	}
	return nil
}

func (s *MemoryTaskStore) ListOrdered(ctx context.Context, userID, orderBy string) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(s.tasks[userID]))
	for _, task := range s.tasks[userID] {
		tasks = append(tasks, task.Clone())
	}
	OrderTasks(tasks, orderBy)
	return tasks, nil
}
