package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindme/model"
	"remindme/parser"
	"remindme/repository"
	"remindme/services"
	"remindme/utils"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskService owns the task lifecycle. Every mutation runs under the sync
// engine's collection mutex so user edits and remote merges never
// interleave.
type TaskService struct {
	store    repository.LocalTaskStore
	engine   *SyncEngine
	notifier services.Notifier
	parser   *parser.Parser
	now      func() time.Time
}

func NewTaskService(store repository.LocalTaskStore, engine *SyncEngine, notifier services.Notifier, p *parser.Parser) *TaskService {
	return &TaskService{
		store:    store,
		engine:   engine,
		notifier: notifier,
		parser:   p,
		now:      time.Now,
	}
}

// TaskUpdate carries the fields an edit may change. Nil pointers leave the
// field untouched; the Clear flags reset the optional fields.
type TaskUpdate struct {
	Title           *string
	ScheduledDate   *time.Time
	ClearSchedule   bool
	HasSpecificTime *bool
	Recurrence      *model.RecurrenceRule
	ClearRecurrence bool
}

// CreateFromText parses raw input into a task and stores it. The original
// text is preserved verbatim for audit and re-parse.
func (svc *TaskService) CreateFromText(ctx context.Context, userID, text string) (*model.Task, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("task text is required")
	}

	parsed := svc.parser.Parse(text)
	now := svc.now()

	task := &model.Task{
		TaskID:          uuid.New().String(),
		UserID:          userID,
		Title:           parsed.Title,
		RawInput:        text,
		ScheduledDate:   parsed.ScheduledDate,
		HasSpecificTime: parsed.HasSpecificTime,
		Recurrence:      parsed.Recurrence,
		CreatedAt:       now,
		UpdatedAt:       now,
		SortOrder:       now.UnixMilli(),
	}

	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()

	if err := svc.store.Upsert(ctx, task); err != nil {
		utils.TrackError("task", "create_failed")
		return nil, err
	}
	svc.engine.owners[task.TaskID] = userID
	svc.pushAsync(task)
	svc.notifier.Schedule(task)

	utils.TrackTaskOperation("create")
	return task, nil
}

// List returns the user's tasks in manual order.
func (svc *TaskService) List(ctx context.Context, userID string) ([]*model.Task, error) {
	return svc.store.ListOrdered(ctx, userID, "sort_order")
}

func (svc *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := svc.store.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Complete marks a task done. Completing a recurring scheduled task never
// leaves it completed: in the same step the schedule rolls forward to the
// rule's next occurrence and the completion state resets.
func (svc *TaskService) Complete(ctx context.Context, userID, taskID string) (*model.Task, error) {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()
	return svc.mutate(ctx, userID, taskID, "complete", svc.applyComplete)
}

// Uncomplete clears completion state. No recurrence interaction.
func (svc *TaskService) Uncomplete(ctx context.Context, userID, taskID string) (*model.Task, error) {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()
	return svc.mutate(ctx, userID, taskID, "uncomplete", svc.applyUncomplete)
}

// Toggle dispatches to Complete or Uncomplete based on current state.
func (svc *TaskService) Toggle(ctx context.Context, userID, taskID string) (*model.Task, error) {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()

	task, err := svc.store.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.IsCompleted {
		return svc.mutate(ctx, userID, taskID, "uncomplete", svc.applyUncomplete)
	}
	return svc.mutate(ctx, userID, taskID, "complete", svc.applyComplete)
}

// Update edits a task's content and schedule.
func (svc *TaskService) Update(ctx context.Context, userID, taskID string, update TaskUpdate) (*model.Task, error) {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()

	return svc.mutate(ctx, userID, taskID, "edit", func(task *model.Task) {
		if update.Title != nil {
			task.Title = *update.Title
		}
		if update.ClearSchedule {
			task.ScheduledDate = nil
			task.HasSpecificTime = false
		} else if update.ScheduledDate != nil {
			d := *update.ScheduledDate
			task.ScheduledDate = &d
		}
		if update.HasSpecificTime != nil {
			task.HasSpecificTime = *update.HasSpecificTime
		}
		if update.ClearRecurrence {
			task.Recurrence = nil
		} else if update.Recurrence != nil {
			r := *update.Recurrence
			task.Recurrence = &r
		}
	})
}

// Reorder assigns a task its externally chosen sort position.
func (svc *TaskService) Reorder(ctx context.Context, userID, taskID string, sortOrder int64) (*model.Task, error) {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()

	return svc.mutate(ctx, userID, taskID, "reorder", func(task *model.Task) {
		task.SortOrder = sortOrder
	})
}

// Delete removes the task locally and always propagates to the remote
// store, independent of sync suppression.
func (svc *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	svc.engine.mu.Lock()
	defer svc.engine.mu.Unlock()

	task, err := svc.store.GetByID(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if err := svc.store.Delete(ctx, userID, taskID); err != nil {
		utils.TrackError("task", "delete_failed")
		return err
	}
	delete(svc.engine.owners, taskID)
	svc.notifier.Cancel(taskID)
	if err := svc.engine.DeleteRemote(ctx, userID, taskID); err != nil {
		utils.TrackError("task", "remote_delete_failed")
		log.Printf("Failed to delete task %s remotely: %v", taskID, err)
	}

	utils.TrackTaskOperation("delete")
	return nil
}

// Stats summarizes the user's collection for display.
func (svc *TaskService) Stats(ctx context.Context, userID string) (*model.TaskStats, error) {
	tasks, err := svc.store.ListOrdered(ctx, userID, "sort_order")
	if err != nil {
		return nil, err
	}

	stats := &model.TaskStats{Total: len(tasks)}
	now := svc.now()
	for _, task := range tasks {
		if task.IsCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if task.Recurrence != nil {
			stats.Recurring++
		}
		if task.HasSpecificTime {
			stats.WithSpecificTime++
		}
		if task.ScheduledDate == nil {
			stats.Inbox++
			continue
		}
		if !task.IsCompleted && task.ScheduledDate.Before(now) {
			stats.Overdue++
		}
		if sameDay(*task.ScheduledDate, now) {
			stats.DueToday++
		}
	}
	return stats, nil
}

// mutate loads, transforms, stamps and persists one task under the already
// held collection mutex, then mirrors the result out.
func (svc *TaskService) mutate(ctx context.Context, userID, taskID, operation string, apply func(*model.Task)) (*model.Task, error) {
	task, err := svc.store.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	apply(task)
	task.UpdatedAt = svc.now()

	if err := svc.store.Upsert(ctx, task); err != nil {
		utils.TrackError("task", operation+"_failed")
		return nil, err
	}
	svc.pushAsync(task)
	if task.IsCompleted {
		svc.notifier.Cancel(task.TaskID)
	} else {
		svc.notifier.Update(task)
	}

	utils.TrackTaskOperation(operation)
	return task, nil
}

func (svc *TaskService) applyComplete(task *model.Task) {
	now := svc.now()
	completedAt := now
	task.IsCompleted = true
	task.CompletedAt = &completedAt

	// Completion of a recurring scheduled task is only transient: the
	// schedule advances and the task resets, atomically with the same
	// persist.
	if task.Recurrence != nil && task.ScheduledDate != nil {
		next := task.Recurrence.NextOccurrence(*task.ScheduledDate)
		task.ScheduledDate = &next
		task.IsCompleted = false
		task.CompletedAt = nil
	}
}

func (svc *TaskService) applyUncomplete(task *model.Task) {
	task.IsCompleted = false
	task.CompletedAt = nil
}

// pushAsync mirrors a local mutation to the remote store without holding
// up the request on remote latency. Push failures are not fatal: the next
// reconciliation pass settles the difference.
func (svc *TaskService) pushAsync(task *model.Task) {
	snapshot := task.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.engine.Push(ctx, snapshot); err != nil {
			utils.TrackError("task", "push_failed")
			log.Printf("Failed to push task %s: %v", snapshot.TaskID, err)
		}
	}()
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.In(b.Location()).Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
