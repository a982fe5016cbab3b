package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"remindme/model"
	"remindme/parser"
	"remindme/repository"
)

func newTestService() (*TaskService, *repository.MemoryTaskStore, *fakeRemote, *stubNotifier) {
	engine, store, remote, notifier := newTestEngine()
	p := parser.NewWithClock(func() time.Time { return syncBase })
	svc := NewTaskService(store, engine, notifier, p)
	svc.now = func() time.Time { return syncBase }
	return svc, store, remote, notifier
}

func TestCreateFromText(t *testing.T) {
	svc, store, _, notifier := newTestService()
	ctx := context.Background()

	task, err := svc.CreateFromText(ctx, "u1", "call mom tomorrow at 7pm")
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}

	if task.TaskID == "" {
		t.Error("task id not assigned")
	}
	if task.UserID != "u1" {
		t.Errorf("user id = %q, want u1", task.UserID)
	}
	if task.Title != "Call mom" {
		t.Errorf("title = %q, want %q", task.Title, "Call mom")
	}
	if task.RawInput != "call mom tomorrow at 7pm" {
		t.Errorf("raw input not preserved: %q", task.RawInput)
	}
	want := time.Date(2025, time.March, 13, 19, 0, 0, 0, time.UTC)
	if task.ScheduledDate == nil || !task.ScheduledDate.Equal(want) {
		t.Errorf("scheduled date = %v, want %v", task.ScheduledDate, want)
	}
	if !task.HasSpecificTime {
		t.Error("hasSpecificTime = false, want true")
	}
	if task.IsCompleted || task.CompletedAt != nil {
		t.Error("new task should not be completed")
	}
	if !task.CreatedAt.Equal(syncBase) || !task.UpdatedAt.Equal(syncBase) {
		t.Errorf("timestamps = %v/%v, want %v", task.CreatedAt, task.UpdatedAt, syncBase)
	}
	if task.SortOrder != syncBase.UnixMilli() {
		t.Errorf("sort order = %d, want %d", task.SortOrder, syncBase.UnixMilli())
	}

	stored, err := store.GetByID(ctx, "u1", task.TaskID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("task not persisted")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.scheduled) != 1 || notifier.scheduled[0] != task.TaskID {
		t.Errorf("scheduled reminders = %v, want the new task", notifier.scheduled)
	}
}

func TestCreateFromTextValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateFromText(ctx, "", "buy milk"); err == nil {
		t.Error("missing user accepted")
	}
	if _, err := svc.CreateFromText(ctx, "u1", "   "); err == nil {
		t.Error("blank text accepted")
	}
}

func TestCompleteNonRecurring(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	seed := syncTask("t1", "u1", "One-off", syncBase.Add(-time.Hour))
	if err := store.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Complete(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !task.IsCompleted {
		t.Error("task not completed")
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(syncBase) {
		t.Errorf("completedAt = %v, want %v", task.CompletedAt, syncBase)
	}
	if !task.UpdatedAt.Equal(syncBase) {
		t.Errorf("updatedAt = %v, want %v", task.UpdatedAt, syncBase)
	}
}

func TestCompleteRecurringRollsForward(t *testing.T) {
	svc, store, _, notifier := newTestService()
	ctx := context.Background()

	scheduled := syncBase.Add(-2 * time.Hour)
	rule := model.Daily()
	seed := syncTask("t1", "u1", "Water plants", syncBase.Add(-time.Hour))
	seed.ScheduledDate = &scheduled
	seed.Recurrence = &rule
	if err := store.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Complete(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Completion is transient: the schedule advances and the task resets.
	if task.IsCompleted {
		t.Error("recurring task left completed")
	}
	if task.CompletedAt != nil {
		t.Errorf("completedAt = %v, want nil", task.CompletedAt)
	}
	wantNext := scheduled.AddDate(0, 0, 1)
	if task.ScheduledDate == nil || !task.ScheduledDate.Equal(wantNext) {
		t.Errorf("scheduled date = %v, want %v", task.ScheduledDate, wantNext)
	}
	if task.Recurrence == nil || !task.Recurrence.Equal(rule) {
		t.Errorf("recurrence rule changed: %+v", task.Recurrence)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.updated) == 0 {
		t.Error("rolled-forward task should reschedule, not cancel")
	}
}

func TestUncomplete(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	completedAt := syncBase.Add(-time.Hour)
	seed := syncTask("t1", "u1", "Done", syncBase.Add(-2*time.Hour))
	seed.IsCompleted = true
	seed.CompletedAt = &completedAt
	if err := store.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Uncomplete(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Uncomplete: %v", err)
	}
	if task.IsCompleted || task.CompletedAt != nil {
		t.Errorf("completion state not cleared: %+v", task)
	}
}

func TestToggle(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	if err := store.Upsert(ctx, syncTask("t1", "u1", "Flip me", syncBase.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Toggle(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !task.IsCompleted {
		t.Fatal("first toggle should complete")
	}

	task, err = svc.Toggle(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if task.IsCompleted {
		t.Fatal("second toggle should uncomplete")
	}

	if _, err := svc.Toggle(ctx, "u1", "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	scheduled := syncBase.Add(24 * time.Hour)
	rule := model.Weekly()
	seed := syncTask("t1", "u1", "Old title", syncBase.Add(-time.Hour))
	seed.ScheduledDate = &scheduled
	seed.HasSpecificTime = true
	seed.Recurrence = &rule
	if err := store.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	title := "New title"
	task, err := svc.Update(ctx, "u1", "t1", TaskUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task.Title != "New title" {
		t.Errorf("title = %q", task.Title)
	}
	if task.ScheduledDate == nil || task.Recurrence == nil {
		t.Error("untouched fields were cleared")
	}

	task, err = svc.Update(ctx, "u1", "t1", TaskUpdate{ClearSchedule: true, ClearRecurrence: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task.ScheduledDate != nil || task.HasSpecificTime || task.Recurrence != nil {
		t.Errorf("clear flags not honored: %+v", task)
	}
}

func TestReorder(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	if err := store.Upsert(ctx, syncTask("t1", "u1", "Movable", syncBase.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Reorder(ctx, "u1", "t1", 42)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if task.SortOrder != 42 {
		t.Errorf("sort order = %d, want 42", task.SortOrder)
	}
}

func TestDeletePropagatesRemotely(t *testing.T) {
	svc, store, remote, notifier := newTestService()
	ctx := context.Background()

	if err := store.Upsert(ctx, syncTask("t1", "u1", "Doomed", syncBase.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, "u1", "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got, _ := store.GetByID(ctx, "u1", "t1"); got != nil {
		t.Error("task still present locally")
	}
	remote.mu.Lock()
	deletes := append([]string(nil), remote.deletes...)
	remote.mu.Unlock()
	if len(deletes) != 1 || deletes[0] != "t1" {
		t.Errorf("remote deletes = %v, want [t1]", deletes)
	}
	cancelled := notifier.cancelledIDs()
	if len(cancelled) != 1 || cancelled[0] != "t1" {
		t.Errorf("cancelled reminders = %v, want [t1]", cancelled)
	}

	if err := svc.Delete(ctx, "u1", "t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second delete err = %v, want ErrTaskNotFound", err)
	}
}

func TestGetMissing(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Get(context.Background(), "u1", "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestStats(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	yesterday := syncBase.AddDate(0, 0, -1)
	earlierToday := syncBase.Add(-time.Hour)
	laterToday := syncBase.Add(2 * time.Hour)
	rule := model.Daily()

	done := syncTask("a", "u1", "Done yesterday", syncBase.Add(-48*time.Hour))
	done.ScheduledDate = &yesterday
	done.IsCompleted = true
	done.CompletedAt = &yesterday

	overdue := syncTask("b", "u1", "Overdue", syncBase.Add(-48*time.Hour))
	overdue.ScheduledDate = &earlierToday

	upcoming := syncTask("c", "u1", "Later today", syncBase.Add(-48*time.Hour))
	upcoming.ScheduledDate = &laterToday
	upcoming.HasSpecificTime = true

	inbox := syncTask("d", "u1", "Someday", syncBase.Add(-48*time.Hour))
	inbox.Recurrence = &rule

	for _, task := range []*model.Task{done, overdue, upcoming, inbox} {
		if err := store.Upsert(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	want := model.TaskStats{
		Total:            4,
		Completed:        1,
		Pending:          3,
		Overdue:          1,
		DueToday:         2,
		Inbox:            1,
		WithSpecificTime: 1,
		Recurring:        1,
	}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}
