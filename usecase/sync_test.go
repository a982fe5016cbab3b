package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"remindme/model"
	"remindme/repository"
)

var syncBase = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type fakeRemote struct {
	mu       sync.Mutex
	docs     map[string]*model.Task
	upserts  []string
	deletes  []string
	fetchErr error
	changes  chan repository.TaskChange
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:    make(map[string]*model.Task),
		changes: make(chan repository.TaskChange, 16),
	}
}

func (f *fakeRemote) seed(tasks ...*model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range tasks {
		f.docs[task.TaskID] = task.Clone()
	}
}

func (f *fakeRemote) FetchAll(ctx context.Context, userID string) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*model.Task
	for _, task := range f.docs {
		if userID == "" || task.UserID == userID {
			out = append(out, task.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) Upsert(ctx context.Context, task *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[task.TaskID] = task.Clone()
	f.upserts = append(f.upserts, task.TaskID)
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, userID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, taskID)
	f.deletes = append(f.deletes, taskID)
	return nil
}

func (f *fakeRemote) Watch(ctx context.Context, userID string) (<-chan repository.TaskChange, error) {
	return f.changes, nil
}

func (f *fakeRemote) upsertedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.upserts...)
}

type stubNotifier struct {
	mu        sync.Mutex
	scheduled []string
	updated   []string
	cancelled []string
}

func (n *stubNotifier) Schedule(task *model.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = append(n.scheduled, task.TaskID)
}

func (n *stubNotifier) Cancel(taskID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, taskID)
}

func (n *stubNotifier) Update(task *model.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, task.TaskID)
}

func (n *stubNotifier) cancelledIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.cancelled...)
}

func newTestEngine() (*SyncEngine, *repository.MemoryTaskStore, *fakeRemote, *stubNotifier) {
	store := repository.NewMemoryTaskStore()
	remote := newFakeRemote()
	notifier := &stubNotifier{}
	engine := NewSyncEngine(store, remote, notifier)
	engine.now = func() time.Time { return syncBase }
	return engine, store, remote, notifier
}

func syncTask(id, userID, title string, updated time.Time) *model.Task {
	return &model.Task{
		TaskID:    id,
		UserID:    userID,
		Title:     title,
		RawInput:  title,
		CreatedAt: updated,
		UpdatedAt: updated,
		SortOrder: updated.UnixMilli(),
	}
}

func TestForceSyncRemoteNewerWins(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()

	old := syncBase.Add(-time.Hour)
	local := syncTask("t1", "u1", "Local title", old)
	if err := store.Upsert(ctx, local); err != nil {
		t.Fatal(err)
	}
	remote.seed(syncTask("t1", "u1", "Remote title", old.Add(time.Minute)))

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	got, err := store.GetByID(ctx, "u1", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("task missing after sync")
	}
	if got.Title != "Remote title" {
		t.Errorf("title = %q, want %q", got.Title, "Remote title")
	}
	if got.TaskID != "t1" {
		t.Errorf("task id changed to %q", got.TaskID)
	}
}

func TestForceSyncLocalNewerKept(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()

	old := syncBase.Add(-time.Hour)
	if err := store.Upsert(ctx, syncTask("t1", "u1", "Local title", old.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	remote.seed(syncTask("t1", "u1", "Remote title", old))

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	got, _ := store.GetByID(ctx, "u1", "t1")
	if got == nil || got.Title != "Local title" {
		t.Fatalf("local task clobbered: %+v", got)
	}
}

func TestForceSyncTieKeepsLocal(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()

	old := syncBase.Add(-time.Hour)
	if err := store.Upsert(ctx, syncTask("t1", "u1", "Local title", old)); err != nil {
		t.Fatal(err)
	}
	remote.seed(syncTask("t1", "u1", "Remote title", old))

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	got, _ := store.GetByID(ctx, "u1", "t1")
	if got == nil || got.Title != "Local title" {
		t.Fatalf("tie did not keep local: %+v", got)
	}
}

func TestForceSyncInsertsUnknownRemote(t *testing.T) {
	engine, store, remote, notifier := newTestEngine()
	ctx := context.Background()

	remote.seed(syncTask("t9", "u1", "From remote", syncBase.Add(-time.Hour)))

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	got, _ := store.GetByID(ctx, "u1", "t9")
	if got == nil || got.Title != "From remote" {
		t.Fatalf("remote task not inserted: %+v", got)
	}
	if engine.owners["t9"] != "u1" {
		t.Errorf("owner not recorded: %q", engine.owners["t9"])
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.updated) != 1 || notifier.updated[0] != "t9" {
		t.Errorf("notifier updates = %v, want [t9]", notifier.updated)
	}
}

func TestForceSyncGraceWindow(t *testing.T) {
	engine, store, remote, notifier := newTestEngine()
	ctx := context.Background()

	// Inside the window: created three seconds ago, not yet remote.
	fresh := syncTask("fresh", "u1", "Fresh", syncBase.Add(-3*time.Second))
	// Outside the window: remote has forgotten it, so it goes.
	stale := syncTask("stale", "u1", "Stale", syncBase.Add(-time.Minute))
	if err := store.Upsert(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, stale); err != nil {
		t.Fatal(err)
	}

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	if got, _ := store.GetByID(ctx, "u1", "fresh"); got == nil {
		t.Error("task inside the grace window was deleted")
	}
	if got, _ := store.GetByID(ctx, "u1", "stale"); got != nil {
		t.Error("task outside the grace window survived")
	}

	pushed := remote.upsertedIDs()
	if len(pushed) != 1 || pushed[0] != "fresh" {
		t.Errorf("remote upserts = %v, want [fresh]", pushed)
	}
	cancelled := notifier.cancelledIDs()
	if len(cancelled) != 1 || cancelled[0] != "stale" {
		t.Errorf("cancelled reminders = %v, want [stale]", cancelled)
	}
}

func TestForceSyncFetchFailureLeavesLocalUntouched(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()

	if err := store.Upsert(ctx, syncTask("t1", "u1", "Local title", syncBase.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}
	remote.fetchErr = errors.New("network down")

	if err := engine.ForceSync(ctx, "u1"); err == nil {
		t.Fatal("ForceSync succeeded despite fetch failure")
	}

	if got, _ := store.GetByID(ctx, "u1", "t1"); got == nil {
		t.Error("local task lost on failed sync")
	}

	// The engine must return to idle so the next pass can run.
	remote.fetchErr = nil
	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync after recovery: %v", err)
	}
}

func TestForceSyncSkipsDocsWithoutID(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()

	remote.seed(
		syncTask("", "u1", "Broken", syncBase.Add(-time.Hour)),
		syncTask("ok", "u1", "Fine", syncBase.Add(-time.Hour)),
	)

	if err := engine.ForceSync(ctx, "u1"); err != nil {
		t.Fatalf("ForceSync: %v", err)
	}

	tasks, err := store.ListOrdered(ctx, "u1", "sort_order")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].TaskID != "ok" {
		t.Fatalf("tasks after sync = %v, want only ok", taskIDs(tasks))
	}
}

func TestForceSyncRejectsConcurrentPass(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	ctx := context.Background()

	engine.state.Store(stateFetching)
	defer engine.state.Store(stateIdle)

	if err := engine.ForceSync(ctx, "u1"); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("err = %v, want ErrSyncInProgress", err)
	}
}

func TestPushSuppressedDuringMerge(t *testing.T) {
	engine, _, remote, _ := newTestEngine()
	ctx := context.Background()
	task := syncTask("t1", "u1", "Title", syncBase)

	engine.suppress.Add(1)
	if err := engine.Push(ctx, task); err != nil {
		t.Fatal(err)
	}
	if got := remote.upsertedIDs(); len(got) != 0 {
		t.Fatalf("suppressed push reached remote: %v", got)
	}
	engine.suppress.Add(-1)

	if err := engine.Push(ctx, task); err != nil {
		t.Fatal(err)
	}
	if got := remote.upsertedIDs(); len(got) != 1 || got[0] != "t1" {
		t.Fatalf("push after suppression = %v, want [t1]", got)
	}
}

func TestApplyChange(t *testing.T) {
	engine, store, _, notifier := newTestEngine()
	ctx := context.Background()
	old := syncBase.Add(-time.Hour)

	// Added inserts.
	added := syncTask("t1", "u1", "First", old)
	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeAdded, TaskID: "t1", Task: added,
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got == nil {
		t.Fatal("added change not applied")
	}

	// Older modified is ignored.
	older := syncTask("t1", "u1", "Regressed", old.Add(-time.Minute))
	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeModified, TaskID: "t1", Task: older,
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got.Title != "First" {
		t.Errorf("stale change applied, title = %q", got.Title)
	}

	// Newer modified wins.
	newer := syncTask("t1", "u1", "Second", old.Add(time.Minute))
	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeModified, TaskID: "t1", Task: newer,
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got.Title != "Second" {
		t.Errorf("newer change not applied, title = %q", got.Title)
	}

	// Removal is unconditional, even for an old task.
	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeRemoved, TaskID: "t1",
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got != nil {
		t.Error("removed change did not delete the task")
	}
	cancelled := notifier.cancelledIDs()
	if len(cancelled) == 0 || cancelled[len(cancelled)-1] != "t1" {
		t.Errorf("cancelled reminders = %v, want trailing t1", cancelled)
	}
}

func TestApplyChangeMissingDocument(t *testing.T) {
	engine, store, _, _ := newTestEngine()
	ctx := context.Background()

	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeAdded, TaskID: "t1",
	}); err != nil {
		t.Fatalf("change without document should be dropped, got %v", err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got != nil {
		t.Error("phantom task created")
	}
}

func TestApplyChangeRemovedWithoutOwner(t *testing.T) {
	engine, store, _, _ := newTestEngine()
	ctx := context.Background()

	// The engine never saw this task, so the removal routes through the
	// owner-less delete path.
	if err := store.Upsert(ctx, syncTask("t1", "u1", "Title", syncBase.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := engine.ApplyChange(ctx, repository.TaskChange{
		Type: repository.ChangeRemoved, TaskID: "t1",
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, "u1", "t1"); got != nil {
		t.Error("removal without owner mapping did not delete the task")
	}
}

func TestListenAppliesChangesInOrder(t *testing.T) {
	engine, store, remote, _ := newTestEngine()
	ctx := context.Background()
	old := syncBase.Add(-time.Hour)

	if err := engine.Listen(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	remote.changes <- repository.TaskChange{
		Type: repository.ChangeAdded, TaskID: "t1",
		Task: syncTask("t1", "u1", "First", old),
	}
	remote.changes <- repository.TaskChange{
		Type: repository.ChangeModified, TaskID: "t1",
		Task: syncTask("t1", "u1", "Second", old.Add(time.Minute)),
	}
	close(remote.changes)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.GetByID(ctx, "u1", "t1")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil && got.Title == "Second" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("changes not applied in time, task = %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func taskIDs(tasks []*model.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.TaskID)
	}
	return ids
}
