package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"remindme/model"
	"remindme/repository"
	"remindme/services"
	"remindme/utils"
)

// RemoteTaskStore is the remote boundary: a per-user document set keyed by
// task id with full fetch and a live change stream.
type RemoteTaskStore interface {
	FetchAll(ctx context.Context, userID string) ([]*model.Task, error)
	Upsert(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, taskID string) error
	Watch(ctx context.Context, userID string) (<-chan repository.TaskChange, error)
}

// Tasks created locally within this window and missing from a remote fetch
// are pushed instead of deleted; they may simply not have reached the
// server yet.
const graceWindow = 10 * time.Second

// Sync cycle states.
const (
	stateIdle int32 = iota
	stateFetching
	stateMerging
)

var ErrSyncInProgress = errors.New("sync already in progress")

// SyncEngine reconciles the local task collection against the remote
// mirror under last-write-wins semantics. The remote is authoritative for
// existence outside the grace window. The engine owns the mutex that
// serializes every mutation of the collection, so a merge never interleaves
// with a user edit.
type SyncEngine struct {
	mu       sync.Mutex
	store    repository.LocalTaskStore
	remote   RemoteTaskStore
	notifier services.Notifier

	state    atomic.Int32
	suppress atomic.Int32 // >0 while a remote-driven merge is applying

	// taskID -> userID, for routing removals that carry no document.
	owners map[string]string

	now func() time.Time
}

func NewSyncEngine(store repository.LocalTaskStore, remote RemoteTaskStore, notifier services.Notifier) *SyncEngine {
	return &SyncEngine{
		store:    store,
		remote:   remote,
		notifier: notifier,
		owners:   make(map[string]string),
		now:      time.Now,
	}
}

// Push mirrors a locally mutated task to the remote store. It is a no-op
// while a remote-driven merge is in progress, so changes that originated
// remotely are never echoed back.
func (e *SyncEngine) Push(ctx context.Context, task *model.Task) error {
	if e.suppress.Load() > 0 {
		return nil
	}
	return e.remote.Upsert(ctx, task)
}

// DeleteRemote propagates an explicit local deletion, independent of
// suppression state.
func (e *SyncEngine) DeleteRemote(ctx context.Context, userID, taskID string) error {
	return e.remote.Delete(ctx, userID, taskID)
}

// ForceSync runs one full reconciliation pass for the user:
// Idle -> Fetching -> Merging -> Idle. A fetch failure commits nothing.
func (e *SyncEngine) ForceSync(ctx context.Context, userID string) error {
	if !e.state.CompareAndSwap(stateIdle, stateFetching) {
		utils.TrackSyncCycle("busy")
		return ErrSyncInProgress
	}
	defer e.state.Store(stateIdle)

	remoteTasks, err := e.remote.FetchAll(ctx, userID)
	if err != nil {
		utils.TrackSyncCycle("fetch_failed")
		utils.TrackError("sync", "fetch_failed")
		return fmt.Errorf("remote fetch failed: %w", err)
	}

	e.state.Store(stateMerging)
	e.suppress.Add(1)
	defer e.suppress.Add(-1)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Decide every mutation first, persist at the end of the pass.
	var upserts []*model.Task
	var deletes []string
	var pushBack []*model.Task

	remoteIDs := make(map[string]bool, len(remoteTasks))
	for _, remote := range remoteTasks {
		if remote.TaskID == "" {
			continue
		}
		remoteIDs[remote.TaskID] = true
		local, err := e.store.GetByID(ctx, userID, remote.TaskID)
		if err != nil {
			return err
		}
		if merged := mergeRemote(local, remote); merged != nil {
			upserts = append(upserts, merged)
		}
	}

	locals, err := e.store.ListOrdered(ctx, userID, "created_at")
	if err != nil {
		return err
	}
	now := e.now()
	for _, local := range locals {
		if remoteIDs[local.TaskID] {
			continue
		}
		if now.Sub(local.CreatedAt) <= graceWindow {
			// Just created, likely not synced yet: push, don't delete.
			pushBack = append(pushBack, local)
		} else {
			deletes = append(deletes, local.TaskID)
		}
	}

	for _, task := range upserts {
		if err := e.store.Upsert(ctx, task); err != nil {
			utils.TrackError("sync", "local_save_failed")
			return err
		}
		e.owners[task.TaskID] = task.UserID
		if e.notifier != nil {
			e.notifier.Update(task)
		}
	}
	for _, taskID := range deletes {
		if err := e.store.Delete(ctx, userID, taskID); err != nil {
			utils.TrackError("sync", "local_delete_failed")
			return err
		}
		delete(e.owners, taskID)
		if e.notifier != nil {
			e.notifier.Cancel(taskID)
		}
	}
	for _, task := range pushBack {
		e.owners[task.TaskID] = userID
		if err := e.remote.Upsert(ctx, task); err != nil {
			utils.TrackError("sync", "push_back_failed")
			log.Printf("Failed to push unsynced task %s: %v", task.TaskID, err)
		}
	}
	for _, remote := range remoteTasks {
		if remote.TaskID != "" {
			e.owners[remote.TaskID] = remote.UserID
		}
	}

	utils.TrackSyncCycle("merged")
	return nil
}

// ApplyChange applies one remote change notification. Added and modified
// documents go through the same last-write-wins merge as a full pass;
// removals are authoritative immediately, with no grace window.
func (e *SyncEngine) ApplyChange(ctx context.Context, change repository.TaskChange) error {
	e.suppress.Add(1)
	defer e.suppress.Add(-1)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch change.Type {
	case repository.ChangeAdded, repository.ChangeModified:
		remote := change.Task
		if remote == nil || remote.TaskID == "" {
			utils.TrackError("sync", "change_missing_document")
			return nil
		}
		local, err := e.store.GetByID(ctx, remote.UserID, remote.TaskID)
		if err != nil {
			return err
		}
		merged := mergeRemote(local, remote)
		if merged == nil {
			return nil
		}
		if err := e.store.Upsert(ctx, merged); err != nil {
			utils.TrackError("sync", "local_save_failed")
			return err
		}
		e.owners[merged.TaskID] = merged.UserID
		if e.notifier != nil {
			e.notifier.Update(merged)
		}
		utils.TrackRemoteChange(change.Type)
	case repository.ChangeRemoved:
		userID := e.owners[change.TaskID]
		if err := e.store.Delete(ctx, userID, change.TaskID); err != nil {
			utils.TrackError("sync", "local_delete_failed")
			return err
		}
		delete(e.owners, change.TaskID)
		if e.notifier != nil {
			e.notifier.Cancel(change.TaskID)
		}
		utils.TrackRemoteChange(change.Type)
	}
	return nil
}

// Listen consumes the remote change stream until the context is cancelled.
// Notifications are applied to completion, one at a time, in delivery
// order.
func (e *SyncEngine) Listen(ctx context.Context, userID string) error {
	changes, err := e.remote.Watch(ctx, userID)
	if err != nil {
		utils.TrackError("sync", "watch_failed")
		return fmt.Errorf("remote watch failed: %w", err)
	}

	go func() {
		for change := range changes {
			if err := e.ApplyChange(ctx, change); err != nil {
				utils.TrackError("sync", "change_apply_failed")
				log.Printf("Failed to apply remote change for task %s: %v", change.TaskID, err)
			}
		}
	}()
	return nil
}

// mergeRemote resolves one document. It returns the task to persist, or
// nil when local state stands: a strictly newer remote UpdatedAt wins,
// ties keep local to avoid oscillation.
func mergeRemote(local, remote *model.Task) *model.Task {
	if local == nil {
		return remote.Clone()
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		local.ApplyRemote(remote)
		return local
	}
	return nil
}
