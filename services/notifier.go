package services

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindme/model"
	"remindme/utils"
)

// Notifier is the notification boundary. Schedule is a no-op unless the
// task carries a specific clock time in the future.
type Notifier interface {
	Schedule(task *model.Task)
	Cancel(taskID string)
	Update(task *model.Task)
}

// DeliverFunc receives a task whose reminder came due.
type DeliverFunc func(task *model.Task)

// ReminderDispatcher implements Notifier with a cron-driven sweep: pending
// reminders are held in memory and delivered once their instant passes.
type ReminderDispatcher struct {
	mu      sync.Mutex
	pending map[string]*model.Task
	deliver DeliverFunc
	cron    *cron.Cron
	now     func() time.Time
}

// NewReminderDispatcher builds a dispatcher sweeping at the given interval.
// A nil deliver falls back to logging.
func NewReminderDispatcher(sweepInterval time.Duration, deliver DeliverFunc) *ReminderDispatcher {
	if deliver == nil {
		deliver = func(task *model.Task) {
			log.Printf("Reminder due: %q (task %s)", task.Title, task.TaskID)
		}
	}
	d := &ReminderDispatcher{
		pending: make(map[string]*model.Task),
		deliver: deliver,
		cron:    cron.New(cron.WithSeconds()),
		now:     time.Now,
	}

	seconds := int(sweepInterval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	spec := "@every " + time.Duration(seconds*int(time.Second)).String()
	if _, err := d.cron.AddFunc(spec, d.Sweep); err != nil {
		log.Printf("Failed to register reminder sweep: %v", err)
	}
	return d
}

func (d *ReminderDispatcher) Start() {
	d.cron.Start()
}

func (d *ReminderDispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// Schedule registers a reminder for the task. Tasks without a specific
// time, without a date, or already past due are ignored.
func (d *ReminderDispatcher) Schedule(task *model.Task) {
	if task == nil || !task.HasSpecificTime || task.ScheduledDate == nil {
		return
	}
	if !task.ScheduledDate.After(d.now()) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[task.TaskID] = task.Clone()
}

func (d *ReminderDispatcher) Cancel(taskID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, taskID)
}

// Update replaces any pending reminder for the task.
func (d *ReminderDispatcher) Update(task *model.Task) {
	if task == nil {
		return
	}
	d.Cancel(task.TaskID)
	d.Schedule(task)
}

// Sweep delivers every pending reminder whose instant has passed. The cron
// job calls it periodically; tests call it directly.
func (d *ReminderDispatcher) Sweep() {
	now := d.now()

	d.mu.Lock()
	var due []*model.Task
	for id, task := range d.pending {
		if !task.ScheduledDate.After(now) {
			due = append(due, task)
			delete(d.pending, id)
		}
	}
	d.mu.Unlock()

	for _, task := range due {
		d.deliver(task)
		utils.RemindersDelivered.Inc()
	}
}
