package model

import "time"

type Task struct {
	TaskID          string          `bson:"_id" json:"id"`
	UserID          string          `bson:"user_id" json:"user_id"`
	Title           string          `bson:"title" json:"title"`
	RawInput        string          `bson:"raw_input" json:"raw_input"`
	ScheduledDate   *time.Time      `bson:"scheduled_date,omitempty" json:"scheduled_date,omitempty"`
	HasSpecificTime bool            `bson:"has_specific_time" json:"has_specific_time"`
	Recurrence      *RecurrenceRule `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	IsCompleted     bool            `bson:"is_completed" json:"is_completed"`
	CompletedAt     *time.Time      `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
	SortOrder       int64           `bson:"sort_order" json:"sort_order"`
}

// Clone returns a deep copy so stored instances never alias caller state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.ScheduledDate != nil {
		d := *t.ScheduledDate
		clone.ScheduledDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		clone.CompletedAt = &d
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		if t.Recurrence.DaysOfWeek != nil {
			r.DaysOfWeek = append([]int(nil), t.Recurrence.DaysOfWeek...)
		}
		if t.Recurrence.EndDate != nil {
			e := *t.Recurrence.EndDate
			r.EndDate = &e
		}
		clone.Recurrence = &r
	}
	return &clone
}

// ApplyRemote copies every synced field from a remote document onto the
// task, preserving the local identity.
func (t *Task) ApplyRemote(remote *Task) {
	id := t.TaskID
	*t = *remote.Clone()
	t.TaskID = id
}
