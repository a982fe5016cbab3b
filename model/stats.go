package model

type TaskStats struct {
	// Basic counts
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`

	// Schedule based counts
	Overdue          int `json:"overdue"`
	DueToday         int `json:"due_today"`
	Inbox            int `json:"inbox"` // No scheduled date
	WithSpecificTime int `json:"with_specific_time"`
	Recurring        int `json:"recurring"`
}
