package dto

import (
	"time"

	"remindme/model"
)

type RecurrenceResponse struct {
	Frequency   model.Frequency `json:"frequency"`
	Interval    int             `json:"interval"`
	DaysOfWeek  []int           `json:"days_of_week,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	DisplayName string          `json:"display_name"`
}

type TaskResponse struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	RawInput        string              `json:"raw_input"`
	ScheduledDate   *time.Time          `json:"scheduled_date,omitempty"`
	HasSpecificTime bool                `json:"has_specific_time"`
	Recurrence      *RecurrenceResponse `json:"recurrence,omitempty"`
	IsCompleted     bool                `json:"is_completed"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	SortOrder       int64               `json:"sort_order"`
}

func ToTaskResponse(task *model.Task) TaskResponse {
	response := TaskResponse{
		ID:              task.TaskID,
		Title:           task.Title,
		RawInput:        task.RawInput,
		ScheduledDate:   task.ScheduledDate,
		HasSpecificTime: task.HasSpecificTime,
		IsCompleted:     task.IsCompleted,
		CompletedAt:     task.CompletedAt,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
		SortOrder:       task.SortOrder,
	}
	if task.Recurrence != nil {
		rule := *task.Recurrence
		response.Recurrence = &RecurrenceResponse{
			Frequency:   rule.Frequency,
			Interval:    rule.Interval,
			DaysOfWeek:  rule.DaysOfWeek,
			EndDate:     rule.EndDate,
			DisplayName: rule.DisplayName(),
		}
	}
	return response
}

func ToTaskResponses(tasks []*model.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, ToTaskResponse(task))
	}
	return responses
}
