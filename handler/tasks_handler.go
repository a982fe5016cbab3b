package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"remindme/dto"
	"remindme/model"
	"remindme/usecase"
	"remindme/utils"
)

type TaskHandler struct {
	service *usecase.TaskService
	engine  *usecase.SyncEngine
}

func NewTaskHandler(service *usecase.TaskService, engine *usecase.SyncEngine) *TaskHandler {
	return &TaskHandler{service: service, engine: engine}
}

// CreateTask turns free-form text into a structured task.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.service.CreateFromText(c.Request.Context(), userID.(string), req.Text)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	utils.Created(c, dto.ToTaskResponse(task))
}

// ListTasks returns the user's tasks in manual order.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	tasks, err := h.service.List(c.Request.Context(), userID.(string))
	if err != nil {
		utils.InternalError(c, "Failed to list tasks")
		return
	}

	utils.Success(c, gin.H{"tasks": dto.ToTaskResponses(tasks)})
}

// UpdateTask edits a task's title, schedule or recurrence.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var req struct {
		Title           *string               `json:"title"`
		ScheduledDate   *time.Time            `json:"scheduled_date"`
		ClearSchedule   bool                  `json:"clear_schedule"`
		HasSpecificTime *bool                 `json:"has_specific_time"`
		Recurrence      *model.RecurrenceRule `json:"recurrence"`
		ClearRecurrence bool                  `json:"clear_recurrence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Recurrence != nil {
		if !validRecurrence(req.Recurrence) {
			utils.BadRequest(c, "Invalid recurrence rule")
			return
		}
	}

	task, err := h.service.Update(c.Request.Context(), userID.(string), c.Param("id"), usecase.TaskUpdate{
		Title:           req.Title,
		ScheduledDate:   req.ScheduledDate,
		ClearSchedule:   req.ClearSchedule,
		HasSpecificTime: req.HasSpecificTime,
		Recurrence:      req.Recurrence,
		ClearRecurrence: req.ClearRecurrence,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrTaskNotFound) {
			utils.NotFound(c, "Task not found")
			return
		}
		utils.InternalError(c, "Failed to update task")
		return
	}

	utils.Success(c, dto.ToTaskResponse(task))
}

// ToggleTask flips completion state; completing a recurring task rolls it
// forward to its next occurrence instead.
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	task, err := h.service.Toggle(c.Request.Context(), userID.(string), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrTaskNotFound) {
			utils.NotFound(c, "Task not found")
			return
		}
		utils.InternalError(c, "Failed to toggle task")
		return
	}

	utils.Success(c, dto.ToTaskResponse(task))
}

// MoveTask assigns a new manual sort position.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var req struct {
		SortOrder int64 `json:"sort_order" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.service.Reorder(c.Request.Context(), userID.(string), c.Param("id"), req.SortOrder)
	if err != nil {
		if errors.Is(err, usecase.ErrTaskNotFound) {
			utils.NotFound(c, "Task not found")
			return
		}
		utils.InternalError(c, "Failed to move task")
		return
	}

	utils.Success(c, dto.ToTaskResponse(task))
}

// DeleteTask removes a task locally and remotely.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	err := h.service.Delete(c.Request.Context(), userID.(string), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrTaskNotFound) {
			utils.NotFound(c, "Task not found")
			return
		}
		utils.InternalError(c, "Failed to delete task")
		return
	}

	utils.Success(c, gin.H{"message": "task deleted"})
}

// SyncTasks runs a full reconciliation pass against the remote store.
func (h *TaskHandler) SyncTasks(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	if err := h.engine.ForceSync(c.Request.Context(), userID.(string)); err != nil {
		if errors.Is(err, usecase.ErrSyncInProgress) {
			utils.Conflict(c, "Sync already in progress")
			return
		}
		utils.InternalError(c, "Sync failed: "+err.Error())
		return
	}

	utils.Success(c, gin.H{"message": "sync complete"})
}

// TaskStats summarizes the user's collection.
func (h *TaskHandler) TaskStats(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), userID.(string))
	if err != nil {
		utils.InternalError(c, "Failed to compute stats")
		return
	}

	utils.Success(c, stats)
}

func validRecurrence(rule *model.RecurrenceRule) bool {
	switch rule.Frequency {
	case model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyMonthly, model.FrequencyYearly:
	default:
		return false
	}
	if rule.Interval < 1 {
		return false
	}
	for _, day := range rule.DaysOfWeek {
		if day < model.WeekdaySunday || day > model.WeekdaySaturday {
			return false
		}
	}
	return true
}
