package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/service/tasks"
)

// TaskHandlers provides HTTP handlers for task endpoints.
type TaskHandlers struct {
	tasks *tasks.Service
	log   *zerolog.Logger
}

// NewTaskHandlers creates a new task handlers instance.
func NewTaskHandlers(taskSvc *tasks.Service, logger *zerolog.Logger) *TaskHandlers {
	return &TaskHandlers{tasks: taskSvc, log: logger}
}

// CreateTaskRequest represents the create task request body.
type CreateTaskRequest struct {
	ProjectID   string     `json:"projectId" binding:"required"`
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Create handles task creation.
// POST /api/tasks
func (h *TaskHandlers) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create task request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), principalFrom(c), tasks.CreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update applies a field-update map to a task.
// PATCH /api/tasks/:taskId
func (h *TaskHandlers) Update(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.log.Debug().Err(err).Msg("invalid update task request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), principalFrom(c), c.Param("taskId"), updates)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete removes a task.
// DELETE /api/tasks/:taskId
func (h *TaskHandlers) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), principalFrom(c), c.Param("taskId")); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// ListByProject lists a project's tasks.
// GET /api/tasks/project/:projectId
func (h *TaskHandlers) ListByProject(c *gin.Context) {
	list, err := h.tasks.ListByProject(c.Request.Context(), principalFrom(c), c.Param("projectId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
