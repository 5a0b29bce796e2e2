package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/service/projects"
)

// ProjectHandlers provides HTTP handlers for project endpoints.
type ProjectHandlers struct {
	projects *projects.Service
	log      *zerolog.Logger
}

// NewProjectHandlers creates a new project handlers instance.
func NewProjectHandlers(projectSvc *projects.Service, logger *zerolog.Logger) *ProjectHandlers {
	return &ProjectHandlers{projects: projectSvc, log: logger}
}

// CreateProjectRequest represents the create project request body.
// TeamID accepts either a team id or a TEAM- join code.
type CreateProjectRequest struct {
	TeamID      string `json:"teamId" binding:"required"`
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description,omitempty"`
}

// Create handles project creation.
// POST /api/projects
func (h *ProjectHandlers) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create project request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	project, err := h.projects.Create(c.Request.Context(), principalFrom(c), req.TeamID, req.Name, req.Description)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListByTeam lists a team's projects.
// GET /api/projects/team/:teamId
func (h *ProjectHandlers) ListByTeam(c *gin.Context) {
	list, err := h.projects.ListByTeam(c.Request.Context(), principalFrom(c), c.Param("teamId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
