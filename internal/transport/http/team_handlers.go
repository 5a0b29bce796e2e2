package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/service/teams"
)

// TeamHandlers provides HTTP handlers for team endpoints.
type TeamHandlers struct {
	teams *teams.Service
	log   *zerolog.Logger
}

// NewTeamHandlers creates a new team handlers instance.
func NewTeamHandlers(teamSvc *teams.Service, logger *zerolog.Logger) *TeamHandlers {
	return &TeamHandlers{teams: teamSvc, log: logger}
}

// CreateTeamRequest represents the create team request body.
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description,omitempty"`
}

// JoinTeamRequest joins a team by join code or id.
type JoinTeamRequest struct {
	Code string `json:"code" binding:"required"`
}

// Create handles team creation.
// POST /api/teams
func (h *TeamHandlers) Create(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create team request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	team, err := h.teams.Create(c.Request.Context(), principalFrom(c), req.Name, req.Description)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// ListMine lists the caller's teams.
// GET /api/teams
func (h *TeamHandlers) ListMine(c *gin.Context) {
	list, err := h.teams.ListMine(c.Request.Context(), principalFrom(c))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Join adds the caller to a team by join code or id.
// POST /api/teams/join
func (h *TeamHandlers) Join(c *gin.Context) {
	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join team request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	team, err := h.teams.Join(c.Request.Context(), principalFrom(c), req.Code)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// Get retrieves a team by id or join code.
// GET /api/teams/:teamId
func (h *TeamHandlers) Get(c *gin.Context) {
	team, err := h.teams.Get(c.Request.Context(), principalFrom(c), c.Param("teamId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// Delete removes a team.
// DELETE /api/teams/:teamId
func (h *TeamHandlers) Delete(c *gin.Context) {
	if err := h.teams.Delete(c.Request.Context(), principalFrom(c), c.Param("teamId")); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "team deleted"})
}
