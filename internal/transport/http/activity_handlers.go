package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/service/activity"
)

// ActivityHandlers provides HTTP handlers for the activity feed.
type ActivityHandlers struct {
	activity *activity.Service
	log      *zerolog.Logger
}

// NewActivityHandlers creates a new activity handlers instance.
func NewActivityHandlers(activitySvc *activity.Service, logger *zerolog.Logger) *ActivityHandlers {
	return &ActivityHandlers{activity: activitySvc, log: logger}
}

// ListByTeam returns a team's recent activity, newest first.
// GET /api/activity/team/:teamId
func (h *ActivityHandlers) ListByTeam(c *gin.Context) {
	list, err := h.activity.ListByTeam(c.Request.Context(), principalFrom(c), c.Param("teamId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListByProject returns a project's recent activity, newest first.
// GET /api/activity/project/:projectId
func (h *ActivityHandlers) ListByProject(c *gin.Context) {
	list, err := h.activity.ListByProject(c.Request.Context(), principalFrom(c), c.Param("projectId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
