package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/service/teams"
)

// PresenceHandlers exposes who is online in a team's room right now.
type PresenceHandlers struct {
	teams *teams.Service
	rt    Realtime
	log   *zerolog.Logger
}

// NewPresenceHandlers creates a new presence handlers instance.
func NewPresenceHandlers(teamSvc *teams.Service, rt Realtime, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{teams: teamSvc, rt: rt, log: logger}
}

// OnlineUser is one distinct connected member of a room.
type OnlineUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Online lists the distinct users currently connected to the team's room.
// GET /api/teams/:teamId/online
func (h *PresenceHandlers) Online(c *gin.Context) {
	team, err := h.teams.Resolve(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	principals := h.rt.Presence.OnlineInRoom(h.rt.Registry, team.ID)
	online := make([]OnlineUser, 0, len(principals))
	for _, p := range principals {
		online = append(online, OnlineUser{ID: p.ID, Name: p.Name})
	}
	c.JSON(http.StatusOK, online)
}
