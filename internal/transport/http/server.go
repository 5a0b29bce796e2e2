package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/auth"
	"github.com/taskwire/taskwire-server/internal/config"
	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/service/activity"
	"github.com/taskwire/taskwire-server/internal/service/projects"
	"github.com/taskwire/taskwire-server/internal/service/tasks"
	"github.com/taskwire/taskwire-server/internal/service/teams"
)

// Services bundles the domain services the transport exposes.
type Services struct {
	Auth     *auth.Service
	Teams    *teams.Service
	Projects *projects.Service
	Tasks    *tasks.Service
	Activity *activity.Service
}

// Realtime bundles the shared realtime core handed to the websocket handler.
type Realtime struct {
	Registry  *core.Registry
	Broadcast *core.Broadcaster
	Presence  *core.Presence
}

// NewServer builds the HTTP server: REST API, health check, and the
// websocket endpoint.
func NewServer(svcs Services, rt Realtime, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(svcs.Auth, logger)
	engine.POST("/api/auth/register", apiHandlers.Register)
	engine.POST("/api/auth/login", apiHandlers.Login)

	authed := engine.Group("/api", AuthMiddleware(svcs.Auth, logger))
	{
		teamHandlers := NewTeamHandlers(svcs.Teams, logger)
		authed.POST("/teams", teamHandlers.Create)
		authed.GET("/teams", teamHandlers.ListMine)
		authed.POST("/teams/join", teamHandlers.Join)
		authed.GET("/teams/:teamId", teamHandlers.Get)
		authed.DELETE("/teams/:teamId", teamHandlers.Delete)

		presenceHandlers := NewPresenceHandlers(svcs.Teams, rt, logger)
		authed.GET("/teams/:teamId/online", presenceHandlers.Online)

		projectHandlers := NewProjectHandlers(svcs.Projects, logger)
		authed.POST("/projects", projectHandlers.Create)
		authed.GET("/projects/team/:teamId", projectHandlers.ListByTeam)

		taskHandlers := NewTaskHandlers(svcs.Tasks, logger)
		authed.POST("/tasks", taskHandlers.Create)
		authed.GET("/tasks/project/:projectId", taskHandlers.ListByProject)
		authed.PATCH("/tasks/:taskId", taskHandlers.Update)
		authed.DELETE("/tasks/:taskId", taskHandlers.Delete)

		activityHandlers := NewActivityHandlers(svcs.Activity, logger)
		authed.GET("/activity/team/:teamId", activityHandlers.ListByTeam)
		authed.GET("/activity/project/:projectId", activityHandlers.ListByProject)
	}

	engine.GET("/ws", gin.WrapH(NewWSHandler(svcs, rt, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
