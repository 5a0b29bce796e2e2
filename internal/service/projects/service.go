package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/proto"
	"github.com/taskwire/taskwire-server/internal/service/teams"
	"github.com/taskwire/taskwire-server/internal/store"
	"github.com/taskwire/taskwire-server/internal/utils"
)

// Service owns project mutations, shared by REST and websocket entry points.
type Service struct {
	store store.Store
	teams *teams.Service
	bcast *core.Broadcaster
	log   *zerolog.Logger
}

// NewService creates a project service.
func NewService(st store.Store, teamSvc *teams.Service, bcast *core.Broadcaster, logger *zerolog.Logger) *Service {
	return &Service{store: st, teams: teamSvc, bcast: bcast, log: logger}
}

// Create makes a new project under a team addressed by id or join code.
// Admins only.
func (s *Service) Create(ctx context.Context, actor *core.Principal, teamRef, name, description string) (*store.Project, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return nil, core.Forbidden("only admins can create projects")
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(teamRef) == "" {
		return nil, core.Invalid("team and project name are required")
	}

	team, err := s.teams.Resolve(ctx, teamRef)
	if err != nil {
		return nil, err
	}

	project := &store.Project{
		ID:          utils.NewID(),
		TeamID:      team.ID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   actor.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	activity := &store.Activity{
		ID:        utils.NewID(),
		TeamID:    team.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Type:      "project_created",
		Message:   fmt.Sprintf("%s created project %q", actor.Name, project.Name),
		Meta:      map[string]any{"projectId": project.ID, "teamId": team.ID},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendActivity(ctx, activity); err != nil {
		s.log.Error().Err(err).Str("project_id", project.ID).Msg("append activity failed")
		activity = nil
	}

	s.bcast.Emit(team.ID, proto.EventProjectCreated, project)
	if activity != nil {
		s.bcast.Emit(team.ID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return project, nil
}

// ListByTeam lists a team's projects; the team may be addressed by id or code.
func (s *Service) ListByTeam(ctx context.Context, actor *core.Principal, teamRef string) ([]*store.Project, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	team, err := s.teams.Resolve(ctx, teamRef)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjectsByTeam(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get retrieves a project by id.
func (s *Service) Get(ctx context.Context, actor *core.Principal, id string) (*store.Project, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	project, err := s.store.GetProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("project not found")
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}
