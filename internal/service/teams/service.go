package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/proto"
	"github.com/taskwire/taskwire-server/internal/store"
	"github.com/taskwire/taskwire-server/internal/utils"
)

// Service owns team mutations. Both the REST handlers and the websocket
// event handlers call the same method for a given mutation, so authorization
// and broadcasting live in exactly one place.
type Service struct {
	store store.Store
	bcast *core.Broadcaster
	log   *zerolog.Logger
}

// NewService creates a team service.
func NewService(st store.Store, bcast *core.Broadcaster, logger *zerolog.Logger) *Service {
	return &Service{store: st, bcast: bcast, log: logger}
}

// Create makes a new team with the actor as its admin member and announces
// it to every connected session so prospective joiners see it.
func (s *Service) Create(ctx context.Context, actor *core.Principal, name, description string) (*store.Team, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.Invalid("team name is required")
	}

	now := time.Now().UTC()
	team := &store.Team{
		ID:          utils.NewID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Code:        utils.NewTeamCode(),
		Members:     []store.TeamMember{{UserID: actor.ID, Role: store.RoleAdmin}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	activity := s.appendActivity(ctx, actor, team.ID, "team_created",
		fmt.Sprintf("%s created team %q", actor.Name, team.Name),
		map[string]any{"teamId": team.ID})

	s.bcast.EmitGlobal(proto.EventTeamCreated, team)
	if activity != nil {
		s.bcast.Emit(team.ID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return team, nil
}

// Join adds the actor to a team addressed by id or join code. Joining a team
// twice is rejected without touching the member list.
func (s *Service) Join(ctx context.Context, actor *core.Principal, teamRef string) (*store.Team, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	team, err := s.Resolve(ctx, teamRef)
	if err != nil {
		return nil, err
	}
	if team.HasMember(actor.ID) {
		return nil, core.AlreadyMember("already a member of this team")
	}

	if err := s.store.AddTeamMember(ctx, team.ID, store.TeamMember{UserID: actor.ID, Role: store.RoleMember}); err != nil {
		return nil, fmt.Errorf("add team member: %w", err)
	}
	team, err = s.store.GetTeamByID(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("reload team: %w", err)
	}

	activity := s.appendActivity(ctx, actor, team.ID, "team_member_joined",
		fmt.Sprintf("%s joined team %q", actor.Name, team.Name),
		map[string]any{"teamId": team.ID, "userId": actor.ID})

	s.bcast.Emit(team.ID, proto.EventTeamUpdated, proto.TeamUpdated{TeamID: team.ID, Members: team.Members})
	if activity != nil {
		s.bcast.Emit(team.ID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return team, nil
}

// Delete removes a team. Allowed for global admins and the team's own admin
// members.
func (s *Service) Delete(ctx context.Context, actor *core.Principal, teamRef string) error {
	if actor == nil {
		return core.Unauthorized("authentication required")
	}
	team, err := s.Resolve(ctx, teamRef)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && team.MemberRole(actor.ID) != store.RoleAdmin {
		return core.Forbidden("only team admins can delete a team")
	}

	if err := s.store.DeleteTeam(ctx, team.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("team not found")
		}
		return fmt.Errorf("delete team: %w", err)
	}

	activity := s.appendActivity(ctx, actor, team.ID, "team_deleted",
		fmt.Sprintf("%s deleted team %q", actor.Name, team.Name),
		map[string]any{"teamId": team.ID})

	s.bcast.EmitGlobal(proto.EventTeamDeleted, proto.TeamDeleted{TeamID: team.ID})
	if activity != nil {
		s.bcast.Emit(team.ID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return nil
}

// ListMine lists the actor's teams.
func (s *Service) ListMine(ctx context.Context, actor *core.Principal) ([]*store.Team, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	teams, err := s.store.ListTeamsByMember(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// Get retrieves a team by id or join code.
func (s *Service) Get(ctx context.Context, actor *core.Principal, teamRef string) (*store.Team, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	return s.Resolve(ctx, teamRef)
}

// Resolve accepts either a team's persistent id or its human-readable join
// code ("TEAM-xxxxxx", case-insensitive) and returns the team.
func (s *Service) Resolve(ctx context.Context, teamRef string) (*store.Team, error) {
	teamRef = strings.TrimSpace(teamRef)
	if teamRef == "" {
		return nil, core.Invalid("team id or code is required")
	}
	if strings.HasPrefix(strings.ToUpper(teamRef), "TEAM-") {
		team, err := s.store.GetTeamByCode(ctx, teamRef)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, core.NotFound("team not found for given code")
			}
			return nil, fmt.Errorf("get team by code: %w", err)
		}
		return team, nil
	}
	team, err := s.store.GetTeamByID(ctx, teamRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("team not found")
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

func (s *Service) appendActivity(ctx context.Context, actor *core.Principal, teamID, kind, message string, meta map[string]any) *store.Activity {
	activity := &store.Activity{
		ID:        utils.NewID(),
		TeamID:    teamID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Type:      kind,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendActivity(ctx, activity); err != nil {
		// The mutation already happened; losing one audit row is not fatal.
		s.log.Error().Err(err).Str("type", kind).Msg("append activity failed")
		return nil
	}
	return activity
}
