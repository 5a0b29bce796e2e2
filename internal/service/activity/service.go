package activity

import (
	"context"
	"fmt"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/store"
)

// Service reads the audit log. Appending happens inside the mutation
// services so every write stays paired with its broadcast.
type Service struct {
	store store.ActivityStore
}

// NewService creates an activity read service.
func NewService(st store.ActivityStore) *Service {
	return &Service{store: st}
}

// ListByTeam returns a team's activity, newest first.
func (s *Service) ListByTeam(ctx context.Context, actor *core.Principal, teamID string) ([]*store.Activity, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	activities, err := s.store.ListActivitiesByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team activity: %w", err)
	}
	return activities, nil
}

// ListByProject returns activity referencing the project, newest first.
func (s *Service) ListByProject(ctx context.Context, actor *core.Principal, projectID string) ([]*store.Activity, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	activities, err := s.store.ListActivitiesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project activity: %w", err)
	}
	return activities, nil
}
