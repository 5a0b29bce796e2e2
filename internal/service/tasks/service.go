package tasks

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

// Service owns task mutations. REST handlers and websocket event handlers
// both call into it, so the role matrix and the broadcast sequence are
// implemented once.
type Service struct {
	store store.Store
	bcast *core.Broadcaster
	log   *zerolog.Logger
}

// NewService creates a task service.
func NewService(st store.Store, bcast *core.Broadcaster, logger *zerolog.Logger) *Service {
	return &Service{store: st, bcast: bcast, log: logger}
}

// CreateInput carries the task_create payload.
type CreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Priority    string
	AssignedTo  string
	DueDate     *time.Time
}

// Create makes a new task in a project. Admins only. The priority is
// normalized to lower case and defaults to medium; new tasks start in todo.
func (s *Service) Create(ctx context.Context, actor *core.Principal, in CreateInput) (*store.Task, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return nil, core.Forbidden("only admins can create tasks")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.ProjectID == "" || in.Title == "" {
		return nil, core.Invalid("projectId and title are required")
	}

	project, err := s.store.GetProjectByID(ctx, in.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("project not found")
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &store.Task{
		ID:          utils.NewID(),
		ProjectID:   project.ID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Status:      store.StatusTodo,
		Priority:    priority,
		DueDate:     in.DueDate,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	activity := s.appendActivity(ctx, actor, project.TeamID, "task_created",
		fmt.Sprintf("%s created task %q", actor.Name, task.Title),
		map[string]any{"taskId": task.ID, "projectId": project.ID})

	s.bcast.Emit(project.TeamID, proto.EventTaskCreated, proto.TaskChanged{Task: task, Activity: activity})
	if activity != nil {
		s.bcast.Emit(project.TeamID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return task, nil
}

// Update applies a field-update map to a task under the role matrix:
// admins may change any known field, the creator may change title,
// description and priority, the assignee may change only status. Any field
// outside the actor's allowed set rejects the whole update; nothing is
// partially applied.
func (s *Service) Update(ctx context.Context, actor *core.Principal, taskID string, updates map[string]any) (*store.Task, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	if len(updates) == 0 {
		return nil, core.Invalid("updates are required")
	}

	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("task not found")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	isAdmin := actor.IsAdmin()
	isCreator := task.CreatedBy == actor.ID
	isAssignee := task.AssignedTo != "" && task.AssignedTo == actor.ID
	if !isAdmin && !isCreator && !isAssignee {
		return nil, core.Forbidden("access denied")
	}

	allowed := allowedFields(isAdmin, isCreator, isAssignee)
	fields := make([]string, 0, len(updates))
	for field := range updates {
		if !knownField(field) {
			return nil, core.Invalid(fmt.Sprintf("unknown field %q", field))
		}
		if _, ok := allowed[field]; !ok {
			return nil, core.Forbidden(fmt.Sprintf("not allowed to change %q", field))
		}
		fields = append(fields, field)
	}

	if err := applyUpdates(task, updates); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("task not found")
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	project, err := s.store.GetProjectByID(ctx, task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	activity := s.appendActivity(ctx, actor, project.TeamID, "task_updated",
		fmt.Sprintf("%s updated task %q", actor.Name, task.Title),
		map[string]any{"taskId": task.ID, "projectId": project.ID, "fields": fields})

	s.bcast.Emit(project.TeamID, proto.EventTaskUpdated, proto.TaskChanged{Task: task, Activity: activity})
	if activity != nil {
		s.bcast.Emit(project.TeamID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return task, nil
}

// Delete removes a task. Admins and the task's creator only.
func (s *Service) Delete(ctx context.Context, actor *core.Principal, taskID string) error {
	if actor == nil {
		return core.Unauthorized("authentication required")
	}

	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("task not found")
		}
		return fmt.Errorf("get task: %w", err)
	}
	if !actor.IsAdmin() && task.CreatedBy != actor.ID {
		return core.Forbidden("access denied")
	}

	project, err := s.store.GetProjectByID(ctx, task.ProjectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	if err := s.store.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("task not found")
		}
		return fmt.Errorf("delete task: %w", err)
	}

	activity := s.appendActivity(ctx, actor, project.TeamID, "task_deleted",
		fmt.Sprintf("%s deleted task %q", actor.Name, task.Title),
		map[string]any{"taskId": task.ID, "projectId": project.ID})

	s.bcast.Emit(project.TeamID, proto.EventTaskDeleted, proto.TaskDeleted{TaskID: task.ID, Activity: activity})
	if activity != nil {
		s.bcast.Emit(project.TeamID, proto.EventActivityCreated, proto.ActivityCreated{Activity: activity})
	}
	return nil
}

// ListByProject lists a project's tasks. Non-admins only see tasks they
// created or are assigned to.
func (s *Service) ListByProject(ctx context.Context, actor *core.Principal, projectID string) ([]*store.Task, error) {
	if actor == nil {
		return nil, core.Unauthorized("authentication required")
	}
	if _, err := s.store.GetProjectByID(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("project not found")
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	visibleTo := ""
	if !actor.IsAdmin() {
		visibleTo = actor.ID
	}
	tasks, err := s.store.ListTasksByProject(ctx, projectID, visibleTo)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// TeamRoomOf resolves the broadcast room for a task: task -> project -> team.
func (s *Service) TeamRoomOf(ctx context.Context, taskID string) (string, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", core.NotFound("task not found")
		}
		return "", fmt.Errorf("get task: %w", err)
	}
	project, err := s.store.GetProjectByID(ctx, task.ProjectID)
	if err != nil {
		return "", fmt.Errorf("get project: %w", err)
	}
	return project.TeamID, nil
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
		s.log.Error().Err(err).Str("type", kind).Msg("append activity failed")
		return nil
	}
	return activity
}

func allowedFields(isAdmin, isCreator, isAssignee bool) map[string]struct{} {
	switch {
	case isAdmin:
		return map[string]struct{}{
			"title": {}, "description": {}, "priority": {},
			"status": {}, "assignedTo": {}, "dueDate": {},
		}
	case isCreator:
		return map[string]struct{}{"title": {}, "description": {}, "priority": {}}
	case isAssignee:
		return map[string]struct{}{"status": {}}
	default:
		return nil
	}
}

func knownField(field string) bool {
	switch field {
	case "title", "description", "priority", "status", "assignedTo", "dueDate":
		return true
	}
	return false
}

func applyUpdates(task *store.Task, updates map[string]any) error {
	for field, value := range updates {
		switch field {
		case "title":
			title, ok := value.(string)
			title = strings.TrimSpace(title)
			if !ok || title == "" {
				return core.Invalid("title must be a non-empty string")
			}
			task.Title = title
		case "description":
			desc, ok := value.(string)
			if !ok {
				return core.Invalid("description must be a string")
			}
			task.Description = strings.TrimSpace(desc)
		case "priority":
			raw, ok := value.(string)
			if !ok {
				return core.Invalid("priority must be a string")
			}
			priority, err := normalizePriority(raw)
			if err != nil {
				return err
			}
			task.Priority = priority
		case "status":
			raw, ok := value.(string)
			if !ok {
				return core.Invalid("status must be a string")
			}
			status := store.TaskStatus(raw)
			switch status {
			case store.StatusTodo, store.StatusInProgress, store.StatusReview, store.StatusDone:
				task.Status = status
			default:
				return core.Invalid(fmt.Sprintf("invalid status %q", raw))
			}
		case "assignedTo":
			if value == nil {
				task.AssignedTo = ""
				continue
			}
			userID, ok := value.(string)
			if !ok {
				return core.Invalid("assignedTo must be a string or null")
			}
			task.AssignedTo = userID
		case "dueDate":
			if value == nil {
				task.DueDate = nil
				continue
			}
			raw, ok := value.(string)
			if !ok {
				return core.Invalid("dueDate must be an RFC 3339 string or null")
			}
			due, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return core.Invalid("dueDate must be an RFC 3339 string or null")
			}
			task.DueDate = &due
		}
	}
	return nil
}

func normalizePriority(raw string) (store.TaskPriority, error) {
	if raw == "" {
		return store.PriorityMedium, nil
	}
	priority := store.TaskPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch priority {
	case store.PriorityLow, store.PriorityMedium, store.PriorityHigh:
		return priority, nil
	default:
		return "", core.Invalid(fmt.Sprintf("invalid priority %q", raw))
	}
}
