package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/store"
	"github.com/taskwire/taskwire-server/internal/store/sqlite"
	"github.com/taskwire/taskwire-server/internal/utils"
)

type fixture struct {
	svc      *Service
	store    store.Store
	reg      *core.Registry
	observer *core.Session
	team     *store.Team
	project  *store.Project
}

var (
	admin    = &core.Principal{ID: "admin-1", Name: "Root", Role: "admin"}
	creator  = &core.Principal{ID: "creator-1", Name: "Casey", Role: "member"}
	assignee = &core.Principal{ID: "assignee-1", Name: "Sam", Role: "member"}
	outsider = &core.Principal{ID: "outsider-1", Name: "Pat", Role: "member"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	reg := core.NewRegistry()
	bcast := core.NewBroadcaster(reg, &logger)
	svc := NewService(st, bcast, &logger)

	ctx := context.Background()
	now := time.Now().UTC()
	team := &store.Team{
		ID:   utils.NewID(),
		Name: "Platform", Code: utils.NewTeamCode(),
		Members:   []store.TeamMember{{UserID: admin.ID, Role: store.RoleAdmin}},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := st.CreateTeam(ctx, team); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	project := &store.Project{
		ID: utils.NewID(), TeamID: team.ID, Name: "Rollout",
		CreatedBy: admin.ID, CreatedAt: now,
	}
	if err := st.CreateProject(ctx, project); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	observer := core.NewSession("observer", outsider, 16)
	reg.Register(observer)
	reg.Join(observer.ID, team.ID)

	return &fixture{svc: svc, store: st, reg: reg, observer: observer, team: team, project: project}
}

func (f *fixture) seedTask(t *testing.T) *store.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &store.Task{
		ID: utils.NewID(), ProjectID: f.project.ID,
		Title: "Ship it", Status: store.StatusTodo, Priority: store.PriorityMedium,
		AssignedTo: assignee.ID, CreatedBy: creator.ID,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := f.store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func (f *fixture) events(t *testing.T) []core.Event {
	t.Helper()
	var events []core.Event
	for {
		select {
		case ev := <-f.observer.Events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestCreateNormalizesPriorityAndBroadcasts(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.Create(context.Background(), admin, CreateInput{
		ProjectID: f.project.ID,
		Title:     "Ship it",
		Priority:  "HIGH",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != store.PriorityHigh {
		t.Fatalf("priority not normalized: %q", task.Priority)
	}
	if task.Status != store.StatusTodo {
		t.Fatalf("new task not in todo: %q", task.Status)
	}

	events := f.events(t)
	if len(events) != 2 {
		t.Fatalf("expected task_created then activity_created, got %d events", len(events))
	}
	if events[0].Name != "task_created" || events[1].Name != "activity_created" {
		t.Fatalf("unexpected event order: %s, %s", events[0].Name, events[1].Name)
	}
}

func TestCreateRejectsNonAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), creator, CreateInput{
		ProjectID: f.project.ID,
		Title:     "Nope",
	})
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := len(f.events(t)); got != 0 {
		t.Fatalf("rejected create still broadcast %d events", got)
	}
}

func TestCreateUnknownProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), admin, CreateInput{
		ProjectID: "missing",
		Title:     "Ship it",
	})
	if core.CodeOf(err) != core.ErrCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestUpdateAssigneeMayOnlyChangeStatus(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	updated, err := f.svc.Update(context.Background(), assignee, task.ID, map[string]any{"status": "done"})
	if err != nil {
		t.Fatalf("assignee status update: %v", err)
	}
	if updated.Status != store.StatusDone {
		t.Fatalf("status not applied: %q", updated.Status)
	}

	f.events(t) // drain

	_, err = f.svc.Update(context.Background(), assignee, task.ID, map[string]any{"title": "hijacked"})
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden for assignee title change, got %v", err)
	}
	if got := len(f.events(t)); got != 0 {
		t.Fatalf("rejected update still broadcast %d events", got)
	}
}

func TestUpdateRejectsWholeBatchOnDisallowedField(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	// status alone is fine for the assignee, but the batch carries title too.
	_, err := f.svc.Update(context.Background(), assignee, task.ID, map[string]any{
		"status": "done",
		"title":  "hijacked",
	})
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	stored, err := f.store.GetTaskByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if stored.Status != store.StatusTodo || stored.Title != "Ship it" {
		t.Fatalf("rejected update partially applied: %q %q", stored.Status, stored.Title)
	}
}

func TestUpdateCreatorFields(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	updated, err := f.svc.Update(context.Background(), creator, task.ID, map[string]any{
		"title":       "Ship it v2",
		"description": "with docs",
		"priority":    "low",
	})
	if err != nil {
		t.Fatalf("creator update: %v", err)
	}
	if updated.Title != "Ship it v2" || updated.Priority != store.PriorityLow {
		t.Fatalf("creator fields not applied: %+v", updated)
	}

	_, err = f.svc.Update(context.Background(), creator, task.ID, map[string]any{"status": "done"})
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden for creator status change, got %v", err)
	}
}

func TestUpdateAdminMayChangeEverything(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	updated, err := f.svc.Update(context.Background(), admin, task.ID, map[string]any{
		"status":     "review",
		"assignedTo": outsider.ID,
		"dueDate":    "2026-09-01T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Status != store.StatusReview || updated.AssignedTo != outsider.ID {
		t.Fatalf("admin fields not applied: %+v", updated)
	}
	if updated.DueDate == nil || updated.DueDate.Day() != 1 {
		t.Fatalf("dueDate not parsed: %v", updated.DueDate)
	}
}

func TestUpdateUnknownFieldIsInvalid(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	_, err := f.svc.Update(context.Background(), admin, task.ID, map[string]any{"color": "red"})
	if core.CodeOf(err) != core.ErrCodeValidationFailed {
		t.Fatalf("expected validation_failed, got %v", err)
	}
}

func TestUpdateNonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	_, err := f.svc.Update(context.Background(), outsider, task.ID, map[string]any{"status": "done"})
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := len(f.events(t)); got != 0 {
		t.Fatalf("rejected update still broadcast %d events", got)
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), admin, "missing", map[string]any{"status": "done"})
	if core.CodeOf(err) != core.ErrCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if got := len(f.events(t)); got != 0 {
		t.Fatalf("missing task update still broadcast %d events", got)
	}
}

func TestDeleteByCreatorBroadcastsToTeamRoom(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	if err := f.svc.Delete(context.Background(), creator, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	events := f.events(t)
	if len(events) != 2 || events[0].Name != "task_deleted" {
		t.Fatalf("unexpected delete events: %+v", events)
	}

	_, err := f.store.GetTaskByID(context.Background(), task.ID)
	if err == nil {
		t.Fatal("task still present after delete")
	}
}

func TestDeleteByAssigneeForbidden(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	err := f.svc.Delete(context.Background(), assignee, task.ID)
	if core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListByProjectScopesNonAdmins(t *testing.T) {
	f := newFixture(t)
	f.seedTask(t) // creator creator-1, assignee assignee-1

	all, err := f.svc.ListByProject(context.Background(), admin, f.project.ID)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("admin expected 1 task, got %d", len(all))
	}

	mine, err := f.svc.ListByProject(context.Background(), outsider, f.project.ID)
	if err != nil {
		t.Fatalf("outsider list: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("outsider should see no tasks, got %d", len(mine))
	}
}

func TestTeamRoomOfResolvesThroughProject(t *testing.T) {
	f := newFixture(t)
	task := f.seedTask(t)

	roomID, err := f.svc.TeamRoomOf(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("team room of: %v", err)
	}
	if roomID != f.team.ID {
		t.Fatalf("expected room %s, got %s", f.team.ID, roomID)
	}
}
