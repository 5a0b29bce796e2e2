package http

import (
	"net/http"
	"testing"

	"github.com/taskwire/taskwire-server/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	ts := startTestServer(t)

	token := registerUser(t, ts, "Ada", "ada@example.com", "member")
	if token == "" {
		t.Fatal("empty token")
	}

	// Duplicate email conflicts.
	doJSON(t, ts, "POST", "/api/auth/register", "", map[string]string{
		"name": "Eve", "email": "ada@example.com", "password": "secret2",
	}, http.StatusConflict, nil)

	login := AuthResponse{}
	doJSON(t, ts, "POST", "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	}, http.StatusOK, &login)
	if login.User == nil || login.User.Email != "ada@example.com" {
		t.Fatalf("unexpected login user: %+v", login.User)
	}

	doJSON(t, ts, "POST", "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	}, http.StatusUnauthorized, nil)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := startTestServer(t)

	doJSON(t, ts, "GET", "/api/teams", "", nil, http.StatusUnauthorized, nil)
	doJSON(t, ts, "GET", "/api/teams", "not-a-jwt", nil, http.StatusUnauthorized, nil)
}

func TestTeamLifecycleOverREST(t *testing.T) {
	ts := startTestServer(t)

	founder := registerUser(t, ts, "Fran", "fran@example.com", "member")
	joiner := registerUser(t, ts, "Joe", "joe@example.com", "member")

	team := createTeam(t, ts, founder, "Platform")
	if team.Code == "" {
		t.Fatal("team has no join code")
	}

	joined := &store.Team{}
	doJSON(t, ts, "POST", "/api/teams/join", joiner, map[string]string{"code": team.Code}, http.StatusOK, joined)
	if len(joined.Members) != 2 {
		t.Fatalf("expected 2 members after join, got %d", len(joined.Members))
	}

	// Second join conflicts.
	doJSON(t, ts, "POST", "/api/teams/join", joiner, map[string]string{"code": team.Code}, http.StatusConflict, nil)

	// Plain member cannot delete the team.
	doJSON(t, ts, "DELETE", "/api/teams/"+team.ID, joiner, nil, http.StatusForbidden, nil)
	doJSON(t, ts, "DELETE", "/api/teams/"+team.ID, founder, nil, http.StatusOK, nil)
	doJSON(t, ts, "GET", "/api/teams/"+team.ID, founder, nil, http.StatusNotFound, nil)
}

func TestTaskEndpointsEnforceRoles(t *testing.T) {
	ts := startTestServer(t)

	adminToken := registerUser(t, ts, "Root", "root@example.com", "admin")
	memberToken := registerUser(t, ts, "Mia", "mia@example.com", "member")

	team := createTeam(t, ts, adminToken, "Platform")
	project := createProject(t, ts, adminToken, team.ID, "Rollout")

	// Only admins create projects and tasks.
	doJSON(t, ts, "POST", "/api/projects", memberToken, map[string]string{
		"teamId": team.ID, "name": "Side",
	}, http.StatusForbidden, nil)
	doJSON(t, ts, "POST", "/api/tasks", memberToken, map[string]string{
		"projectId": project.ID, "title": "Nope",
	}, http.StatusForbidden, nil)

	task := &store.Task{}
	doJSON(t, ts, "POST", "/api/tasks", adminToken, map[string]any{
		"projectId": project.ID, "title": "Ship it", "priority": "HIGH",
	}, http.StatusCreated, task)
	if task.Priority != store.PriorityHigh {
		t.Fatalf("priority not normalized: %q", task.Priority)
	}

	// A member with no stake in the task cannot touch it.
	doJSON(t, ts, "PATCH", "/api/tasks/"+task.ID, memberToken, map[string]any{
		"status": "done",
	}, http.StatusForbidden, nil)

	updated := &store.Task{}
	doJSON(t, ts, "PATCH", "/api/tasks/"+task.ID, adminToken, map[string]any{
		"status": "review",
	}, http.StatusOK, updated)
	if updated.Status != store.StatusReview {
		t.Fatalf("status not applied: %q", updated.Status)
	}

	doJSON(t, ts, "PATCH", "/api/tasks/"+task.ID, adminToken, map[string]any{
		"color": "red",
	}, http.StatusBadRequest, nil)
	doJSON(t, ts, "PATCH", "/api/tasks/missing", adminToken, map[string]any{
		"status": "done",
	}, http.StatusNotFound, nil)

	doJSON(t, ts, "DELETE", "/api/tasks/"+task.ID, adminToken, nil, http.StatusOK, nil)
	doJSON(t, ts, "DELETE", "/api/tasks/"+task.ID, adminToken, nil, http.StatusNotFound, nil)
}

func TestActivityFeedOverREST(t *testing.T) {
	ts := startTestServer(t)

	adminToken := registerUser(t, ts, "Root", "root@example.com", "admin")
	team := createTeam(t, ts, adminToken, "Platform")
	project := createProject(t, ts, adminToken, team.ID, "Rollout")
	doJSON(t, ts, "POST", "/api/tasks", adminToken, map[string]any{
		"projectId": project.ID, "title": "Ship it",
	}, http.StatusCreated, nil)

	var byTeam []store.Activity
	doJSON(t, ts, "GET", "/api/activity/team/"+team.ID, adminToken, nil, http.StatusOK, &byTeam)
	// team_created, project_created, task_created
	if len(byTeam) != 3 {
		t.Fatalf("expected 3 team activities, got %d", len(byTeam))
	}

	var byProject []store.Activity
	doJSON(t, ts, "GET", "/api/activity/project/"+project.ID, adminToken, nil, http.StatusOK, &byProject)
	// project_created and task_created both reference the project.
	if len(byProject) != 2 {
		t.Fatalf("unexpected project activities: %+v", byProject)
	}
}
