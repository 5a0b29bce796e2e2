package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/auth"
	"github.com/taskwire/taskwire-server/internal/config"
	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/service/activity"
	"github.com/taskwire/taskwire-server/internal/service/projects"
	"github.com/taskwire/taskwire-server/internal/service/tasks"
	"github.com/taskwire/taskwire-server/internal/service/teams"
	"github.com/taskwire/taskwire-server/internal/store"
	"github.com/taskwire/taskwire-server/internal/store/sqlite"
)

// startTestServer spins up the full HTTP surface over an in-memory store.
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	cfg.WS.PingInterval = time.Minute

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      time.Hour,
	})

	reg := core.NewRegistry()
	bcast := core.NewBroadcaster(reg, &logger)
	teamService := teams.NewService(st, bcast, &logger)

	svcs := Services{
		Auth:     authService,
		Teams:    teamService,
		Projects: projects.NewService(st, teamService, bcast, &logger),
		Tasks:    tasks.NewService(st, bcast, &logger),
		Activity: activity.NewService(st),
	}
	rt := Realtime{Registry: reg, Broadcast: bcast, Presence: core.NewPresence()}

	server := NewServer(svcs, rt, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// registerUser creates an account through the REST API and returns the token.
func registerUser(t *testing.T, ts *httptest.Server, name, email, role string) string {
	t.Helper()

	resp := AuthResponse{}
	doJSON(t, ts, "POST", "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1", "role": role,
	}, http.StatusCreated, &resp)
	if resp.Token == "" {
		t.Fatalf("register %s: empty token", email)
	}
	return resp.Token
}

func createTeam(t *testing.T, ts *httptest.Server, token, name string) *store.Team {
	t.Helper()
	team := &store.Team{}
	doJSON(t, ts, "POST", "/api/teams", token, map[string]string{"name": name}, http.StatusCreated, team)
	return team
}

func createProject(t *testing.T, ts *httptest.Server, token, teamID, name string) *store.Project {
	t.Helper()
	project := &store.Project{}
	doJSON(t, ts, "POST", "/api/projects", token, map[string]string{
		"teamId": teamID, "name": name,
	}, http.StatusCreated, project)
	return project
}

// doJSON performs one JSON request and decodes the response when out is
// non-nil. Fails the test on an unexpected status.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
}
