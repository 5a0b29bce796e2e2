package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/taskwire/taskwire-server/internal/proto"
	"github.com/taskwire/taskwire-server/internal/store"
)

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + token}}
	}
	conn, _, err := websocket.Dial(ctx, wsURL(ts), opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", event, err)
	}
}

type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) wsEvent {
	t.Helper()
	var ev wsEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func expectEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string) wsEvent {
	t.Helper()
	ev := readEvent(t, ctx, conn)
	if ev.Event != name {
		t.Fatalf("expected %s, got %s (%s)", name, ev.Event, ev.Data)
	}
	return ev
}

func TestWSRejectsMissingToken(t *testing.T) {
	ts := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, wsURL(ts), nil); err == nil {
		t.Fatal("handshake without token accepted")
	}
}

func TestWSRejectsInvalidToken(t *testing.T) {
	ts := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, wsURL(ts)+"?token=garbage", nil); err == nil {
		t.Fatal("handshake with invalid token accepted")
	}
}

func TestWSAcceptsTokenInQuery(t *testing.T) {
	ts := startTestServer(t)
	token := registerUser(t, ts, "Ada", "ada@example.com", "member")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts)+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestWSJoinRoomAndTaskBroadcast(t *testing.T) {
	ts := startTestServer(t)

	adminToken := registerUser(t, ts, "Root", "root@example.com", "admin")
	memberToken := registerUser(t, ts, "Mia", "mia@example.com", "member")

	team := createTeam(t, ts, adminToken, "Platform")
	project := createProject(t, ts, adminToken, team.ID, "Rollout")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminConn := dialWS(t, ctx, ts, adminToken)
	memberConn := dialWS(t, ctx, ts, memberToken)

	// Join by invite code to check it lands in the team-id room.
	sendEvent(t, ctx, adminConn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: team.ID})
	sendEvent(t, ctx, memberConn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: strings.ToLower(team.Code)})

	for _, conn := range []*websocket.Conn{adminConn, memberConn} {
		ev := expectEvent(t, ctx, conn, proto.EventJoinedRoomSuccess)
		var ack proto.JoinedRoom
		if err := json.Unmarshal(ev.Data, &ack); err != nil {
			t.Fatalf("decode ack: %v", err)
		}
		if ack.RoomID != team.ID {
			t.Fatalf("ack room %q, want team id %q", ack.RoomID, team.ID)
		}
	}

	sendEvent(t, ctx, adminConn, proto.EventTaskCreate, proto.TaskCreateData{
		ProjectID: project.ID,
		Title:     "Ship it",
		Priority:  "HIGH",
	})

	var task store.Task
	for _, conn := range []*websocket.Conn{adminConn, memberConn} {
		created := expectEvent(t, ctx, conn, proto.EventTaskCreated)
		var change struct {
			Task store.Task `json:"task"`
		}
		if err := json.Unmarshal(created.Data, &change); err != nil {
			t.Fatalf("decode task_created: %v", err)
		}
		if change.Task.Priority != store.PriorityHigh {
			t.Fatalf("priority not normalized on the wire: %q", change.Task.Priority)
		}
		task = change.Task

		expectEvent(t, ctx, conn, proto.EventActivityCreated)
	}

	var online []OnlineUser
	doJSON(t, ts, "GET", "/api/teams/"+team.ID+"/online", adminToken, nil, http.StatusOK, &online)
	if len(online) != 2 {
		t.Fatalf("expected 2 online members, got %d", len(online))
	}

	// Typing relays reach the team room through the task, excluding the sender.
	sendEvent(t, ctx, memberConn, proto.EventTyping, proto.TypingData{TaskID: task.ID})
	typing := expectEvent(t, ctx, adminConn, proto.EventTyping)
	var indicator proto.TypingEvent
	if err := json.Unmarshal(typing.Data, &indicator); err != nil {
		t.Fatalf("decode typing: %v", err)
	}
	if indicator.User != "Mia" || indicator.TaskID != task.ID {
		t.Fatalf("unexpected typing event: %+v", indicator)
	}
}

func TestWSErrorGoesToOriginOnly(t *testing.T) {
	ts := startTestServer(t)

	adminToken := registerUser(t, ts, "Root", "root@example.com", "admin")
	memberToken := registerUser(t, ts, "Mia", "mia@example.com", "member")

	team := createTeam(t, ts, adminToken, "Platform")
	project := createProject(t, ts, adminToken, team.ID, "Rollout")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminConn := dialWS(t, ctx, ts, adminToken)
	memberConn := dialWS(t, ctx, ts, memberToken)

	sendEvent(t, ctx, adminConn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: team.ID})
	sendEvent(t, ctx, memberConn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: team.ID})
	expectEvent(t, ctx, adminConn, proto.EventJoinedRoomSuccess)
	expectEvent(t, ctx, memberConn, proto.EventJoinedRoomSuccess)

	// Members cannot create tasks; the rejection must not reach the room.
	sendEvent(t, ctx, memberConn, proto.EventTaskCreate, proto.TaskCreateData{
		ProjectID: project.ID,
		Title:     "Nope",
	})

	ev := expectEvent(t, ctx, memberConn, proto.EventErrorMessage)
	var msg proto.ErrorMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		t.Fatalf("decode error_message: %v", err)
	}
	if !strings.Contains(msg.Message, "admins") {
		t.Fatalf("unexpected error message: %q", msg.Message)
	}

	// The admin's next event is the successful create, not the rejection.
	sendEvent(t, ctx, adminConn, proto.EventTaskCreate, proto.TaskCreateData{
		ProjectID: project.ID,
		Title:     "Ship it",
	})
	expectEvent(t, ctx, adminConn, proto.EventTaskCreated)
}

func TestWSTaskDeleteAcceptsBareStringPayload(t *testing.T) {
	ts := startTestServer(t)

	adminToken := registerUser(t, ts, "Root", "root@example.com", "admin")
	team := createTeam(t, ts, adminToken, "Platform")
	project := createProject(t, ts, adminToken, team.ID, "Rollout")

	task := &store.Task{}
	doJSON(t, ts, "POST", "/api/tasks", adminToken, map[string]any{
		"projectId": project.ID, "title": "Ship it",
	}, http.StatusCreated, task)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts, adminToken)
	sendEvent(t, ctx, conn, proto.EventJoinRoom, proto.JoinRoomData{RoomID: team.ID})
	expectEvent(t, ctx, conn, proto.EventJoinedRoomSuccess)

	sendEvent(t, ctx, conn, proto.EventTaskDelete, task.ID)

	deleted := expectEvent(t, ctx, conn, proto.EventTaskDeleted)
	var payload proto.TaskDeleted
	if err := json.Unmarshal(deleted.Data, &payload); err != nil {
		t.Fatalf("decode task_deleted: %v", err)
	}
	if payload.TaskID != task.ID {
		t.Fatalf("deleted task id %q, want %q", payload.TaskID, task.ID)
	}
	expectEvent(t, ctx, conn, proto.EventActivityCreated)
}
