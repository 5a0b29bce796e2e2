package http

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/proto"
	"github.com/taskwire/taskwire-server/internal/service/tasks"
)

// eventRouter maps inbound websocket events to domain handlers. Handler
// failures are reported to the originating session only; the connection
// stays up.
type eventRouter struct {
	svcs     Services
	rt       Realtime
	handlers map[string]func(ctx context.Context, sess *core.Session, data json.RawMessage) error
	log      *zerolog.Logger
}

func newEventRouter(svcs Services, rt Realtime, logger *zerolog.Logger) *eventRouter {
	r := &eventRouter{svcs: svcs, rt: rt, log: logger}
	r.handlers = map[string]func(ctx context.Context, sess *core.Session, data json.RawMessage) error{
		proto.EventJoinRoom:   r.joinRoom,
		proto.EventLeaveRoom:  r.leaveRoom,
		proto.EventTaskCreate: r.taskCreate,
		proto.EventTaskUpdate: r.taskUpdate,
		proto.EventTaskDelete: r.taskDelete,
		proto.EventTyping:     r.typing,
		proto.EventStopTyping: r.stopTyping,
	}
	return r
}

// dispatch routes one inbound event. Unknown events are ignored.
func (r *eventRouter) dispatch(ctx context.Context, sess *core.Session, in proto.Inbound) {
	handler, ok := r.handlers[in.Event]
	if !ok {
		r.log.Debug().Str("event", in.Event).Str("session_id", sess.ID).Msg("unknown ws event")
		return
	}
	if err := handler(ctx, sess, in.Data); err != nil {
		r.log.Debug().
			Err(err).
			Str("event", in.Event).
			Str("session_id", sess.ID).
			Msg("ws event rejected")
		r.rt.Broadcast.EmitTo(sess, proto.EventErrorMessage, proto.ErrorMessage{
			Message: clientMessage(err),
		})
	}
}

// clientMessage hides internal error detail from the wire.
func clientMessage(err error) string {
	if core.CodeOf(err) == core.ErrCodeInternal {
		return "internal error"
	}
	return err.Error()
}

func (r *eventRouter) joinRoom(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	ref := decodeRef(data, "roomId")
	if ref == "" {
		return core.Invalid("roomId is required")
	}

	// Rooms are keyed by canonical team id; a join by invite code lands in
	// the same room as a join by id.
	team, err := r.svcs.Teams.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	r.rt.Registry.Join(sess.ID, team.ID)
	r.rt.Broadcast.EmitTo(sess, proto.EventJoinedRoomSuccess, proto.JoinedRoom{RoomID: team.ID})
	r.log.Debug().Str("session_id", sess.ID).Str("room_id", team.ID).Msg("joined room")
	return nil
}

func (r *eventRouter) leaveRoom(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	ref := decodeRef(data, "roomId")
	if ref == "" {
		return core.Invalid("roomId is required")
	}
	team, err := r.svcs.Teams.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	r.rt.Registry.Leave(sess.ID, team.ID)
	return nil
}

func (r *eventRouter) taskCreate(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	var in proto.TaskCreateData
	if err := json.Unmarshal(data, &in); err != nil {
		return core.Invalid("malformed task_create payload")
	}
	_, err := r.svcs.Tasks.Create(ctx, sess.Principal, tasks.CreateInput{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		AssignedTo:  in.AssignedTo,
	})
	return err
}

func (r *eventRouter) taskUpdate(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	var in proto.TaskUpdateData
	if err := json.Unmarshal(data, &in); err != nil {
		return core.Invalid("malformed task_update payload")
	}
	if in.TaskID == "" {
		return core.Invalid("taskId is required")
	}
	_, err := r.svcs.Tasks.Update(ctx, sess.Principal, in.TaskID, in.Updates)
	return err
}

func (r *eventRouter) taskDelete(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	taskID := decodeRef(data, "taskId")
	if taskID == "" {
		return core.Invalid("taskId is required")
	}
	return r.svcs.Tasks.Delete(ctx, sess.Principal, taskID)
}

func (r *eventRouter) typing(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	return r.relayTyping(ctx, sess, data, proto.EventTyping)
}

func (r *eventRouter) stopTyping(ctx context.Context, sess *core.Session, data json.RawMessage) error {
	return r.relayTyping(ctx, sess, data, proto.EventStopTyping)
}

// relayTyping fans a typing indicator out to the task's team room, excluding
// the sender. Indicators are transient; nothing is persisted.
func (r *eventRouter) relayTyping(ctx context.Context, sess *core.Session, data json.RawMessage, event string) error {
	var in proto.TypingData
	if err := json.Unmarshal(data, &in); err != nil {
		return core.Invalid("malformed typing payload")
	}
	if in.TaskID == "" {
		return core.Invalid("taskId is required")
	}
	roomID, err := r.svcs.Tasks.TeamRoomOf(ctx, in.TaskID)
	if err != nil {
		return err
	}
	r.rt.Broadcast.EmitExcept(roomID, sess.ID, event, proto.TypingEvent{
		TaskID: in.TaskID,
		User:   sess.ActorName(),
	})
	return nil
}

// decodeRef extracts an identifier that clients send either as a bare JSON
// string or wrapped in an object under the given key.
func decodeRef(data json.RawMessage, key string) string {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare
	}
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj[key]
	}
	return ""
}
