package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is the envelope for events pushed to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventTaskCreate = "task_create"
	EventTaskUpdate = "task_update"
	EventTaskDelete = "task_delete"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

// Outbound event names.
const (
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskDeleted       = "task_deleted"
	EventTeamCreated       = "team_created"
	EventTeamUpdated       = "team_updated"
	EventTeamDeleted       = "team_deleted"
	EventProjectCreated    = "project_created"
	EventActivityCreated   = "activity_created"
	EventJoinedRoomSuccess = "joined_room_success"
	EventErrorMessage      = "error_message"
)

// JoinRoomData subscribes the connection to a team room.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

// TaskCreateData is the task_create payload.
type TaskCreateData struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

// TaskUpdateData is the task_update payload.
type TaskUpdateData struct {
	TaskID  string         `json:"taskId"`
	Updates map[string]any `json:"updates"`
}

// TaskDeleteData is the task_delete payload. Clients may also send the task
// id as a bare JSON string; the router accepts both forms.
type TaskDeleteData struct {
	TaskID string `json:"taskId"`
}

// TypingData is the typing / stop_typing payload.
type TypingData struct {
	TaskID string `json:"taskId"`
}

// TypingEvent is relayed to the room, excluding the sender.
type TypingEvent struct {
	TaskID string `json:"taskId"`
	User   string `json:"user"`
}

// JoinedRoom acknowledges a successful join_room.
type JoinedRoom struct {
	RoomID string `json:"roomId"`
}

// ErrorMessage is sent only to the originating connection on handler failure.
type ErrorMessage struct {
	Message string `json:"message"`
}
