package proto

import "github.com/taskwire/taskwire-server/internal/store"

// TaskChanged is the task_created / task_updated payload.
type TaskChanged struct {
	Task     *store.Task     `json:"task"`
	Activity *store.Activity `json:"activity"`
}

// TaskDeleted is the task_deleted payload.
type TaskDeleted struct {
	TaskID   string          `json:"taskId"`
	Activity *store.Activity `json:"activity"`
}

// TeamUpdated is the team_updated payload.
type TeamUpdated struct {
	TeamID  string             `json:"teamId"`
	Members []store.TeamMember `json:"members"`
}

// TeamDeleted is the team_deleted payload.
type TeamDeleted struct {
	TeamID string `json:"teamId"`
}

// ActivityCreated is the activity_created payload.
type ActivityCreated struct {
	Activity *store.Activity `json:"activity"`
}
