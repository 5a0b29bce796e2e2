package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by every Get/Update/Delete when the entity is absent.
var ErrNotFound = errors.New("not found")

// Role is a user's global role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TaskStatus enumerates task workflow states.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskPriority enumerates task priorities. Stored lower case.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// User represents a registered user.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         Role      `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// TeamMember is one membership edge inside a team document.
type TeamMember struct {
	UserID string `bson:"user_id" json:"userId"`
	Role   Role   `bson:"role" json:"role"`
}

// Team groups users; its id doubles as the broadcast room key.
type Team struct {
	ID          string       `bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Code        string       `bson:"code" json:"code"`
	Members     []TeamMember `bson:"members" json:"members"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether userID is already a member of the team.
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberRole returns the member's team role, or "" when not a member.
func (t *Team) MemberRole(userID string) Role {
	for _, m := range t.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// Project belongs to exactly one team.
type Project struct {
	ID          string    `bson:"_id" json:"id"`
	TeamID      string    `bson:"team_id" json:"teamId"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   string    `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// Task belongs to a project; broadcast events target the project's team room.
type Task struct {
	ID          string       `bson:"_id" json:"id"`
	ProjectID   string       `bson:"project_id" json:"projectId"`
	Title       string       `bson:"title" json:"title"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Status      TaskStatus   `bson:"status" json:"status"`
	Priority    TaskPriority `bson:"priority" json:"priority"`
	DueDate     *time.Time   `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	AssignedTo  string       `bson:"assigned_to,omitempty" json:"assignedTo,omitempty"`
	CreatedBy   string       `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updatedAt"`
}

// Activity is one audit-log entry, always scoped to a team.
type Activity struct {
	ID        string         `bson:"_id" json:"id"`
	TeamID    string         `bson:"team_id" json:"teamId"`
	ActorID   string         `bson:"actor_id" json:"actorId"`
	ActorName string         `bson:"actor_name" json:"actorName"`
	Type      string         `bson:"type" json:"type"`
	Message   string         `bson:"message" json:"message"`
	Meta      map[string]any `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user. The caller sets ID and PasswordHash.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// TeamStore handles team persistence.
type TeamStore interface {
	// CreateTeam inserts a new team with its initial member list.
	CreateTeam(ctx context.Context, team *Team) error

	// GetTeamByID retrieves a team by id.
	GetTeamByID(ctx context.Context, id string) (*Team, error)

	// GetTeamByCode retrieves a team by join code. The lookup is
	// case-insensitive; codes are stored upper case.
	GetTeamByCode(ctx context.Context, code string) (*Team, error)

	// ListTeamsByMember lists teams the user belongs to, newest first.
	ListTeamsByMember(ctx context.Context, userID string) ([]*Team, error)

	// AddTeamMember appends a member to the team.
	AddTeamMember(ctx context.Context, teamID string, member TeamMember) error

	// DeleteTeam removes a team.
	DeleteTeam(ctx context.Context, id string) error
}

// ProjectStore handles project persistence.
type ProjectStore interface {
	// CreateProject inserts a new project.
	CreateProject(ctx context.Context, project *Project) error

	// GetProjectByID retrieves a project by id.
	GetProjectByID(ctx context.Context, id string) (*Project, error)

	// ListProjectsByTeam lists a team's projects, newest first.
	ListProjectsByTeam(ctx context.Context, teamID string) ([]*Project, error)
}

// TaskStore handles task persistence.
type TaskStore interface {
	// CreateTask inserts a new task.
	CreateTask(ctx context.Context, task *Task) error

	// GetTaskByID retrieves a task by id.
	GetTaskByID(ctx context.Context, id string) (*Task, error)

	// UpdateTask replaces a task's mutable fields.
	UpdateTask(ctx context.Context, task *Task) error

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error

	// ListTasksByProject lists a project's tasks, newest first. When
	// visibleTo is non-empty only tasks created by or assigned to that
	// user are returned.
	ListTasksByProject(ctx context.Context, projectID, visibleTo string) ([]*Task, error)
}

// ActivityStore handles the audit log.
type ActivityStore interface {
	// AppendActivity inserts one activity record.
	AppendActivity(ctx context.Context, activity *Activity) error

	// ListActivitiesByTeam lists a team's activity, newest first.
	ListActivitiesByTeam(ctx context.Context, teamID string) ([]*Activity, error)

	// ListActivitiesByProject lists activity whose meta references the project, newest first.
	ListActivitiesByProject(ctx context.Context, projectID string) ([]*Activity, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	TeamStore
	ProjectStore
	TaskStore
	ActivityStore

	// Close closes the underlying database connection.
	Close() error
}
