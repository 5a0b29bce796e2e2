package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/taskwire/taskwire-server/internal/store"
)

// Schema is the embedded database schema, applied idempotently on open.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'member',
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	code        TEXT NOT NULL UNIQUE,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS team_members (
	team_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role    TEXT NOT NULL DEFAULT 'member',
	PRIMARY KEY (team_id, user_id),
	FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	team_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	FOREIGN KEY (team_id) REFERENCES teams(id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'todo',
	priority    TEXT NOT NULL DEFAULT 'medium',
	due_date    DATETIME,
	assigned_to TEXT,
	created_by  TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	FOREIGN KEY (project_id) REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS activities (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	actor_name TEXT NOT NULL,
	type       TEXT NOT NULL,
	message    TEXT NOT NULL,
	meta       TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id);
CREATE INDEX IF NOT EXISTS idx_projects_team ON projects(team_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_activities_team ON activities(team_id, created_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema or seed data directly.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users ` + where
	var user store.User
	var role string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)
	return &user, nil
}

// ==== TeamStore implementation ====

// CreateTeam inserts a new team with its initial member list.
func (s *SQLiteStore) CreateTeam(ctx context.Context, team *store.Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO teams (id, name, description, code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, team.ID, team.Name, team.Description, strings.ToUpper(team.Code), team.CreatedAt, team.UpdatedAt); err != nil {
		return fmt.Errorf("insert team: %w", err)
	}

	for _, m := range team.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, user_id, role)
			VALUES (?, ?, ?)
		`, team.ID, m.UserID, string(m.Role)); err != nil {
			return fmt.Errorf("insert team member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetTeamByID retrieves a team by id.
func (s *SQLiteStore) GetTeamByID(ctx context.Context, id string) (*store.Team, error) {
	return s.getTeam(ctx, `WHERE id = ?`, id)
}

// GetTeamByCode retrieves a team by join code, case-insensitively.
func (s *SQLiteStore) GetTeamByCode(ctx context.Context, code string) (*store.Team, error) {
	return s.getTeam(ctx, `WHERE code = ?`, strings.ToUpper(code))
}

func (s *SQLiteStore) getTeam(ctx context.Context, where string, arg any) (*store.Team, error) {
	query := `
		SELECT id, name, description, code, created_at, updated_at
		FROM teams ` + where
	var team store.Team
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&team.ID, &team.Name, &team.Description, &team.Code, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query team: %w", err)
	}
	if team.Members, err = s.teamMembers(ctx, team.ID); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *SQLiteStore) teamMembers(ctx context.Context, teamID string) ([]store.TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, role FROM team_members WHERE team_id = ? ORDER BY rowid
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("query team members: %w", err)
	}
	defer rows.Close()

	var members []store.TeamMember
	for rows.Next() {
		var m store.TeamMember
		var role string
		if err := rows.Scan(&m.UserID, &role); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		m.Role = store.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListTeamsByMember lists teams the user belongs to, newest first.
func (s *SQLiteStore) ListTeamsByMember(ctx context.Context, userID string) ([]*store.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.code, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		var team store.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.Code, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, &team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, team := range teams {
		if team.Members, err = s.teamMembers(ctx, team.ID); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// AddTeamMember appends a member to the team.
func (s *SQLiteStore) AddTeamMember(ctx context.Context, teamID string, member store.TeamMember) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE teams SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, teamID)
	if err != nil {
		return fmt.Errorf("touch team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)
	`, teamID, member.UserID, string(member.Role)); err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	return nil
}

// DeleteTeam removes a team and its membership rows.
func (s *SQLiteStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== ProjectStore implementation ====

// CreateProject inserts a new project.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *store.Project) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, team_id, name, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, project.ID, project.TeamID, project.Name, project.Description, project.CreatedBy, project.CreatedAt); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a project by id.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id string) (*store.Project, error) {
	var project store.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, name, description, created_by, created_at
		FROM projects WHERE id = ?
	`, id).Scan(&project.ID, &project.TeamID, &project.Name, &project.Description, &project.CreatedBy, &project.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query project: %w", err)
	}
	return &project, nil
}

// ListProjectsByTeam lists a team's projects, newest first.
func (s *SQLiteStore) ListProjectsByTeam(ctx context.Context, teamID string) ([]*store.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, name, description, created_by, created_at
		FROM projects WHERE team_id = ?
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []*store.Project
	for rows.Next() {
		var p store.Project
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// ==== TaskStore implementation ====

// CreateTask inserts a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *store.Task) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, title, description, status, priority, due_date, assigned_to, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.ProjectID, task.Title, task.Description, string(task.Status), string(task.Priority),
		task.DueDate, nullable(task.AssignedTo), task.CreatedBy, task.CreatedAt, task.UpdatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by id.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*store.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, priority, due_date, assigned_to, created_by, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// UpdateTask replaces a task's mutable fields.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *store.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.Description, string(task.Status), string(task.Priority),
		task.DueDate, nullable(task.AssignedTo), task.UpdatedAt, task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTasksByProject lists a project's tasks, newest first. When visibleTo
// is non-empty only tasks created by or assigned to that user are returned.
func (s *SQLiteStore) ListTasksByProject(ctx context.Context, projectID, visibleTo string) ([]*store.Task, error) {
	query := `
		SELECT id, project_id, title, description, status, priority, due_date, assigned_to, created_by, created_at, updated_at
		FROM tasks WHERE project_id = ?
	`
	args := []any{projectID}
	if visibleTo != "" {
		query += ` AND (created_by = ? OR assigned_to = ?)`
		args = append(args, visibleTo, visibleTo)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*store.Task, error) {
	var task store.Task
	var status, priority string
	var due sql.NullTime
	var assigned sql.NullString
	if err := row.Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Description, &status, &priority,
		&due, &assigned, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Status = store.TaskStatus(status)
	task.Priority = store.TaskPriority(priority)
	if due.Valid {
		t := due.Time
		task.DueDate = &t
	}
	if assigned.Valid {
		task.AssignedTo = assigned.String
	}
	return &task, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ==== ActivityStore implementation ====

// AppendActivity inserts one activity record. Meta is stored as JSON.
func (s *SQLiteStore) AppendActivity(ctx context.Context, activity *store.Activity) error {
	var meta any
	if activity.Meta != nil {
		data, err := json.Marshal(activity.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
		meta = string(data)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, team_id, actor_id, actor_name, type, message, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, activity.TeamID, activity.ActorID, activity.ActorName,
		activity.Type, activity.Message, meta, activity.CreatedAt); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivitiesByTeam lists a team's activity, newest first.
func (s *SQLiteStore) ListActivitiesByTeam(ctx context.Context, teamID string) ([]*store.Activity, error) {
	return s.listActivities(ctx, `WHERE team_id = ?`, teamID)
}

// ListActivitiesByProject lists activity whose meta references the project, newest first.
func (s *SQLiteStore) ListActivitiesByProject(ctx context.Context, projectID string) ([]*store.Activity, error) {
	return s.listActivities(ctx, `WHERE json_extract(meta, '$.projectId') = ?`, projectID)
}

func (s *SQLiteStore) listActivities(ctx context.Context, where string, arg any) ([]*store.Activity, error) {
	query := `
		SELECT id, team_id, actor_id, actor_name, type, message, meta, created_at
		FROM activities ` + where + ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []*store.Activity
	for rows.Next() {
		var a store.Activity
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.TeamID, &a.ActorID, &a.ActorName, &a.Type, &a.Message, &meta, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &a.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta: %w", err)
			}
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
