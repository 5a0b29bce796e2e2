package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskwire/taskwire-server/internal/store"
)

const connectTimeout = 10 * time.Second

// MongoStore implements store.Store on a MongoDB database.
type MongoStore struct {
	client     *mongo.Client
	users      *mongo.Collection
	teams      *mongo.Collection
	projects   *mongo.Collection
	tasks      *mongo.Collection
	activities *mongo.Collection
}

// New connects to MongoDB and prepares collections and indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		users:      db.Collection("users"),
		teams:      db.Collection("teams"),
		projects:   db.Collection("projects"),
		tasks:      db.Collection("tasks"),
		activities: db.Collection("activities"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_users_email"),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.teams.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_teams_code"),
	}); err != nil {
		return fmt.Errorf("teams indexes: %w", err)
	}
	if _, err := s.projects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_projects_team"),
	}); err != nil {
		return fmt.Errorf("projects indexes: %w", err)
	}
	if _, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_tasks_project"),
	}); err != nil {
		return fmt.Errorf("tasks indexes: %w", err)
	}
	if _, err := s.activities.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activities_team"),
		},
		{
			Keys:    bson.D{{Key: "meta.projectId", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activities_project"),
		},
	}); err != nil {
		return fmt.Errorf("activities indexes: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==== UserStore implementation ====

// CreateUser inserts a new user.
func (s *MongoStore) CreateUser(ctx context.Context, user *store.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, wrapFindErr("user", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, wrapFindErr("user", err)
	}
	return &user, nil
}

// ==== TeamStore implementation ====

// CreateTeam inserts a new team with its initial member list.
func (s *MongoStore) CreateTeam(ctx context.Context, team *store.Team) error {
	team.Code = strings.ToUpper(team.Code)
	if _, err := s.teams.InsertOne(ctx, team); err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// GetTeamByID retrieves a team by id.
func (s *MongoStore) GetTeamByID(ctx context.Context, id string) (*store.Team, error) {
	var team store.Team
	if err := s.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&team); err != nil {
		return nil, wrapFindErr("team", err)
	}
	return &team, nil
}

// GetTeamByCode retrieves a team by join code, case-insensitively. Codes are
// stored upper case, so the lookup normalizes rather than using a regex.
func (s *MongoStore) GetTeamByCode(ctx context.Context, code string) (*store.Team, error) {
	var team store.Team
	if err := s.teams.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&team); err != nil {
		return nil, wrapFindErr("team", err)
	}
	return &team, nil
}

// ListTeamsByMember lists teams the user belongs to, newest first.
func (s *MongoStore) ListTeamsByMember(ctx context.Context, userID string) ([]*store.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.teams.Find(ctx, bson.M{"members.user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find teams: %w", err)
	}
	var teams []*store.Team
	if err := cur.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}
	return teams, nil
}

// AddTeamMember appends a member to the team.
func (s *MongoStore) AddTeamMember(ctx context.Context, teamID string, member store.TeamMember) error {
	res, err := s.teams.UpdateOne(ctx, bson.M{"_id": teamID}, bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("push team member: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTeam removes a team.
func (s *MongoStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.teams.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== ProjectStore implementation ====

// CreateProject inserts a new project.
func (s *MongoStore) CreateProject(ctx context.Context, project *store.Project) error {
	if _, err := s.projects.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a project by id.
func (s *MongoStore) GetProjectByID(ctx context.Context, id string) (*store.Project, error) {
	var project store.Project
	if err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&project); err != nil {
		return nil, wrapFindErr("project", err)
	}
	return &project, nil
}

// ListProjectsByTeam lists a team's projects, newest first.
func (s *MongoStore) ListProjectsByTeam(ctx context.Context, teamID string) ([]*store.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.projects.Find(ctx, bson.M{"team_id": teamID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	var projects []*store.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// ==== TaskStore implementation ====

// CreateTask inserts a new task.
func (s *MongoStore) CreateTask(ctx context.Context, task *store.Task) error {
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by id.
func (s *MongoStore) GetTaskByID(ctx context.Context, id string) (*store.Task, error) {
	var task store.Task
	if err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, wrapFindErr("task", err)
	}
	return &task, nil
}

// UpdateTask replaces the stored document with the given task.
func (s *MongoStore) UpdateTask(ctx context.Context, task *store.Task) error {
	res, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("replace task: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (s *MongoStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTasksByProject lists a project's tasks, newest first. When visibleTo
// is non-empty only tasks created by or assigned to that user are returned.
func (s *MongoStore) ListTasksByProject(ctx context.Context, projectID, visibleTo string) ([]*store.Task, error) {
	filter := bson.M{"project_id": projectID}
	if visibleTo != "" {
		filter = bson.M{
			"project_id": projectID,
			"$or": bson.A{
				bson.M{"created_by": visibleTo},
				bson.M{"assigned_to": visibleTo},
			},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var tasks []*store.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

// ==== ActivityStore implementation ====

// AppendActivity inserts one activity record.
func (s *MongoStore) AppendActivity(ctx context.Context, activity *store.Activity) error {
	if _, err := s.activities.InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivitiesByTeam lists a team's activity, newest first.
func (s *MongoStore) ListActivitiesByTeam(ctx context.Context, teamID string) ([]*store.Activity, error) {
	return s.listActivities(ctx, bson.M{"team_id": teamID})
}

// ListActivitiesByProject lists activity whose meta references the project, newest first.
func (s *MongoStore) ListActivitiesByProject(ctx context.Context, projectID string) ([]*store.Activity, error) {
	return s.listActivities(ctx, bson.M{"meta.projectId": projectID})
}

func (s *MongoStore) listActivities(ctx context.Context, filter bson.M) ([]*store.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.activities.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	var activities []*store.Activity
	if err := cur.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return activities, nil
}

func wrapFindErr(entity string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return fmt.Errorf("query %s: %w", entity, err)
}
