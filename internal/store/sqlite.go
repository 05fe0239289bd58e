package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// fallback when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/smart-talk.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/smart-talk.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		users TEXT NOT NULL DEFAULT '[]',
		file_tree TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL,
		sender_email TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
	CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateProject creates a new project owned by the given user.
func (s *SQLiteStore) CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error) {
	id := uuid.New()
	users, _ := json.Marshal([]uuid.UUID{owner})
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner, users, file_tree, created_at, updated_at)
		VALUES (?, ?, ?, ?, '{}', ?, ?)
	`, id.String(), name, owner.String(), string(users), now, now)
	if err != nil {
		return nil, err
	}

	return s.GetProject(ctx, id)
}

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	project := &models.Project{}
	var idStr, ownerStr, usersJSON, treeJSON string
	err := row.Scan(&idStr, &project.Name, &ownerStr, &usersJSON, &treeJSON, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}

	project.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	project.Owner, err = uuid.Parse(ownerStr)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(usersJSON), &project.Users); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(treeJSON), &project.FileTree); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner, users, file_tree, created_at, updated_at
		FROM projects WHERE id = ?
	`, id.String())

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjectsForUser retrieves all projects the user collaborates on.
func (s *SQLiteStore) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	// Collaborators are stored as a JSON array; match on the quoted id.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner, users, file_tree, created_at, updated_at
		FROM projects
		WHERE owner = ? OR users LIKE '%' || ? || '%'
		ORDER BY updated_at DESC
	`, userID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}

	return projects, rows.Err()
}

// AddProjectUsers appends collaborators to a project, skipping duplicates.
func (s *SQLiteStore) AddProjectUsers(ctx context.Context, projectID uuid.UUID, users []uuid.UUID) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	merged := project.Users
	for _, u := range users {
		if !project.HasUser(u) {
			merged = append(merged, u)
		}
	}
	usersJSON, _ := json.Marshal(merged)

	_, err = s.db.ExecContext(ctx, `
		UPDATE projects SET users = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, string(usersJSON), projectID.String())
	if err != nil {
		return nil, err
	}

	return s.GetProject(ctx, projectID)
}

// UpdateFileTree replaces a project's file tree (last write wins).
func (s *SQLiteStore) UpdateFileTree(ctx context.Context, projectID uuid.UUID, tree models.FileTree) (*models.Project, error) {
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET file_tree = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, string(treeJSON), projectID.String())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return s.GetProject(ctx, projectID)
}

// AppendMessage appends one message to the project's log.
func (s *SQLiteStore) AppendMessage(ctx context.Context, projectID uuid.UUID, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, sender_id, sender_email, body, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, projectID.String(), msg.Sender.ID, msg.Sender.Email, msg.Body, msg.Timestamp)
	return err
}

// GetMessages retrieves the most recent messages in log order.
func (s *SQLiteStore) GetMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_email, body, ts FROM (
			SELECT seq, id, sender_id, sender_email, body, ts
			FROM messages WHERE project_id = ?
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`, projectID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Sender.ID, &msg.Sender.Email, &msg.Body, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.ProjectID = projectID.String()
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// CountMessages returns the number of messages in a project's log.
func (s *SQLiteStore) CountMessages(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE project_id = ?
	`, projectID.String()).Scan(&count)
	return count, err
}
