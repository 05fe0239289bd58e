package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateProject creates a new project owned by the given user.
func (s *PostgresStore) CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error) {
	project := &models.Project{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO projects (name, owner, users, file_tree)
		VALUES ($1, $2, $3, '{}'::jsonb)
		RETURNING id, name, owner, users, file_tree, created_at, updated_at
	`, name, owner, []uuid.UUID{owner}).Scan(
		&project.ID,
		&project.Name,
		&project.Owner,
		&project.Users,
		&project.FileTree,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject retrieves a project by ID.
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project := &models.Project{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, owner, users, file_tree, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(
		&project.ID,
		&project.Name,
		&project.Owner,
		&project.Users,
		&project.FileTree,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListProjectsForUser retrieves all projects the user collaborates on.
func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, owner, users, file_tree, created_at, updated_at
		FROM projects
		WHERE owner = $1 OR $1 = ANY(users)
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.Owner,
			&project.Users,
			&project.FileTree,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// AddProjectUsers appends collaborators to a project, skipping duplicates.
func (s *PostgresStore) AddProjectUsers(ctx context.Context, projectID uuid.UUID, users []uuid.UUID) (*models.Project, error) {
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

	err = s.pool.QueryRow(ctx, `
		UPDATE projects SET users = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, owner, users, file_tree, created_at, updated_at
	`, projectID, merged).Scan(
		&project.ID,
		&project.Name,
		&project.Owner,
		&project.Users,
		&project.FileTree,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateFileTree replaces a project's file tree (last write wins).
func (s *PostgresStore) UpdateFileTree(ctx context.Context, projectID uuid.UUID, tree models.FileTree) (*models.Project, error) {
	project := &models.Project{}
	err := s.pool.QueryRow(ctx, `
		UPDATE projects SET file_tree = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, owner, users, file_tree, created_at, updated_at
	`, projectID, tree).Scan(
		&project.ID,
		&project.Name,
		&project.Owner,
		&project.Users,
		&project.FileTree,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

// AppendMessage appends one message to the project's log. The seq column
// makes insertion order the authoritative log order.
func (s *PostgresStore) AppendMessage(ctx context.Context, projectID uuid.UUID, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, project_id, sender_id, sender_email, body, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, projectID, msg.Sender.ID, msg.Sender.Email, msg.Body, msg.Timestamp)
	return err
}

// GetMessages retrieves the most recent messages in log order.
func (s *PostgresStore) GetMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, sender_email, body, ts FROM (
			SELECT seq, id, sender_id, sender_email, body, ts
			FROM messages WHERE project_id = $1
			ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq ASC
	`, projectID, limit)
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
func (s *PostgresStore) CountMessages(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE project_id = $1
	`, projectID).Scan(&count)
	return count, err
}
