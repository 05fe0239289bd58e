package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DataStore defines the interface for durable storage of projects and their
// message logs. Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Project operations
	CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	AddProjectUsers(ctx context.Context, projectID uuid.UUID, users []uuid.UUID) (*models.Project, error)
	UpdateFileTree(ctx context.Context, projectID uuid.UUID, tree models.FileTree) (*models.Project, error)

	// Message log operations. AppendMessage preserves call order as log
	// order within a project; callers serialize per project.
	AppendMessage(ctx context.Context, projectID uuid.UUID, msg *models.Message) error
	GetMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, projectID uuid.UUID) (int64, error)
}
