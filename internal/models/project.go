package models

import (
	"time"

	"github.com/google/uuid"
)

// FileTree maps file paths to file contents.
type FileTree map[string]string

// Project represents a shared workspace: a group of collaborators, a file
// tree, and an append-only message log (stored separately, ordered by
// insertion).
type Project struct {
	ID        uuid.UUID   `json:"_id"`
	Name      string      `json:"name"`
	Owner     uuid.UUID   `json:"owner"`
	Users     []uuid.UUID `json:"users"`
	FileTree  FileTree    `json:"fileTree"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// HasUser reports whether the given user is a collaborator on the project.
func (p *Project) HasUser(userID uuid.UUID) bool {
	if p.Owner == userID {
		return true
	}
	for _, u := range p.Users {
		if u == userID {
			return true
		}
	}
	return false
}
