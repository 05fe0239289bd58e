package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/abbaskhalil042/smart-talk/internal/auth"
	"github.com/abbaskhalil042/smart-talk/internal/models"
	"github.com/abbaskhalil042/smart-talk/internal/store"
)

// Handshake failure taxonomy. All are fatal to the connection attempt; the
// connection is refused with the error text as reason and never joins a
// room.
var (
	ErrMissingProject    = errors.New("project id is required")
	ErrInvalidProject    = errors.New("invalid project id")
	ErrProjectNotFound   = errors.New("project not found")
	ErrMissingCredential = errors.New("authentication token missing")
	ErrInvalidCredential = errors.New("invalid or expired token")
)

// ProjectFinder is the slice of the store the authenticator needs.
type ProjectFinder interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Authenticator validates handshake parameters and produces sessions.
type Authenticator struct {
	projects ProjectFinder
	verifier *auth.Verifier
}

// NewAuthenticator creates an Authenticator backed by the given project
// store and token verifier.
func NewAuthenticator(projects ProjectFinder, verifier *auth.Verifier) *Authenticator {
	return &Authenticator{projects: projects, verifier: verifier}
}

// Authenticate validates the project reference first and the credential
// second. On success it returns a session binding the user identity,
// project identity and loaded project snapshot; authentication itself has
// no other side effect.
func (a *Authenticator) Authenticate(ctx context.Context, projectID, token string) (*Session, error) {
	if projectID == "" {
		return nil, ErrMissingProject
	}

	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, ErrInvalidProject
	}

	project, err := a.projects.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("project lookup failed: %w", err)
	}

	if token == "" {
		return nil, ErrMissingCredential
	}

	ident, err := a.verifier.Verify(token)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	return &Session{
		UserID:    ident.UserID,
		Email:     ident.Email,
		ProjectID: id,
		Project:   project,
	}, nil
}
