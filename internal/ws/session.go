package ws

import (
	"github.com/google/uuid"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// Session is one authenticated connection's transient state: who the user
// is and which project they are joined to. It is created by a successful
// handshake, owned exclusively by the connection, and discarded on
// disconnect.
type Session struct {
	UserID    uuid.UUID
	Email     string
	ProjectID uuid.UUID

	// Project is the snapshot loaded during the handshake. The store owns
	// the durable record; this reference is never written back.
	Project *models.Project
}

// Sender returns the authoritative sender identity for this session.
func (s *Session) Sender() models.Sender {
	return models.Sender{ID: s.UserID.String(), Email: s.Email}
}
