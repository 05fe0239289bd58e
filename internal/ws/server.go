package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/metrics"
)

// Presence records which users are online per project, typically backed by
// Redis. Optional; all calls are best-effort.
type Presence interface {
	MarkOnline(ctx context.Context, projectID, userID string) error
	MarkOffline(ctx context.Context, projectID, userID string) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from arbitrary origins, same as the HTTP API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the websocket endpoint: handshake authentication, room
// join, and pump startup.
type Server struct {
	hub      *Hub
	router   *Router
	authn    *Authenticator
	presence Presence // may be nil
	log      zerolog.Logger
}

// NewServer creates the websocket server.
func NewServer(hub *Hub, router *Router, authn *Authenticator, presence Presence, logger zerolog.Logger) *Server {
	return &Server{
		hub:      hub,
		router:   router,
		authn:    authn,
		presence: presence,
		log:      logger,
	}
}

// HandleConnect authenticates the handshake and, only on success, upgrades
// the connection and joins the project's room. Failures are refused before
// the upgrade with a JSON reason, so a rejected connection never touches
// the room registry.
func (s *Server) HandleConnect(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	token := bearerToken(r)

	sess, err := s.authn.Authenticate(r.Context(), projectID, token)
	if err != nil {
		s.log.Warn().Err(err).Str("project", projectID).Msg("handshake rejected")
		metrics.HandshakeRejections.WithLabelValues(rejectionReason(err)).Inc()
		refuse(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(sess, s.hub, s.router, conn, s.log)
	members := s.hub.Join(sess.ProjectID.String(), client)

	if s.presence != nil {
		_ = s.presence.MarkOnline(r.Context(), sess.ProjectID.String(), sess.UserID.String())
		client.onClose = func() {
			_ = s.presence.MarkOffline(context.Background(), sess.ProjectID.String(), sess.UserID.String())
		}
	}

	s.log.Info().
		Str("project", sess.ProjectID.String()).
		Str("user", sess.UserID.String()).
		Int("members", members).
		Msg("client connected")

	go client.writePump()
	go client.readPump()
}

// bearerToken extracts the credential from the Authorization header or,
// for browser websocket clients that cannot set headers, the token query
// parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// rejectionReason labels a handshake error for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingProject):
		return "missing_project"
	case errors.Is(err, ErrInvalidProject):
		return "invalid_project"
	case errors.Is(err, ErrProjectNotFound):
		return "project_not_found"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	}
	return "internal"
}

// refuse maps a handshake error to its HTTP rejection.
func refuse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrMissingProject), errors.Is(err, ErrInvalidProject):
		status = http.StatusBadRequest
	case errors.Is(err, ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrInvalidCredential):
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
