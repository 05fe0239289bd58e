package ws

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/ai"
	"github.com/abbaskhalil042/smart-talk/internal/metrics"
	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// MentionMarker is the literal substring that classifies a message as
// assistant-directed.
const MentionMarker = "@ai"

// MessageAppender is the slice of the store the router persists through.
type MessageAppender interface {
	AppendMessage(ctx context.Context, projectID uuid.UUID, msg *models.Message) error
}

// MessageCache receives a best-effort copy of every emitted message.
type MessageCache interface {
	CacheMessage(ctx context.Context, projectID string, msg *models.Message) error
}

// Router drives one inbound chat event to completion: persist and broadcast
// the inbound message, and for assistant-directed messages, invoke the
// completer and emit exactly one follow-up reply. All emission for a given
// project happens under that project's serialization lock, so echo-then-
// reply sequences never interleave.
type Router struct {
	hub       *Hub
	store     MessageAppender
	cache     MessageCache // may be nil
	completer ai.Completer
	timeout   time.Duration
	serial    *serializer
	log       zerolog.Logger
}

// NewRouter creates a message router.
func NewRouter(hub *Hub, store MessageAppender, cache MessageCache, completer ai.Completer, timeout time.Duration, logger zerolog.Logger) *Router {
	return &Router{
		hub:       hub,
		store:     store,
		cache:     cache,
		completer: completer,
		timeout:   timeout,
		serial:    newSerializer(),
		log:       logger,
	}
}

// HandleChat processes one project-message event from an authenticated
// session. It blocks the calling connection for the duration of the
// sequence; other projects are unaffected.
func (r *Router) HandleChat(ctx context.Context, sess *Session, payload ChatPayload) {
	release := r.serial.acquire(sess.ProjectID.String())
	defer release()

	// The session identity is authoritative; the claimed sender email is
	// kept for display only.
	sender := sess.Sender()
	if payload.Sender.Email != "" {
		sender.Email = payload.Sender.Email
	}

	inbound := &models.Message{
		ID:        ulid.Make().String(),
		ProjectID: sess.ProjectID.String(),
		Sender:    sender,
		Body:      payload.Message,
		Timestamp: time.Now().UnixMilli(),
	}

	assistantDirected := strings.Contains(payload.Message, MentionMarker)
	kind := "plain"
	if assistantDirected {
		kind = "assistant"
	}
	metrics.MessagesRouted.WithLabelValues(kind).Inc()

	// The inbound message is echoed unconditionally, before any assistant
	// call, so the transcript shows it even if the completion later fails.
	r.emit(ctx, sess.ProjectID, inbound)

	if !assistantDirected {
		return
	}

	prompt := strings.TrimSpace(strings.Replace(payload.Message, MentionMarker, "", 1))

	reply := &models.Message{
		ID:        ulid.Make().String(),
		ProjectID: sess.ProjectID.String(),
		Sender:    models.AssistantSender,
		Body:      r.completeBody(ctx, prompt),
		Timestamp: time.Now().UnixMilli(),
	}
	r.emit(ctx, sess.ProjectID, reply)
}

// completeBody invokes the completer under the configured timeout and
// returns the reply body, falling back to the fixed placeholder on any
// failure. The failure is never surfaced to the caller of the socket event.
func (r *Router) completeBody(ctx context.Context, prompt string) string {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := r.completer.Complete(cctx, prompt)
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "provider"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, ai.ErrEmptyCompletion):
			reason = "empty"
		}
		metrics.CompletionFailures.WithLabelValues(reason).Inc()
		r.log.Error().Err(err).Str("reason", reason).Msg("completion failed")
		return ai.Placeholder
	}

	return result.Raw
}

// emit appends the message to the durable log and broadcasts it to the
// room. A persistence failure is recorded for operators and swallowed:
// connected clients still receive the message (delivered-but-unpersisted).
func (r *Router) emit(ctx context.Context, projectID uuid.UUID, msg *models.Message) {
	if err := r.store.AppendMessage(ctx, projectID, msg); err != nil {
		metrics.PersistenceFailures.Inc()
		r.log.Error().Err(err).
			Str("project", projectID.String()).
			Str("message", msg.ID).
			Msg("message append failed")
	}

	if r.cache != nil {
		if err := r.cache.CacheMessage(ctx, projectID.String(), msg); err != nil {
			r.log.Warn().Err(err).Msg("message cache write failed")
		}
	}

	frame, err := chatFrame(msg)
	if err != nil {
		r.log.Error().Err(err).Msg("frame encode failed")
		return
	}
	r.hub.Broadcast(projectID.String(), frame)
}
