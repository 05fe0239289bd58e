package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/ai"
	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// recordingStore captures appended messages in call order.
type recordingStore struct {
	mu       sync.Mutex
	appended []models.Message
	fail     bool
}

func (s *recordingStore) AppendMessage(ctx context.Context, projectID uuid.UUID, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	s.appended = append(s.appended, *msg)
	return nil
}

func (s *recordingStore) messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.appended))
	copy(out, s.appended)
	return out
}

// fakeCompleter returns a canned result or error, optionally after a delay.
type fakeCompleter struct {
	result *ai.Result
	err    error
	delay  time.Duration

	mu      sync.Mutex
	prompts []string
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (*ai.Result, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func newTestRouter(t *testing.T, store *recordingStore, completer ai.Completer, timeout time.Duration) (*Router, *Hub) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	return NewRouter(hub, store, nil, completer, timeout, zerolog.Nop()), hub
}

func drainFrames(t *testing.T, c *Client) []ChatPayload {
	t.Helper()
	var payloads []ChatPayload
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if env.Event != EventProjectMessage {
				t.Fatalf("unexpected event %q", env.Event)
			}
			var payload ChatPayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			payloads = append(payloads, payload)
		default:
			return payloads
		}
	}
}

func TestPlainMessageEchoedOnce(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: "unused"}}
	router, hub := newTestRouter(t, st, completer, time.Second)

	projectID := uuid.New()
	sess := newTestSession(t, projectID)
	member := newTestClient(t, hub, projectID)
	hub.Join(projectID.String(), member)

	router.HandleChat(context.Background(), sess, ChatPayload{Message: "hello"})

	msgs := st.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 appended message, got %d", len(msgs))
	}
	if msgs[0].Body != "hello" || msgs[0].Sender.ID != sess.UserID.String() {
		t.Fatalf("unexpected message %+v", msgs[0])
	}

	frames := drainFrames(t, member)
	if len(frames) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(frames))
	}
	if len(completer.prompts) != 0 {
		t.Fatal("plain message must not invoke the completer")
	}
}

func TestAssistantMessageEmitsEchoThenReply(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: `{"text":"done"}`}}
	router, hub := newTestRouter(t, st, completer, time.Second)

	projectID := uuid.New()
	sess := newTestSession(t, projectID)
	member := newTestClient(t, hub, projectID)
	hub.Join(projectID.String(), member)

	router.HandleChat(context.Background(), sess, ChatPayload{Message: "@ai add a readme"})

	msgs := st.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 appended messages, got %d", len(msgs))
	}
	if msgs[0].Body != "@ai add a readme" {
		t.Fatalf("inbound message must be echoed verbatim, got %q", msgs[0].Body)
	}
	if msgs[0].Sender.ID != sess.UserID.String() {
		t.Fatalf("echo attributed to %q, want session user", msgs[0].Sender.ID)
	}
	if !msgs[1].Sender.IsAssistant() {
		t.Fatalf("reply attributed to %q, want assistant", msgs[1].Sender.ID)
	}
	if msgs[1].Body != `{"text":"done"}` {
		t.Fatalf("unexpected reply body %q", msgs[1].Body)
	}

	if got := completer.prompts; len(got) != 1 || got[0] != "add a readme" {
		t.Fatalf("marker should be stripped and prompt trimmed, got %v", got)
	}

	frames := drainFrames(t, member)
	if len(frames) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(frames))
	}
	if frames[1].Sender.ID != "ai" || frames[1].Sender.Email != "AI" {
		t.Fatalf("assistant frame has wrong sender %+v", frames[1].Sender)
	}
}

func TestEmptyPromptStillForwarded(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: "ok"}}
	router, _ := newTestRouter(t, st, completer, time.Second)

	sess := newTestSession(t, uuid.New())
	router.HandleChat(context.Background(), sess, ChatPayload{Message: "@ai"})

	if len(completer.prompts) != 1 || completer.prompts[0] != "" {
		t.Fatalf("empty prompt should reach the adapter, got %v", completer.prompts)
	}
}

func TestCompleterFailureYieldsPlaceholder(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{err: errors.New("provider down")}
	router, hub := newTestRouter(t, st, completer, time.Second)

	projectID := uuid.New()
	sess := newTestSession(t, projectID)
	member := newTestClient(t, hub, projectID)
	hub.Join(projectID.String(), member)

	router.HandleChat(context.Background(), sess, ChatPayload{Message: "@ai help"})

	msgs := st.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected echo and placeholder, got %d messages", len(msgs))
	}
	if msgs[1].Body != ai.Placeholder {
		t.Fatalf("expected placeholder, got %q", msgs[1].Body)
	}

	// The room stays fully usable afterwards.
	router.HandleChat(context.Background(), sess, ChatPayload{Message: "still here"})
	if got := len(st.messages()); got != 3 {
		t.Fatalf("expected message after failure to flow, got %d total", got)
	}
}

func TestCompleterTimeoutYieldsPlaceholder(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: "too late"}, delay: 500 * time.Millisecond}
	router, _ := newTestRouter(t, st, completer, 20*time.Millisecond)

	sess := newTestSession(t, uuid.New())

	start := time.Now()
	router.HandleChat(context.Background(), sess, ChatPayload{Message: "@ai slow"})

	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Fatalf("timeout did not bound the call, took %s", elapsed)
	}
	msgs := st.messages()
	if len(msgs) != 2 || msgs[1].Body != ai.Placeholder {
		t.Fatalf("expected placeholder after timeout, got %+v", msgs)
	}
}

func TestStoreFailureDoesNotBlockBroadcast(t *testing.T) {
	st := &recordingStore{fail: true}
	completer := &fakeCompleter{result: &ai.Result{Raw: "ok"}}
	router, hub := newTestRouter(t, st, completer, time.Second)

	projectID := uuid.New()
	sess := newTestSession(t, projectID)
	member := newTestClient(t, hub, projectID)
	hub.Join(projectID.String(), member)

	router.HandleChat(context.Background(), sess, ChatPayload{Message: "hello"})

	frames := drainFrames(t, member)
	if len(frames) != 1 {
		t.Fatal("broadcast must proceed even when persistence fails")
	}
}

func TestSessionIdentityOverridesClaimedSender(t *testing.T) {
	st := &recordingStore{}
	router, _ := newTestRouter(t, st, &fakeCompleter{}, time.Second)

	sess := newTestSession(t, uuid.New())
	router.HandleChat(context.Background(), sess, ChatPayload{
		Message: "hi",
		Sender:  models.Sender{ID: "someone-else", Email: "spoof@example.com"},
	})

	msgs := st.messages()
	if msgs[0].Sender.ID != sess.UserID.String() {
		t.Fatalf("sender id %q should come from the session", msgs[0].Sender.ID)
	}
	if msgs[0].Sender.Email != "spoof@example.com" {
		t.Fatal("claimed email is kept for display")
	}
}

func TestConcurrentAssistantSequencesDoNotInterleave(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: "reply"}, delay: 30 * time.Millisecond}
	router, _ := newTestRouter(t, st, completer, time.Second)

	projectID := uuid.New()
	sessA := newTestSession(t, projectID)
	sessB := newTestSession(t, projectID)

	var wg sync.WaitGroup
	for _, sess := range []*Session{sessA, sessB} {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			router.HandleChat(context.Background(), s, ChatPayload{Message: "@ai do it"})
		}(sess)
	}
	wg.Wait()

	msgs := st.messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	// Each echo must be immediately followed by its assistant reply: the
	// two sequences may run in either order but never interleave.
	for i := 0; i < 4; i += 2 {
		if msgs[i].Sender.IsAssistant() {
			t.Fatalf("message %d should be a user echo, got assistant", i)
		}
		if !msgs[i+1].Sender.IsAssistant() {
			t.Fatalf("message %d should be the assistant reply", i+1)
		}
	}
	if msgs[0].Sender.ID == msgs[2].Sender.ID {
		t.Fatal("expected the two sequences to come from different sessions")
	}
}

func TestDistinctProjectsProceedConcurrently(t *testing.T) {
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: "reply"}, delay: 80 * time.Millisecond}
	router, _ := newTestRouter(t, st, completer, time.Second)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := &Session{UserID: uuid.New(), ProjectID: uuid.New()}
			router.HandleChat(context.Background(), sess, ChatPayload{Message: "@ai go"})
		}()
	}
	wg.Wait()

	// Serialized execution would take 4x the delay.
	if elapsed := time.Since(start); elapsed > 240*time.Millisecond {
		t.Fatalf("independent projects appear serialized, took %s", elapsed)
	}
	if got := len(st.messages()); got != 8 {
		t.Fatalf("expected 8 messages across projects, got %d", got)
	}
}
