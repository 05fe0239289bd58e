package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/ai"
)

func newTestServer(t *testing.T) (*Server, *Hub, *recordingStore, uuid.UUID) {
	t.Helper()

	authn, project := newTestAuthenticator(t)
	hub := NewHub(zerolog.Nop())
	st := &recordingStore{}
	completer := &fakeCompleter{result: &ai.Result{Raw: `{"text":"done"}`}}
	router := NewRouter(hub, st, nil, completer, time.Second, zerolog.Nop())

	return NewServer(hub, router, authn, nil, zerolog.Nop()), hub, st, project.ID
}

func wsURL(t *testing.T, srv *httptest.Server, query url.Values) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query.Encode()
}

func TestHandleConnectRejectsBeforeUpgrade(t *testing.T) {
	server, hub, _, projectID := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(server.HandleConnect))
	defer srv.Close()

	validToken := signTestToken(t, uuid.New())

	tests := []struct {
		name       string
		query      url.Values
		wantStatus int
	}{
		{"missing project", url.Values{"token": {validToken}}, http.StatusBadRequest},
		{"invalid project", url.Values{"projectId": {"nope"}, "token": {validToken}}, http.StatusBadRequest},
		{"project not found", url.Values{"projectId": {uuid.New().String()}, "token": {validToken}}, http.StatusNotFound},
		{"missing credential", url.Values{"projectId": {projectID.String()}}, http.StatusUnauthorized},
		{"invalid credential", url.Values{"projectId": {projectID.String()}, "token": {"garbage"}}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/?" + tt.query.Encode())
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("got status %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Fatal("rejection must carry a reason")
			}
			if n := hub.RoomSize(projectID.String()); n != 0 {
				t.Fatalf("rejected handshake must not join a room, size %d", n)
			}
		})
	}
}

func TestSocketRoundTrip(t *testing.T) {
	server, hub, st, projectID := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(server.HandleConnect))
	defer srv.Close()

	userID := uuid.New()
	query := url.Values{"projectId": {projectID.String()}, "token": {signTestToken(t, userID)}}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, srv, query), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// A second tab joins the same room.
	peer, _, err := websocket.DefaultDialer.Dial(wsURL(t, srv, query), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	waitForMembers(t, hub, projectID.String(), 2)

	send := func(text string) {
		t.Helper()
		data, _ := json.Marshal(ChatPayload{Message: text})
		frame, _ := json.Marshal(Envelope{Event: EventProjectMessage, Data: data})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatal(err)
		}
	}

	read := func(c *websocket.Conn) ChatPayload {
		t.Helper()
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := c.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatal(err)
		}
		var payload ChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatal(err)
		}
		return payload
	}

	// Malformed frames are dropped without closing the connection.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}

	send("hello")
	for _, c := range []*websocket.Conn{conn, peer} {
		got := read(c)
		if got.Message != "hello" || got.Sender.ID != userID.String() {
			t.Fatalf("unexpected payload %+v", got)
		}
	}

	send("@ai add a readme")
	for _, c := range []*websocket.Conn{conn, peer} {
		first := read(c)
		if first.Message != "@ai add a readme" || first.Sender.ID != userID.String() {
			t.Fatalf("echo must precede the reply, got %+v", first)
		}
		second := read(c)
		if second.Sender.ID != "ai" || second.Message != `{"text":"done"}` {
			t.Fatalf("unexpected assistant payload %+v", second)
		}
	}

	if got := len(st.messages()); got != 3 {
		t.Fatalf("expected 3 persisted messages, got %d", got)
	}

	// Disconnecting one session leaves the other fully functional.
	peer.Close()
	waitForMembers(t, hub, projectID.String(), 1)

	send("still alive")
	if got := read(conn); got.Message != "still alive" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func waitForMembers(t *testing.T, hub *Hub, projectID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomSize(projectID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room never reached %d members (have %d)", want, hub.RoomSize(projectID))
}
