package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/metrics"
)

// Hub is the live index from project id to the set of connected clients.
// Rooms are created lazily on first join and pruned when the last client
// leaves; the hub holds no state for empty rooms.
type Hub struct {
	log zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		log:   logger,
		rooms: make(map[string]map[*Client]bool),
	}
}

// Join adds a client to a project's room, creating the room if needed.
// Joining twice is a no-op. Returns the room's membership size, for
// observability only.
func (h *Hub) Join(projectID string, c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[projectID] = room
	}
	if !room[c] {
		room[c] = true
		metrics.SocketConnections.Inc()
	}

	h.log.Debug().Str("project", projectID).Int("members", len(room)).Msg("client joined room")
	return len(room)
}

// Leave removes a client from a project's room and closes its send channel.
// The room is pruned once empty. Leaving a room the client is not in is a
// no-op.
func (h *Hub) Leave(projectID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[projectID]
	if !ok || !room[c] {
		return
	}

	delete(room, c)
	close(c.send)
	metrics.SocketConnections.Dec()

	if len(room) == 0 {
		delete(h.rooms, projectID)
	}

	h.log.Debug().Str("project", projectID).Int("members", len(room)).Msg("client left room")
}

// Broadcast delivers a frame to every client in the project's room,
// including the sender. Delivery is best-effort per client: a client whose
// send buffer is full misses the frame, the rest are unaffected.
func (h *Hub) Broadcast(projectID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[projectID] {
		select {
		case c.send <- frame:
		default:
			metrics.BroadcastsDropped.Inc()
			h.log.Warn().Str("project", projectID).Msg("client send buffer full, dropping frame")
		}
	}
}

// RoomSize returns the current membership count for a project's room.
func (h *Hub) RoomSize(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}
