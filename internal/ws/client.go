package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per client before broadcasts are dropped.
	sendBuffer = 256
)

// Client is one live websocket connection bound to an authenticated
// session.
type Client struct {
	session *Session
	hub     *Hub
	router  *Router
	conn    *websocket.Conn
	send    chan []byte
	onClose func()
	log     zerolog.Logger
}

func newClient(sess *Session, hub *Hub, router *Router, conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		session: sess,
		hub:     hub,
		router:  router,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		log: logger.With().
			Str("project", sess.ProjectID.String()).
			Str("user", sess.UserID.String()).
			Logger(),
	}
}

// readPump pumps inbound events from the connection into the router. It
// owns room membership cleanup: any transport-level close releases the
// session's membership without affecting the log or other sessions.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c.session.ProjectID.String(), c)
		if c.onClose != nil {
			c.onClose()
		}
		c.conn.Close()
		c.log.Info().Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Error().Err(err).Msg("websocket read error")
			}
			return
		}

		// Malformed events are dropped; the connection stays up.
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}

		switch env.Event {
		case EventProjectMessage:
			var payload ChatPayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				c.log.Debug().Err(err).Msg("dropping malformed chat payload")
				continue
			}
			c.router.HandleChat(context.Background(), c.session, payload)

		default:
			c.log.Debug().Str("event", env.Event).Msg("unknown event")
		}
	}
}

// writePump pumps frames from the send channel to the connection and keeps
// the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
