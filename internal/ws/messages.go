package ws

import (
	"encoding/json"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// EventProjectMessage is the chat event name, inbound and outbound.
const EventProjectMessage = "project-message"

// Envelope is the wire frame for all socket events.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatPayload is the data of a project-message event. The sender field is
// informational context from the caller; the authoritative identity is the
// session's.
type ChatPayload struct {
	Message string        `json:"message"`
	Sender  models.Sender `json:"sender"`
}

// chatFrame encodes an outbound project-message frame for a message.
func chatFrame(msg *models.Message) ([]byte, error) {
	data, err := json.Marshal(struct {
		ID      string        `json:"id"`
		Message string        `json:"message"`
		Sender  models.Sender `json:"sender"`
		TS      int64         `json:"ts"`
	}{
		ID:      msg.ID,
		Message: msg.Body,
		Sender:  msg.Sender,
		TS:      msg.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventProjectMessage, Data: data})
}
