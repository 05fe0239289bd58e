package models

// Sender identifies the author of a message. The reserved id "ai" with
// display label "AI" marks messages produced by the assistant.
type Sender struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// AssistantSender is the synthetic identity attached to assistant replies.
var AssistantSender = Sender{ID: "ai", Email: "AI"}

// IsAssistant reports whether the sender is the embedded assistant.
func (s Sender) IsAssistant() bool {
	return s.ID == AssistantSender.ID
}

// Message represents one entry in a project's chat log.
// Assistant replies carry a JSON body with optional display text and an
// optional file-tree delta; clients parse it, the server stores it verbatim.
type Message struct {
	ID        string `json:"id"` // ULID
	ProjectID string `json:"project_id,omitempty"`
	Sender    Sender `json:"sender"`
	Body      string `json:"message"`
	Timestamp int64  `json:"ts"` // Unix ms; persistence order is authoritative
}
