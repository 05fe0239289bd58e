package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

// Placeholder is the fixed reply emitted when a completion fails. It is
// indistinguishable in shape from a normal assistant reply.
const Placeholder = "Sorry, I could not process your request."

// ErrEmptyCompletion is returned when the provider responds with no content.
var ErrEmptyCompletion = errors.New("provider returned empty completion")

// Result is a completion outcome: the raw provider text plus a best-effort
// structured view. Raw is what gets broadcast and persisted; clients parse
// it the same way Parse does.
type Result struct {
	Raw      string
	Text     string
	FileTree models.FileTree
}

// Completer is the contract to an external completion provider. At most one
// upstream call is made per invocation; no retries.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Result, error)
}

// structured is the JSON shape assistant replies are expected to use.
type structured struct {
	Text     string          `json:"text"`
	FileTree models.FileTree `json:"fileTree"`
}

// Parse turns a raw provider response into a Result. Responses that are not
// well-formed structured JSON fall back to plain display text; a parse
// problem is never an error.
func Parse(raw string) (*Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyCompletion
	}

	res := &Result{Raw: raw}

	// Providers often wrap JSON in a markdown fence.
	candidate := trimmed
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimPrefix(candidate, "```json")
		candidate = strings.TrimPrefix(candidate, "```")
		candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")
		candidate = strings.TrimSpace(candidate)
	}

	var s structured
	if err := json.Unmarshal([]byte(candidate), &s); err == nil && (s.Text != "" || len(s.FileTree) > 0) {
		res.Raw = candidate
		res.Text = s.Text
		res.FileTree = s.FileTree
		return res, nil
	}

	res.Text = trimmed
	return res, nil
}

// disabled is the Completer used when no provider is configured.
type disabled struct{}

func (disabled) Complete(ctx context.Context, prompt string) (*Result, error) {
	return nil, errors.New("no completion provider configured")
}

// Disabled returns a Completer that always fails, so the router degrades to
// the placeholder reply instead of crashing the chat path.
func Disabled() Completer {
	return disabled{}
}
