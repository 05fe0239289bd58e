package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/abbaskhalil042/smart-talk/internal/ai"
	"github.com/abbaskhalil042/smart-talk/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store     store.DataStore
	redis     *store.RedisStore // may be nil
	completer ai.Completer
	aiTimeout time.Duration
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(dataStore store.DataStore, redis *store.RedisStore, completer ai.Completer, aiTimeout time.Duration) *Handler {
	return &Handler{
		store:     dataStore,
		redis:     redis,
		completer: completer,
		aiTimeout: aiTimeout,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control
// characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
