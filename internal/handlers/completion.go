package handlers

import (
	"context"
	"net/http"
)

// GetCompletion handles the direct completion endpoint (authenticated).
// It shares the adapter with the socket router, including the failure
// taxonomy, but surfaces provider failures as HTTP errors since there is
// no room to degrade into.
func (h *Handler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		h.Error(w, http.StatusBadRequest, "prompt query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.aiTimeout)
	defer cancel()

	result, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		h.Error(w, http.StatusBadGateway, "completion failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Raw))
}
