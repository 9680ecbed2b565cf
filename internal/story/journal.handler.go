package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 200
)

type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]model.DispatchEvent, error)
}

// JournalHandler serves the dispatch journal to operators.
type JournalHandler struct {
	Journal JournalReader
}

func NewJournalHandler(journal JournalReader) *JournalHandler {
	return &JournalHandler{Journal: journal}
}

func (h *JournalHandler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	events, err := h.Journal.Recent(r.Context(), limit)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list dispatches: %v", err)
		http.Error(w, "Failed to list dispatches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
