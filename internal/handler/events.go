package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/datasmith/datasmith/internal/history"
)

// EventsHandler serves the recent-activity log.
type EventsHandler struct {
	store *history.Store
}

// NewEventsHandler creates the handler over a history store.
func NewEventsHandler(store *history.Store) *EventsHandler {
	return &EventsHandler{store: store}
}

// ListEvents returns recent domain events, newest first. Query params:
// session, type, since (RFC 3339), limit.
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := history.QueryOptions{
		SessionID: q.Get("session"),
		EventType: q.Get("type"),
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAM", "since must be RFC 3339")
			return
		}
		opts.Since = &ts
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAM", "limit must be an integer")
			return
		}
		opts.Limit = n
	}

	events, total := h.store.Query(opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
	})
}
