package handler

import (
	"net/http"
	"time"
)

// SessionCounter reports the number of open price sessions.
type SessionCounter interface {
	ClientCount() int
}

// OfferCounter reports the number of recorded offers.
type OfferCounter interface {
	Len() int
}

// StatusHandler serves runtime counters for the dashboard.
type StatusHandler struct {
	sessions  SessionCounter
	offers    OfferCounter
	backend   string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(sessions SessionCounter, offers OfferCounter, backend string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{sessions: sessions, offers: offers, backend: backend, startedAt: startedAt}
}

// GetStatus responds with the active session count and ledger size.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"clientCount":    h.sessions.ClientCount(),
		"offerCount":     h.offers.Len(),
		"catalogBackend": h.backend,
		"uptimeSeconds":  int64(time.Since(h.startedAt).Seconds()),
	})
}
