package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/hackathon"
	"github.com/sheetclash/sheetclash/go/internal/session"
)

// SessionHandler exposes the instructor-facing HTTP surface: session
// lifecycle plus read-only state, timer and alert endpoints.
type SessionHandler struct {
	app *hackathon.App
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(app *hackathon.App) *SessionHandler {
	return &SessionHandler{app: app}
}

// CreateSessionRequest is the body of POST /api/session.
type CreateSessionRequest struct {
	TeamCount int      `json:"team_count"`
	TeamNames []string `json:"team_names,omitempty"`
}

// HandleCreateSession handles POST /api/session
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.app.CreateSession(r.Context(), req.TeamCount, req.TeamNames)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleStartSession handles POST /api/session/start
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.StartSession(r.Context()); err != nil {
		h.writeLifecycleError(w, err, "failed to start session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEndSession handles POST /api/session/end
func (h *SessionHandler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.EndSession(r.Context()); err != nil {
		h.writeLifecycleError(w, err, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetState handles GET /api/session/state
func (h *SessionHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snapshot, err := h.app.State()
	if err != nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	remaining, _ := h.app.RemainingSeconds()
	writeJSON(w, http.StatusOK, StateSyncPayload{
		Session:          snapshot,
		RemainingSeconds: remaining,
	})
}

// HandleGetTimer handles GET /api/session/timer
func (h *SessionHandler) HandleGetTimer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	remaining, err := h.app.RemainingSeconds()
	if err != nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"remaining_seconds": remaining})
}

// HandleGetAlerts handles GET /api/session/alerts
func (h *SessionHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	alertList, err := h.app.Alerts()
	if err != nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, AlertsUpdatedPayload{Alerts: alertList})
}

// RegisterSessionRoutes registers the session HTTP routes
func (h *SessionHandler) RegisterSessionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", h.HandleCreateSession)
	mux.HandleFunc("/api/session/start", h.HandleStartSession)
	mux.HandleFunc("/api/session/end", h.HandleEndSession)
	mux.HandleFunc("/api/session/state", h.HandleGetState)
	mux.HandleFunc("/api/session/timer", h.HandleGetTimer)
	mux.HandleFunc("/api/session/alerts", h.HandleGetAlerts)
}

func (h *SessionHandler) writeLifecycleError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		http.Error(w, "no active session", http.StatusNotFound)
	case errors.Is(err, session.ErrSessionEnded):
		http.Error(w, "session already ended", http.StatusConflict)
	default:
		log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
