package gateway

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/hackathon"
)

// WebSocketHandler handles WebSocket upgrade requests for session connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               *hackathon.App
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, app *hackathon.App) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		app:               app,
	}
}

// HandleSessionConnection handles WebSocket connections to the current
// session. Clients always attach to the single active session; team_id is
// optional and zero for instructor and leaderboard views.
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.app.State()
	if err != nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	teamID := 0
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		teamID, err = strconv.Atoi(raw)
		if err != nil || snapshot.Team(teamID) == nil {
			http.Error(w, "invalid team_id", http.StatusBadRequest)
			return
		}
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, teamID, snapshot.ID)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", snapshot.ID.String()).
			Int("team_id", teamID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	// New clients get the full state immediately, then live updates.
	remaining, _ := h.app.RemainingSeconds()
	h.connectionManager.SendToConnection(conn, NewSessionEvent(snapshot.ID.String(), EventTypeStateSync, StateSyncPayload{
		Session:          snapshot,
		RemainingSeconds: remaining,
	}))
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	w.Write([]byte("{"))
	w.Write([]byte("\"total_connections\":" + strconv.Itoa(stats["total_connections"].(int)) + ","))
	w.Write([]byte("\"active_sessions\":" + strconv.Itoa(stats["active_sessions"].(int))))
	w.Write([]byte("}"))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
