package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/archive"
)

// HistoryHandler exposes the archived-session history: past leaderboards
// for instructors, plus the explicit purge that is the only way an
// archived session is ever deleted.
type HistoryHandler struct {
	repo *archive.Repository
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo *archive.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// HandleListSessions handles GET /api/history
func (h *HistoryHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := h.repo.ListArchivedSessions(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list archived sessions")
		http.Error(w, "failed to list archived sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// HandleSession handles GET and DELETE on /api/history/{id}
func (h *HistoryHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimPrefix(r.URL.Path, "/api/history/")
	resultsWanted := false
	if rest, ok := strings.CutSuffix(idPart, "/results"); ok {
		idPart = rest
		resultsWanted = true
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet && resultsWanted:
		h.getResults(w, r, id)
	case r.Method == http.MethodGet:
		h.getSession(w, r, id)
	case r.Method == http.MethodDelete && !resultsWanted:
		h.purgeSession(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HistoryHandler) getSession(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, err := h.repo.GetArchivedSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			http.Error(w, "archived session not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to get archived session")
		http.Error(w, "failed to get archived session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *HistoryHandler) getResults(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	results, err := h.repo.ListTeamResults(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to list team results")
		http.Error(w, "failed to list team results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *HistoryHandler) purgeSession(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.repo.PurgeArchivedSession(r.Context(), id); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			http.Error(w, "archived session not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to purge archived session")
		http.Error(w, "failed to purge archived session", http.StatusInternalServerError)
		return
	}
	log.Info().Str("session_id", id.String()).Msg("archived session purged")
	w.WriteHeader(http.StatusNoContent)
}

// RegisterHistoryRoutes registers the history HTTP routes
func (h *HistoryHandler) RegisterHistoryRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.HandleListSessions)
	mux.HandleFunc("/api/history/", h.HandleSession)
}
