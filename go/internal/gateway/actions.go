package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/hackathon"
	"github.com/sheetclash/sheetclash/go/internal/session"
)

// ActionType identifies a client-initiated action.
type ActionType string

const (
	ActionSubmitAnswer   ActionType = "submit_answer"
	ActionRequestHint    ActionType = "request_hint"
	ActionUpdateProgress ActionType = "update_progress"
	ActionSyncRequest    ActionType = "sync_request"
)

// ClientAction is the message teams send over the WebSocket.
type ClientAction struct {
	Type       ActionType `json:"type"`
	TeamID     int        `json:"team_id"`
	ExerciseID string     `json:"exercise_id,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	Tier       int        `json:"tier,omitempty"`
	Level      int        `json:"level,omitempty"`
	Percent    int        `json:"percent,omitempty"`
}

// ActionRouter dispatches client actions into the application layer and
// acknowledges results on the originating connection. State changes fan out
// to everyone separately through the service's change subscription.
type ActionRouter struct {
	app *hackathon.App
	cm  *ConnectionManager
}

// NewActionRouter creates an action router.
func NewActionRouter(app *hackathon.App, cm *ConnectionManager) *ActionRouter {
	return &ActionRouter{app: app, cm: cm}
}

// Handle processes one client action.
func (r *ActionRouter) Handle(ctx context.Context, conn *Connection, action *ClientAction) {
	switch action.Type {
	case ActionSubmitAnswer:
		result, err := r.app.SubmitAnswer(ctx, action.TeamID, action.ExerciseID, action.Answer)
		if err != nil {
			r.reject(conn, action, err)
			return
		}
		r.cm.SendToConnection(conn, NewSessionEvent(conn.SessionID.String(), EventTypeSubmitResult, result))

	case ActionRequestHint:
		granted, err := r.app.RequestHint(ctx, action.TeamID, action.Tier)
		if err != nil {
			r.reject(conn, action, err)
			return
		}
		r.cm.SendToConnection(conn, NewSessionEvent(conn.SessionID.String(), EventTypeHintResult, HintResultPayload{
			TeamID:  action.TeamID,
			Tier:    action.Tier,
			Granted: granted,
		}))

	case ActionUpdateProgress:
		if err := r.app.UpdateProgress(ctx, action.TeamID, action.Level, action.Percent); err != nil {
			r.reject(conn, action, err)
		}

	case ActionSyncRequest:
		snapshot, err := r.app.State()
		if err != nil {
			r.reject(conn, action, err)
			return
		}
		remaining, _ := r.app.RemainingSeconds()
		r.cm.SendToConnection(conn, NewSessionEvent(snapshot.ID.String(), EventTypeStateSync, StateSyncPayload{
			Session:          snapshot,
			RemainingSeconds: remaining,
		}))

	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("action", string(action.Type)).
			Msg("unknown client action")
	}
}

// reject sends an error event back to the acting client. Expected rejections
// (no session, not running, unknown team) are debug noise, not errors.
func (r *ActionRouter) reject(conn *Connection, action *ClientAction, err error) {
	if errors.Is(err, session.ErrNoSession) ||
		errors.Is(err, hackathon.ErrNotRunning) ||
		errors.Is(err, hackathon.ErrUnknownTeam) ||
		errors.Is(err, hackathon.ErrUnknownExercise) {
		log.Debug().
			Err(err).
			Str("connection_id", conn.ID).
			Str("action", string(action.Type)).
			Msg("client action rejected")
	} else {
		log.Error().
			Err(err).
			Str("connection_id", conn.ID).
			Str("action", string(action.Type)).
			Msg("client action failed")
	}
	r.cm.SendToConnection(conn, NewSessionEvent(conn.SessionID.String(), EventTypeError, ErrorPayload{
		Action:  string(action.Type),
		Message: err.Error(),
	}))
}
