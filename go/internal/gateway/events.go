package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sheetclash/sheetclash/go/internal/alerts"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// SessionEvent is the envelope for every message pushed to clients.
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeStateSync      EventType = "StateSync"
	EventTypeSessionCreated EventType = "SessionCreated"
	EventTypeSessionStarted EventType = "SessionStarted"
	EventTypeSessionEnded   EventType = "SessionEnded"
	EventTypeTimerTick      EventType = "TimerTick"
	EventTypeAlertsUpdated  EventType = "AlertsUpdated"
	EventTypeSubmitResult   EventType = "SubmitResult"
	EventTypeHintResult     EventType = "HintResult"
	EventTypeError          EventType = "Error"
)

// StateSyncPayload carries the full session state. Clients replace their
// local view wholesale; there are no per-field deltas on the wire.
type StateSyncPayload struct {
	Session          *models.Session `json:"session"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

// TimerTickPayload contains periodic countdown updates.
type TimerTickPayload struct {
	RemainingSeconds int       `json:"remaining_seconds"`
	TickedAt         time.Time `json:"ticked_at"`
}

// AlertsUpdatedPayload carries the freshly recomputed pacing alerts.
type AlertsUpdatedPayload struct {
	Alerts []alerts.Alert `json:"alerts"`
}

// HintResultPayload acknowledges a hint request.
type HintResultPayload struct {
	TeamID  int  `json:"team_id"`
	Tier    int  `json:"tier"`
	Granted bool `json:"granted"`
}

// ErrorPayload reports a rejected client action.
type ErrorPayload struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// NewSessionEvent builds an envelope with a marshaled payload. Marshal
// failures are programming errors (all payload types are plain structs), so
// the data is dropped rather than propagated.
func NewSessionEvent(sessionID string, eventType EventType, payload interface{}) *SessionEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return &SessionEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
