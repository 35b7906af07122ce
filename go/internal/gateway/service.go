package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/archive"
	"github.com/sheetclash/sheetclash/go/internal/hackathon"
	"github.com/sheetclash/sheetclash/go/internal/session"
)

// TickInterval is the countdown broadcast period.
const TickInterval = time.Second

// AlertsInterval is how often pacing alerts are recomputed and broadcast.
const AlertsInterval = 15 * time.Second

// Service is the session gateway: it owns the WebSocket fan-out and pushes
// every merged session change, lifecycle transition, countdown tick and
// alert refresh to connected clients.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	sessionHandler    *SessionHandler
	historyHandler    *HistoryHandler
	router            *ActionRouter
	app               *hackathon.App
	clock             clockwork.Clock
}

// Config holds configuration for the session gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the session gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new session gateway service
func NewService(config Config, app *hackathon.App, clock clockwork.Clock) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	router := NewActionRouter(app, connectionManager)
	connectionManager.SetActionHandler(router.Handle)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, app),
		sessionHandler:    NewSessionHandler(app),
		router:            router,
		app:               app,
		clock:             clock,
	}

	app.Lifecycle().OnEvent(s.onLifecycleEvent)
	if store := app.Lifecycle().Current(); store != nil {
		s.attachStore(store)
	}
	return s
}

// Start begins the gateway service and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)
	go s.tickLoop(ctx)

	<-ctx.Done()
	log.Info().Msg("session gateway service stopped")
	return nil
}

// EnableHistory adds the archived-session endpoints. Without it the
// gateway runs with the live-session surface only.
func (s *Service) EnableHistory(repo *archive.Repository) {
	s.historyHandler = NewHistoryHandler(repo)
}

// RegisterRoutes registers the gateway HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.sessionHandler.RegisterSessionRoutes(mux)
	if s.historyHandler != nil {
		s.historyHandler.RegisterHistoryRoutes(mux)
	}
	log.Info().Msg("session gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "session_gateway"
	stats["status"] = "running"
	return stats
}

// onLifecycleEvent broadcasts the transition and, for a new session,
// attaches the gateway to its store so merged changes fan out.
func (s *Service) onLifecycleEvent(event session.Event) {
	var eventType EventType
	switch event.Signal {
	case session.SignalCreated:
		eventType = EventTypeSessionCreated
		if store := s.app.Lifecycle().Current(); store != nil {
			s.attachStore(store)
		}
	case session.SignalStarted:
		eventType = EventTypeSessionStarted
	case session.SignalEnded:
		eventType = EventTypeSessionEnded
	default:
		return
	}
	s.connectionManager.BroadcastToSession(event.SessionID, NewSessionEvent(event.SessionID.String(), eventType, event))
}

// attachStore subscribes to a session store's merged changes. Both local
// commits and merged remote updates become a full-state push; observers of
// the store never write back, so the broadcast cannot loop.
func (s *Service) attachStore(store *session.Store) {
	store.OnChange(func(change session.Change) {
		remaining, _ := s.app.RemainingSeconds()
		s.connectionManager.BroadcastToSession(change.Session.ID, NewSessionEvent(change.Session.ID.String(), EventTypeStateSync, StateSyncPayload{
			Session:          change.Session,
			RemainingSeconds: remaining,
		}))
	})
}

// tickLoop pushes the authoritative countdown every second and refreshed
// alerts periodically while a session is running.
func (s *Service) tickLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	var sinceAlerts time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		snapshot, err := s.app.State()
		if err != nil || !snapshot.Started || !snapshot.Active {
			continue
		}
		sessionID := snapshot.ID

		remaining, err := s.app.RemainingSeconds()
		if err != nil {
			continue
		}
		s.connectionManager.BroadcastToSession(sessionID, NewSessionEvent(sessionID.String(), EventTypeTimerTick, TimerTickPayload{
			RemainingSeconds: remaining,
			TickedAt:         s.clock.Now(),
		}))

		sinceAlerts += TickInterval
		if sinceAlerts >= AlertsInterval {
			sinceAlerts = 0
			s.broadcastAlerts(sessionID)
		}
	}
}

func (s *Service) broadcastAlerts(sessionID uuid.UUID) {
	alertList, err := s.app.Alerts()
	if err != nil {
		return
	}
	s.connectionManager.BroadcastToSession(sessionID, NewSessionEvent(sessionID.String(), EventTypeAlertsUpdated, AlertsUpdatedPayload{
		Alerts: alertList,
	}))
}
