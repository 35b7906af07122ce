package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/models"
	"github.com/sheetclash/sheetclash/go/internal/replicated"
)

// RegistryKey is the replicated-store key of the session index document.
const RegistryKey = "sessions.registry"

// Team counts are clamped into this range at creation.
const (
	MinTeams = 2
	MaxTeams = 10
)

// Lifecycle violations are boolean-style failures surfaced to the user,
// never fatal.
var (
	ErrNoSession    = errors.New("no active session")
	ErrSessionEnded = errors.New("session already ended")
)

// Signal identifies a lifecycle transition broadcast to observers.
type Signal string

const (
	SignalCreated Signal = "SessionCreated"
	SignalStarted Signal = "SessionStarted"
	SignalEnded   Signal = "SessionEnded"
)

// Event is delivered to lifecycle observers on every transition.
type Event struct {
	Signal    Signal    `json:"signal"`
	SessionID uuid.UUID `json:"session_id"`
	At        time.Time `json:"at"`
}

// Lifecycle drives sessions through Created -> Started -> Ended and
// maintains the system-wide single-active-session invariant: creating a new
// session deactivates every other active one. Transition signals go to an
// explicit observer list rather than ambient global dispatch.
type Lifecycle struct {
	rs    replicated.Store
	clock clockwork.Clock

	mu        sync.Mutex
	current   *Store
	observers []func(Event)
}

// NewLifecycle creates a lifecycle manager.
func NewLifecycle(rs replicated.Store, clock clockwork.Clock) *Lifecycle {
	return &Lifecycle{rs: rs, clock: clock}
}

// OnEvent registers an observer for lifecycle transitions.
func (l *Lifecycle) OnEvent(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Current returns the store of the tracked session, nil when no session
// exists. An ended session remains returned so bonuses can still be applied;
// mutating gameplay operations must check the Active flag themselves.
func (l *Lifecycle) Current() *Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Create deactivates all other active sessions, creates a fresh Created
// session with teamCount teams (clamped to 2..10), and starts tracking it.
// Missing names fall back to "Team N".
func (l *Lifecycle) Create(ctx context.Context, teamCount int, names []string) (*Store, error) {
	if teamCount < MinTeams {
		teamCount = MinTeams
	}
	if teamCount > MaxTeams {
		teamCount = MaxTeams
	}

	registry, err := l.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.deactivateAll(ctx, registry); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	sess := &models.Session{
		ID:        uuid.New(),
		Active:    true,
		CreatedAt: now,
		Teams:     make([]models.Team, teamCount),
	}
	for i := 0; i < teamCount; i++ {
		name := fmt.Sprintf("Team %d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		sess.Teams[i] = models.NewTeam(i+1, name)
	}

	payload, err := json.Marshal(sess.Document())
	if err != nil {
		return nil, fmt.Errorf("marshal session document: %w", err)
	}
	if err := l.rs.Write(ctx, Key(sess.ID.String()), payload); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	registry.Sessions = append(registry.Sessions, models.RegistryEntry{
		ID:        sess.ID,
		CreatedAt: now,
		Active:    true,
	})
	if err := l.saveRegistry(ctx, registry); err != nil {
		return nil, err
	}

	store, err := Open(ctx, l.rs, l.clock, sess)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.current != nil {
		l.current.Close()
	}
	l.current = store
	l.mu.Unlock()

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("teams", teamCount).
		Msg("session created")
	l.emit(Event{Signal: SignalCreated, SessionID: sess.ID, At: now})
	return store, nil
}

// Start transitions the tracked session to Started. Idempotent: starting an
// already-started session is a no-op that still reports success, guarding
// against double-click races across instructor clients.
func (l *Lifecycle) Start(ctx context.Context, sessionID uuid.UUID) error {
	store := l.Current()
	if store == nil || store.ID() != sessionID.String() {
		return ErrNoSession
	}

	started := false
	err := store.Commit(ctx, func(s *models.Session) error {
		if !s.Active {
			return ErrSessionEnded
		}
		if s.Started {
			return nil
		}
		now := l.clock.Now()
		s.Started = true
		s.StartedAt = &now
		// Every team enters phase 0 at the gun.
		for i := range s.Teams {
			if s.Teams[i].PhaseStarts == nil {
				s.Teams[i].PhaseStarts = map[int]time.Time{}
			}
			if _, ok := s.Teams[i].PhaseStarts[0]; !ok {
				s.Teams[i].PhaseStarts[0] = now
			}
		}
		started = true
		return nil
	})
	if err != nil {
		return err
	}
	if started {
		log.Info().Str("session_id", sessionID.String()).Msg("session started")
		l.emit(Event{Signal: SignalStarted, SessionID: sessionID, At: l.clock.Now()})
	}
	return nil
}

// End terminates the session: active goes false and the end timestamp is
// set. Terminal and irreversible; only bonus application may still write
// score deltas afterwards.
func (l *Lifecycle) End(ctx context.Context, sessionID uuid.UUID) error {
	store := l.Current()
	if store == nil || store.ID() != sessionID.String() {
		return ErrNoSession
	}

	err := store.Commit(ctx, func(s *models.Session) error {
		if !s.Active {
			return ErrSessionEnded
		}
		now := l.clock.Now()
		s.Active = false
		s.EndedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	registry, err := l.loadRegistry(ctx)
	if err == nil {
		for i := range registry.Sessions {
			if registry.Sessions[i].ID == sessionID {
				registry.Sessions[i].Active = false
			}
		}
		if err := l.saveRegistry(ctx, registry); err != nil {
			log.Warn().Err(err).Msg("failed to update registry on end")
		}
	} else {
		log.Warn().Err(err).Msg("failed to load registry on end")
	}

	log.Info().Str("session_id", sessionID.String()).Msg("session ended")
	l.emit(Event{Signal: SignalEnded, SessionID: sessionID, At: l.clock.Now()})
	return nil
}

// Resume loads the current session (most recently created with active !=
// false) from the replicated store, e.g. after a reload or reconnect.
// Returns ErrNoSession when none exists.
func (l *Lifecycle) Resume(ctx context.Context) (*Store, error) {
	registry, err := l.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	entry := registry.Current()
	if entry == nil {
		return nil, ErrNoSession
	}

	value, ok, err := l.rs.ReadOnce(ctx, Key(entry.ID.String()))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", entry.ID, err)
	}
	if !ok {
		return nil, ErrNoSession
	}

	var doc models.SessionDocument
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", entry.ID, err)
	}
	sess := &models.Session{ID: entry.ID, CreatedAt: entry.CreatedAt}
	sess.ApplyDocument(&doc)

	store, err := Open(ctx, l.rs, l.clock, sess)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.current != nil {
		l.current.Close()
	}
	l.current = store
	l.mu.Unlock()

	log.Info().Str("session_id", entry.ID.String()).Msg("session resumed")
	return store, nil
}

// Purge physically removes a session document. Sessions are otherwise never
// deleted, only deactivated.
func (l *Lifecycle) Purge(ctx context.Context, sessionID uuid.UUID) error {
	registry, err := l.loadRegistry(ctx)
	if err != nil {
		return err
	}
	kept := registry.Sessions[:0]
	for _, e := range registry.Sessions {
		if e.ID != sessionID {
			kept = append(kept, e)
		}
	}
	registry.Sessions = kept
	if err := l.saveRegistry(ctx, registry); err != nil {
		return err
	}
	return l.rs.Remove(ctx, Key(sessionID.String()))
}

// deactivateAll flips every active session to inactive, enforcing the
// single-active-session invariant before a create.
func (l *Lifecycle) deactivateAll(ctx context.Context, registry *models.SessionRegistry) error {
	for i := range registry.Sessions {
		entry := &registry.Sessions[i]
		if !entry.Active {
			continue
		}
		value, ok, err := l.rs.ReadOnce(ctx, Key(entry.ID.String()))
		if err != nil {
			return fmt.Errorf("read session %s: %w", entry.ID, err)
		}
		entry.Active = false
		if !ok {
			continue
		}
		var doc models.SessionDocument
		if err := json.Unmarshal(value, &doc); err != nil {
			log.Error().Err(err).Str("session_id", entry.ID.String()).Msg("malformed session document, deactivating registry entry only")
			continue
		}
		active := false
		doc.Active = &active
		payload, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("marshal session %s: %w", entry.ID, err)
		}
		if err := l.rs.Write(ctx, Key(entry.ID.String()), payload); err != nil {
			return fmt.Errorf("deactivate session %s: %w", entry.ID, err)
		}
	}
	return nil
}

func (l *Lifecycle) loadRegistry(ctx context.Context) (*models.SessionRegistry, error) {
	value, ok, err := l.rs.ReadOnce(ctx, RegistryKey)
	if err != nil {
		return nil, fmt.Errorf("read session registry: %w", err)
	}
	registry := &models.SessionRegistry{}
	if !ok {
		return registry, nil
	}
	if err := json.Unmarshal(value, registry); err != nil {
		return nil, fmt.Errorf("unmarshal session registry: %w", err)
	}
	return registry, nil
}

func (l *Lifecycle) saveRegistry(ctx context.Context, registry *models.SessionRegistry) error {
	payload, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("marshal session registry: %w", err)
	}
	if err := l.rs.Write(ctx, RegistryKey, payload); err != nil {
		return fmt.Errorf("persist session registry: %w", err)
	}
	return nil
}

func (l *Lifecycle) emit(event Event) {
	l.mu.Lock()
	observers := append(([]func(Event))(nil), l.observers...)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(event)
	}
}
