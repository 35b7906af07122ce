package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sheetclash/sheetclash/go/internal/models"
	"github.com/sheetclash/sheetclash/go/internal/replicated"
)

// EchoGraceWindow is how long after a local write its own change
// notification is still treated as an echo. It must cover at least one
// network round-trip to the replicated store.
const EchoGraceWindow = 500 * time.Millisecond

// Change describes a merged update to the mirror. Remote is false for the
// snapshot taken right after a local commit.
type Change struct {
	Session *models.Session
	Remote  bool
}

// Store owns the local authoritative mirror of one session. Local mutations
// go through Commit, which pushes the whole document to the replicated
// store; remote change notifications are merged back in, with the echo of
// our own just-written state suppressed so a write never triggers another
// write (breaking the write -> notify -> write loop).
type Store struct {
	rs    replicated.Store
	clock clockwork.Clock

	mu         sync.Mutex
	mirror     *models.Session
	syncing    bool
	graceTimer clockwork.Timer
	observers  []func(Change)

	stop     func()
	stopOnce sync.Once
}

// Open attaches a store to the given session, subscribing to its key in the
// replicated store. The session is cloned; callers must mutate only through
// Commit afterwards.
func Open(ctx context.Context, rs replicated.Store, clock clockwork.Clock, sess *models.Session) (*Store, error) {
	s := &Store{
		rs:     rs,
		clock:  clock,
		mirror: sess.Clone(),
	}

	stop, err := rs.Subscribe(ctx, Key(s.mirror.ID.String()), s.onChange)
	if err != nil {
		return nil, fmt.Errorf("subscribe session %s: %w", s.mirror.ID, err)
	}
	s.stop = stop
	return s, nil
}

// Key returns the replicated-store key for a session id.
func Key(sessionID string) string {
	return "session." + sessionID
}

// ID returns the tracked session's id.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.ID.String()
}

// Snapshot returns an isolated copy of the current mirror.
func (s *Store) Snapshot() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.Clone()
}

// OnChange registers an observer for merged updates. Observers run on the
// notification goroutine and must not block.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Commit is the single write entry point: it applies mutate to the mirror,
// then pushes the full document to the replicated store. A mutator error
// aborts the commit without writing. A failed write keeps the optimistic
// local state (no rollback); the next successful write reconciles, and the
// caller surfaces a transient "try again" to the user.
func (s *Store) Commit(ctx context.Context, mutate func(*models.Session) error) error {
	s.mu.Lock()
	if err := mutate(s.mirror); err != nil {
		s.mu.Unlock()
		return err
	}
	payload, err := json.Marshal(s.mirror.Document())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("marshal session document: %w", err)
	}
	key := Key(s.mirror.ID.String())
	snapshot := s.mirror.Clone()
	s.beginEchoLocked()
	s.mu.Unlock()

	s.emit(Change{Session: snapshot, Remote: false})

	if err := s.rs.Write(ctx, key, payload); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", snapshot.ID.String()).
			Msg("session push failed, local state kept")
		return fmt.Errorf("push session: %w", err)
	}
	return nil
}

// onChange merges a notification from the replicated store. While syncing
// is set the value is assumed to be the echo of the just-completed local
// write: it is still merged (it carries our own state) but no remote-change
// event is emitted, so observers cannot react by writing again.
func (s *Store) onChange(value []byte) {
	var doc models.SessionDocument
	if err := json.Unmarshal(value, &doc); err != nil {
		log.Error().Err(err).Msg("malformed session document, skipping merge")
		return
	}

	s.mu.Lock()
	echo := s.syncing
	s.mirror.ApplyDocument(&doc)
	snapshot := s.mirror.Clone()
	s.mu.Unlock()

	if echo {
		log.Debug().
			Str("session_id", snapshot.ID.String()).
			Msg("dropping echo of local write")
		return
	}
	s.emit(Change{Session: snapshot, Remote: true})
}

// beginEchoLocked marks the store as syncing and arms the grace timer that
// clears the flag. Called with mu held.
func (s *Store) beginEchoLocked() {
	s.syncing = true
	if s.graceTimer == nil {
		s.graceTimer = s.clock.AfterFunc(EchoGraceWindow, s.clearEcho)
		return
	}
	s.graceTimer.Reset(EchoGraceWindow)
}

func (s *Store) clearEcho() {
	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

func (s *Store) emit(change Change) {
	s.mu.Lock()
	observers := append(([]func(Change))(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(change)
	}
}

// Close stops the subscription. The mirror stays readable.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		s.mu.Lock()
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
		s.mu.Unlock()
	})
}
