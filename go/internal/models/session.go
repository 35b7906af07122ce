package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one hackathon run: a shared timer plus the teams competing in it.
type Session struct {
	ID           uuid.UUID  `json:"id"`
	Teams        []Team     `json:"teams"`
	Active       bool       `json:"active"`
	Started      bool       `json:"started"`
	StartedAt    *time.Time `json:"start_timestamp,omitempty"`
	EndedAt      *time.Time `json:"end_timestamp,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	BonusApplied bool       `json:"bonus_applied"`
}

// Team returns the team with the given id, or nil if the roster does not
// contain it (remote state may have removed or not yet synced a team).
func (s *Session) Team(id int) *Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots handed to calculators and
// observers are isolated from the live mirror.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.StartedAt = cloneTime(s.StartedAt)
	c.EndedAt = cloneTime(s.EndedAt)
	c.Teams = make([]Team, len(s.Teams))
	for i := range s.Teams {
		c.Teams[i] = *s.Teams[i].Clone()
	}
	return &c
}

// Document converts the session into its persisted whole-document form.
func (s *Session) Document() *SessionDocument {
	teams := make([]Team, len(s.Teams))
	for i := range s.Teams {
		teams[i] = *s.Teams[i].Clone()
	}
	started := s.Started
	active := s.Active
	bonus := s.BonusApplied
	created := s.CreatedAt
	return &SessionDocument{
		Teams:        &teams,
		Started:      &started,
		Active:       &active,
		StartedAt:    cloneTime(s.StartedAt),
		EndedAt:      cloneTime(s.EndedAt),
		CreatedAt:    &created,
		BonusApplied: &bonus,
	}
}

// ApplyDocument merges a remote document into the session. Present fields
// replace local state wholesale; absent fields keep their prior local value,
// which guards against partial-write schemas.
func (s *Session) ApplyDocument(doc *SessionDocument) {
	if doc == nil {
		return
	}
	if doc.Teams != nil {
		teams := make([]Team, len(*doc.Teams))
		for i := range *doc.Teams {
			teams[i] = *(*doc.Teams)[i].Clone()
		}
		s.Teams = teams
	}
	if doc.Started != nil {
		s.Started = *doc.Started
	}
	if doc.Active != nil {
		s.Active = *doc.Active
	}
	if doc.StartedAt != nil {
		s.StartedAt = cloneTime(doc.StartedAt)
	}
	if doc.EndedAt != nil {
		s.EndedAt = cloneTime(doc.EndedAt)
	}
	if doc.CreatedAt != nil {
		s.CreatedAt = *doc.CreatedAt
	}
	if doc.BonusApplied != nil {
		s.BonusApplied = *doc.BonusApplied
	}
}

// SessionDocument is the wire form of a session: one whole-document value
// per session id in the replicated store. Pointer fields distinguish absent
// from zero so merges can fall back to prior local values.
type SessionDocument struct {
	Teams        *[]Team    `json:"teams,omitempty"`
	Started      *bool      `json:"started,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	StartedAt    *time.Time `json:"start_timestamp,omitempty"`
	EndedAt      *time.Time `json:"end_timestamp,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	BonusApplied *bool      `json:"bonus_applied,omitempty"`
}

// RegistryEntry summarizes one session in the registry document.
type RegistryEntry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// SessionRegistry indexes every session ever created so "current session"
// (most recently created with active != false) can be resolved on reconnect.
type SessionRegistry struct {
	Sessions []RegistryEntry `json:"sessions"`
}

// Current returns the most recently created active entry, or nil.
func (r *SessionRegistry) Current() *RegistryEntry {
	var current *RegistryEntry
	for i := range r.Sessions {
		e := &r.Sessions[i]
		if !e.Active {
			continue
		}
		if current == nil || e.CreatedAt.After(current.CreatedAt) {
			current = e
		}
	}
	return current
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
