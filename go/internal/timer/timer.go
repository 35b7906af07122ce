package timer

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sheetclash/sheetclash/go/internal/models"
)

// Clock derives remaining and elapsed session time from the absolute start
// timestamp. It never ticks a local counter: remaining time is a pure
// function of wall-clock time, so every client converges to the same value
// after any pause, background throttling, or reconnect. Local countdowns are
// cosmetic and must re-derive from Remaining on every resync.
type Clock struct {
	clock clockwork.Clock
	total time.Duration
}

// New creates a session timer with the fixed total duration.
func New(clock clockwork.Clock, total time.Duration) *Clock {
	return &Clock{clock: clock, total: total}
}

// Total returns the fixed session duration.
func (c *Clock) Total() time.Duration {
	return c.total
}

// Remaining returns the time left in the session. Before start it is the
// full duration; afterwards it decreases to zero and never goes negative.
func (c *Clock) Remaining(session *models.Session) time.Duration {
	if session == nil || session.StartedAt == nil {
		return c.total
	}
	remaining := c.total - c.clock.Now().Sub(*session.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds is Remaining rounded down to whole seconds, the form
// clients display.
func (c *Clock) RemainingSeconds(session *models.Session) int {
	return int(c.Remaining(session) / time.Second)
}

// Elapsed returns how long the session has been running, zero before start.
func (c *Clock) Elapsed(session *models.Session) time.Duration {
	if session == nil || session.StartedAt == nil {
		return 0
	}
	elapsed := c.clock.Now().Sub(*session.StartedAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > c.total {
		return c.total
	}
	return elapsed
}
