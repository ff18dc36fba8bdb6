package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Run is the state of one invocation. It is created at start-up and handed
// to every component instead of living in package globals.
type Run struct {
	ID     string
	Logger *slog.Logger
	Start  time.Time
	// Budget bounds the run's wall-clock time; zero means unbounded.
	Budget time.Duration

	Items int
	Pages int

	now func() time.Time
}

// NewRun starts a run now.
func NewRun(logger *slog.Logger, budget time.Duration) *Run {
	return NewRunWithClock(logger, budget, time.Now)
}

// NewRunWithClock starts a run using the given clock.
func NewRunWithClock(logger *slog.Logger, budget time.Duration, now func() time.Time) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Run{
		ID:     id,
		Logger: logger.With("run", id),
		Start:  now(),
		Budget: budget,
		now:    now,
	}
}

// Now reads the run's clock.
func (r *Run) Now() time.Time {
	return r.now()
}

// Elapsed is the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return r.now().Sub(r.Start)
}

// Expired reports whether the budget has been used up.
func (r *Run) Expired() bool {
	return r.Budget > 0 && r.Elapsed() > r.Budget
}
