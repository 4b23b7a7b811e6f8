package stats

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"cycleview/internal/state"
)

// ErrConfirmationRequired is returned when a reset is attempted without the
// caller confirming it first.
var ErrConfirmationRequired = errors.New("stats reset requires confirmation")

type Persister interface {
	Save(ctx context.Context) bool
}

// TimerControl is the subset of the timer the tracker needs when a session
// finishes.
type TimerControl interface {
	Pause()
}

type Notifier interface {
	Notify(message string)
}

// Tracker records completed sessions. A session counts toward exactly one
// counter, favorites or punishments, decided by the content shown when the
// user finishes.
type Tracker struct {
	state    *state.AppState
	persist  Persister
	timer    TimerControl
	notifier Notifier
	logger   zerolog.Logger
}

func NewTracker(st *state.AppState, persist Persister, timer TimerControl, notifier Notifier, logger zerolog.Logger) *Tracker {
	return &Tracker{
		state:    st,
		persist:  persist,
		timer:    timer,
		notifier: notifier,
		logger:   logger.With().Str("component", "stats").Logger(),
	}
}

// Finish marks the current session complete: the timer is paused, the
// counter matching the displayed content is incremented, and the totals are
// persisted.
func (t *Tracker) Finish(ctx context.Context) state.Stats {
	t.timer.Pause()

	punishment := t.state.Content().IsPunishment
	totals := t.state.AddCompleted(punishment)
	t.persist.Save(ctx)

	t.logger.Info().
		Bool("punishment", punishment).
		Int("favoritesCompleted", totals.FavoritesCompleted).
		Int("punishmentsCompleted", totals.PunishmentsCompleted).
		Msg("session finished")
	return totals
}

// Reset zeroes both counters. The caller must confirm.
func (t *Tracker) Reset(ctx context.Context, confirmed bool) (state.Stats, error) {
	if !confirmed {
		return t.state.Stats(), ErrConfirmationRequired
	}
	t.state.ResetStats()
	t.persist.Save(ctx)
	t.notifier.Notify("Session stats reset")
	return t.state.Stats(), nil
}

// Totals returns the current counters.
func (t *Tracker) Totals() state.Stats {
	return t.state.Stats()
}
