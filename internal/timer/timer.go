package timer

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultTick = time.Second

// Engine is the countdown scheduler. At most one countdown task is alive
// at any instant; every Start cancels the previous task first.
type Engine struct {
	mu       sync.Mutex
	seconds  int
	original int
	paused   bool
	cancel   chan struct{}

	bounds   func() (min, max int)
	tick     time.Duration
	onExpire func()
	onPause  func(paused bool)
	logger   zerolog.Logger
}

// New builds an engine. bounds supplies the configured [timerMin, timerMax]
// range for random durations.
func New(bounds func() (min, max int), logger zerolog.Logger) *Engine {
	return &Engine{
		bounds: bounds,
		tick:   defaultTick,
		logger: logger.With().Str("component", "timer").Logger(),
	}
}

// SetOnExpire registers the zero-reached callback (next-cycle trigger).
func (e *Engine) SetOnExpire(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExpire = fn
}

// SetOnPause registers the pause-state callback (metronome suspension).
func (e *Engine) SetOnPause(fn func(paused bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPause = fn
}

// SetTick overrides the tick interval. Intended for tests.
func (e *Engine) SetTick(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.tick = d
	}
}

// Start begins a countdown. Non-positive seconds picks a uniformly random
// duration within the configured bounds.
func (e *Engine) Start(seconds int) int {
	e.mu.Lock()
	e.stopLocked()

	if seconds <= 0 {
		seconds = e.randomLocked()
	}
	e.seconds = seconds
	e.original = seconds
	e.paused = false

	cancel := make(chan struct{})
	e.cancel = cancel
	tick := e.tick
	e.mu.Unlock()

	go e.run(cancel, tick)

	e.logger.Debug().Int("seconds", seconds).Msg("timer started")
	return seconds
}

func (e *Engine) run(cancel chan struct{}, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.cancel != cancel {
				// Superseded by a newer countdown.
				e.mu.Unlock()
				return
			}
			if e.paused {
				e.mu.Unlock()
				continue
			}
			e.seconds--
			if e.seconds > 0 {
				e.mu.Unlock()
				continue
			}
			e.seconds = 0
			e.cancel = nil
			expire := e.onExpire
			e.mu.Unlock()

			if expire != nil {
				expire()
			}
			return
		}
	}
}

// Stop cancels the active countdown without firing the expiry callback.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		close(e.cancel)
		e.cancel = nil
	}
}

// TogglePause flips the pause flag and reports the new state. The countdown
// task keeps ticking while paused but performs no decrement.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	e.paused = !e.paused
	paused := e.paused
	onPause := e.onPause
	e.mu.Unlock()

	if onPause != nil {
		onPause(paused)
	}
	return paused
}

// Pause forces the paused state without toggling.
func (e *Engine) Pause() {
	e.mu.Lock()
	already := e.paused
	e.paused = true
	onPause := e.onPause
	e.mu.Unlock()

	if !already && onPause != nil {
		onPause(true)
	}
}

// Reset cancels the active countdown and restarts: with a fresh random
// duration when requested or when no original duration is recorded,
// otherwise with the original duration.
func (e *Engine) Reset(useNewDuration bool) int {
	e.mu.Lock()
	e.stopLocked()
	seconds := e.original
	if useNewDuration || seconds <= 0 {
		seconds = 0
	}
	e.mu.Unlock()

	return e.Start(seconds)
}

// SetDuration replaces both the remaining and the original duration while
// the countdown keeps running. Used by the video soft limit.
func (e *Engine) SetDuration(seconds int) {
	if seconds <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seconds = seconds
	e.original = seconds
}

// Snapshot reports the current countdown state.
func (e *Engine) Snapshot() (seconds, original int, paused, running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seconds, e.original, e.paused, e.cancel != nil
}

// RandomDuration picks a uniformly random whole-second duration within the
// configured bounds.
func (e *Engine) RandomDuration() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.randomLocked()
}

func (e *Engine) randomLocked() int {
	min, max := e.bounds()
	if min <= 0 {
		min = 30
	}
	if max < min {
		max = min
	}
	return min + rand.Intn(max-min+1)
}

// FormatMMSS renders seconds as zero-padded MM:SS.
func FormatMMSS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
