package metronome

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BPM bounds for the pulse generator.
const (
	MinBPM = 40
	MaxBPM = 120
)

// Sink receives pulses. Pulse fires every tick (the visual beat); Play
// fires only when the audio gates allow it.
type Sink interface {
	Pulse(bpm int)
	Play(sound string, volume float64)
}

// AudioSettings supplies the current audio gating state: the global
// sound-enabled flag, the configured cue and its volume.
type AudioSettings func() (soundEnabled bool, sound string, volume float64)

// Engine is the periodic pulse generator. At most one pulse task runs at a
// time; Start cancels any prior task.
type Engine struct {
	mu        sync.Mutex
	bpm       int
	suspended bool
	enabled   bool
	cancel    chan struct{}

	sink   Sink
	audio  AudioSettings
	logger zerolog.Logger
}

func New(sink Sink, audio AudioSettings, logger zerolog.Logger) *Engine {
	return &Engine{
		sink:    sink,
		audio:   audio,
		enabled: true,
		logger:  logger.With().Str("component", "metronome").Logger(),
	}
}

// Clamp forces a BPM into the valid range.
func Clamp(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// RandomBPM picks a uniformly random BPM in [MinBPM, MaxBPM].
func RandomBPM() int {
	return MinBPM + rand.Intn(MaxBPM-MinBPM+1)
}

// Interval derives the tick period from a BPM.
func Interval(bpm int) time.Duration {
	return time.Duration(60000/Clamp(bpm)) * time.Millisecond
}

// BPMForDuration maps a timer duration within [min, max] linearly onto
// [MaxBPM, MinBPM]: shorter durations tick faster. A degenerate range maps
// to the midpoint.
func BPMForDuration(seconds, min, max int) int {
	if max <= min {
		return (MinBPM + MaxBPM) / 2
	}
	if seconds < min {
		seconds = min
	}
	if seconds > max {
		seconds = max
	}
	span := float64(MaxBPM - MinBPM)
	frac := float64(seconds-min) / float64(max-min)
	return Clamp(MaxBPM - int(frac*span+0.5))
}

// Start begins pulsing at the given BPM; invalid values pick a random BPM.
// Returns the effective BPM.
func (e *Engine) Start(bpm int) int {
	if bpm <= 0 {
		bpm = RandomBPM()
	}
	bpm = Clamp(bpm)

	e.mu.Lock()
	e.stopLocked()
	e.bpm = bpm
	e.suspended = false
	cancel := make(chan struct{})
	e.cancel = cancel
	e.mu.Unlock()

	go e.run(cancel, Interval(bpm))

	e.logger.Debug().Int("bpm", bpm).Msg("metronome started")
	return bpm
}

func (e *Engine) run(cancel chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.cancel != cancel {
				e.mu.Unlock()
				return
			}
			if e.suspended {
				e.mu.Unlock()
				continue
			}
			bpm := e.bpm
			enabled := e.enabled
			e.mu.Unlock()

			e.sink.Pulse(bpm)

			// Audio needs both the global sound flag and the local
			// metronome flag; global off forces silence.
			if enabled && e.audio != nil {
				if soundOn, sound, volume := e.audio(); soundOn {
					e.sink.Play(sound, volume)
				}
			}
		}
	}
}

// Stop cancels the active pulse task.
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

// SetSuspended pauses or resumes pulsing in place. The task stays alive and
// the BPM is untouched, so resuming does not restart the calculation.
func (e *Engine) SetSuspended(suspended bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suspended = suspended
}

// SetEnabled flips the local audio flag. The visual pulse is unaffected.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Snapshot reports the current pulse state.
func (e *Engine) Snapshot() (bpm int, running, suspended bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bpm, e.cancel != nil, e.suspended
}
