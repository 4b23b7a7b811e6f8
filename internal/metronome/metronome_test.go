package metronome

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu     sync.Mutex
	pulses int
	plays  int
	sound  string
	volume float64
}

func (s *recordingSink) Pulse(bpm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses++
}

func (s *recordingSink) Play(sound string, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	s.sound = sound
	s.volume = volume
}

func (s *recordingSink) counts() (pulses, plays int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses, s.plays
}

func waitForPulses(t *testing.T, sink *recordingSink, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pulses, _ := sink.counts(); pulses >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	pulses, _ := sink.counts()
	t.Fatalf("pulses = %d, want at least %d before deadline", pulses, want)
}

func TestClamp(t *testing.T) {
	tests := []struct {
		bpm  int
		want int
	}{
		{39, 40},
		{40, 40},
		{80, 80},
		{120, 120},
		{121, 120},
		{-10, 40},
		{0, 40},
	}

	for _, tt := range tests {
		if got := Clamp(tt.bpm); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.bpm, got, tt.want)
		}
	}
}

func TestRandomBPMWithinBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		bpm := RandomBPM()
		if bpm < MinBPM || bpm > MaxBPM {
			t.Fatalf("RandomBPM() = %d, outside [%d, %d]", bpm, MinBPM, MaxBPM)
		}
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		bpm  int
		want time.Duration
	}{
		{60, time.Second},
		{120, 500 * time.Millisecond},
		{40, 1500 * time.Millisecond},
		{0, 1500 * time.Millisecond}, // clamped to MinBPM
	}

	for _, tt := range tests {
		if got := Interval(tt.bpm); got != tt.want {
			t.Errorf("Interval(%d) = %v, want %v", tt.bpm, got, tt.want)
		}
	}
}

func TestBPMForDuration(t *testing.T) {
	tests := []struct {
		name              string
		seconds, min, max int
		want              int
	}{
		{"shortest is fastest", 30, 30, 120, 120},
		{"longest is slowest", 120, 30, 120, 40},
		{"midpoint", 75, 30, 120, 80},
		{"below range clamps", 5, 30, 120, 120},
		{"above range clamps", 500, 30, 120, 40},
		{"degenerate range", 10, 10, 10, 80},
		{"inverted range", 50, 100, 20, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BPMForDuration(tt.seconds, tt.min, tt.max); got != tt.want {
				t.Errorf("BPMForDuration(%d, %d, %d) = %d, want %d",
					tt.seconds, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestStartClampsAndPulses(t *testing.T) {
	sink := &recordingSink{}
	e := New(sink, func() (bool, string, float64) { return true, "default", 0.7 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	if got := e.Start(999); got != MaxBPM {
		t.Fatalf("Start(999) = %d, want clamped %d", got, MaxBPM)
	}

	waitForPulses(t, sink, 2)

	_, plays := sink.counts()
	if plays == 0 {
		t.Errorf("no audio cue despite sound enabled")
	}

	sink.mu.Lock()
	sound, volume := sink.sound, sink.volume
	sink.mu.Unlock()
	if sound != "default" || volume != 0.7 {
		t.Errorf("Play(%q, %v), want (default, 0.7)", sound, volume)
	}
}

func TestStartInvalidBPMPicksRandom(t *testing.T) {
	sink := &recordingSink{}
	e := New(sink, func() (bool, string, float64) { return false, "", 0 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	bpm := e.Start(0)
	if bpm < MinBPM || bpm > MaxBPM {
		t.Errorf("Start(0) = %d, outside [%d, %d]", bpm, MinBPM, MaxBPM)
	}
}

func TestAudioGatedByGlobalSound(t *testing.T) {
	sink := &recordingSink{}
	soundOn := false
	e := New(sink, func() (bool, string, float64) { return soundOn, "default", 0.5 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	e.Start(MaxBPM)
	waitForPulses(t, sink, 2)

	pulses, plays := sink.counts()
	if pulses == 0 {
		t.Fatalf("no pulses")
	}
	if plays != 0 {
		t.Errorf("plays = %d with global sound off, want 0", plays)
	}
}

func TestAudioGatedByLocalEnabled(t *testing.T) {
	sink := &recordingSink{}
	e := New(sink, func() (bool, string, float64) { return true, "default", 0.5 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	e.SetEnabled(false)
	e.Start(MaxBPM)
	waitForPulses(t, sink, 2)

	_, plays := sink.counts()
	if plays != 0 {
		t.Errorf("plays = %d with metronome audio disabled, want 0", plays)
	}
}

func TestSuspendHoldsPulsesInPlace(t *testing.T) {
	sink := &recordingSink{}
	e := New(sink, func() (bool, string, float64) { return false, "", 0 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	started := e.Start(MaxBPM)
	waitForPulses(t, sink, 1)

	e.SetSuspended(true)
	before, _ := sink.counts()
	time.Sleep(Interval(MaxBPM) * 3)
	after, _ := sink.counts()

	if after > before+1 {
		t.Errorf("pulses advanced from %d to %d while suspended", before, after)
	}

	bpm, running, suspended := e.Snapshot()
	if bpm != started {
		t.Errorf("bpm = %d changed by suspension, want %d", bpm, started)
	}
	if !running || !suspended {
		t.Errorf("running = %v, suspended = %v, want both true", running, suspended)
	}

	e.SetSuspended(false)
	waitForPulses(t, sink, after+1)
}

func TestStartSupersedesPreviousTask(t *testing.T) {
	sink := &recordingSink{}
	e := New(sink, func() (bool, string, float64) { return false, "", 0 }, zerolog.Nop())
	t.Cleanup(e.Stop)

	e.Start(60)
	bpm := e.Start(100)

	got, running, _ := e.Snapshot()
	if got != bpm || !running {
		t.Errorf("Snapshot() bpm = %d, running = %v, want %d/true", got, running, bpm)
	}
}
