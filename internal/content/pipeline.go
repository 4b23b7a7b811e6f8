package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cycleview/internal/backend"
	"cycleview/internal/metronome"
	"cycleview/internal/state"
	"cycleview/internal/timer"
)

// Phase is the pipeline's cycle state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseFetching  Phase = "fetching"
	PhaseDisplayed Phase = "displayed"
)

const defaultRetryDelay = 2 * time.Second

var (
	ErrNoRedditSources = errors.New("no enabled subreddits; enable a favorite or punishment subreddit first")
	ErrNoFolderSources = errors.New("no enabled content folders; enable a folder first")
)

// Fetcher requests content from the backend.
type Fetcher interface {
	GetContent(ctx context.Context, req backend.ContentRequest) (*backend.ContentPayload, error)
}

// CaptionSource generates an optional caption for displayed content.
type CaptionSource interface {
	GenerateCaption(ctx context.Context, req backend.CaptionRequest) (string, error)
}

// SubredditRemover drops a subreddit from all lists by name.
type SubredditRemover interface {
	RemoveByName(ctx context.Context, name string) bool
}

type Persister interface {
	Save(ctx context.Context) bool
}

// Config wires a Pipeline's collaborators.
type Config struct {
	State      *state.AppState
	Fetcher    Fetcher
	Captions   CaptionSource
	Subreddits SubredditRemover
	Renderer   Renderer
	Notifier   Notifier
	Timer      *timer.Engine
	Metronome  *metronome.Engine
	Logger     zerolog.Logger

	// RetryDelay overrides the missing-subreddit retry delay (tests).
	RetryDelay time.Duration
}

// Pipeline orchestrates one browsing cycle: gather criteria, fetch,
// classify, dedupe into history, render, and schedule the timer and
// metronome. A generation counter discards responses superseded by a newer
// cycle.
type Pipeline struct {
	state      *state.AppState
	fetcher    Fetcher
	captions   CaptionSource
	subreddits SubredditRemover
	renderer   Renderer
	notifier   Notifier
	timer      *timer.Engine
	metronome  *metronome.Engine
	logger     zerolog.Logger
	retryDelay time.Duration

	mu         sync.Mutex
	generation uint64
	phase      Phase
	current    *View
}

func NewPipeline(cfg Config) *Pipeline {
	p := &Pipeline{
		state:      cfg.State,
		fetcher:    cfg.Fetcher,
		captions:   cfg.Captions,
		subreddits: cfg.Subreddits,
		renderer:   cfg.Renderer,
		notifier:   cfg.Notifier,
		timer:      cfg.Timer,
		metronome:  cfg.Metronome,
		logger:     cfg.Logger.With().Str("component", "pipeline").Logger(),
		retryDelay: cfg.RetryDelay,
		phase:      PhaseIdle,
	}
	if p.retryDelay <= 0 {
		p.retryDelay = defaultRetryDelay
	}

	p.timer.SetOnExpire(p.onTimerExpire)
	p.timer.SetOnPause(p.metronome.SetSuspended)
	return p
}

// StartCycle runs one full browsing cycle.
func (p *Pipeline) StartCycle(ctx context.Context) error {
	gen := p.bumpGeneration()

	settings := p.state.Settings()
	if err := p.validateSelection(settings); err != nil {
		p.notifier.Notify(err.Error())
		return err
	}

	p.setPhase(PhaseFetching)
	p.state.SetLoading(true)

	payload, err := p.fetcher.GetContent(ctx, p.buildRequest(settings))
	if err != nil {
		p.state.SetLoading(false)
		var remote *backend.RemoteError
		if errors.As(err, &remote) && remote.IsSubredditNotFound() {
			p.healMissingSubreddit(ctx, remote)
			return nil
		}
		p.setPhase(PhaseIdle)
		p.notifier.Notify(err.Error())
		return err
	}

	if !p.isCurrentGeneration(gen) {
		p.logger.Debug().Uint64("generation", gen).Msg("discarding stale content response")
		return nil
	}

	view := viewFromClassification(Classify(payload))
	if settings.CaptionsEnabled && p.captions != nil && view.Kind == KindImage {
		view.Caption = p.fetchCaption(ctx, settings)
	}

	// Any previously opened external window is stale now.
	p.renderer.CloseExternal()
	p.state.SetExternalOpen(false)

	if id := ContentID(payload); id != "" {
		p.state.History().Add(state.HistoryEntry{
			ID:           id,
			Folder:       payload.Folder,
			File:         payload.FileName,
			Source:       payload.Source,
			IsPunishment: payload.IsPunishment,
			Timestamp:    time.Now(),
		})
	}
	p.state.SetCurrentContent(payload.IsPunishment)

	p.mu.Lock()
	p.current = &view
	p.phase = PhaseDisplayed
	p.mu.Unlock()

	p.renderer.Show(view)
	if view.Kind == KindExternal {
		p.renderer.OpenExternal(view.URL)
		p.state.SetExternalOpen(true)
	}

	p.scheduleNext(settings, payload)

	p.logger.Info().
		Str("kind", string(view.Kind)).
		Str("source", view.Source).
		Bool("punishment", view.IsPunishment).
		Msg("content displayed")
	return nil
}

// Skip cancels the running timer and metronome and starts a fresh cycle.
// An in-flight fetch is not cancelled; its response is discarded by the
// generation guard.
func (p *Pipeline) Skip(ctx context.Context) error {
	p.timer.Stop()
	p.metronome.Stop()
	return p.StartCycle(ctx)
}

// Current returns the displayed view, or nil.
func (p *Pipeline) Current() *View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	dup := *p.current
	return &dup
}

// Phase returns the pipeline's cycle state.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// GalleryNext advances the gallery with wraparound and re-renders.
func (p *Pipeline) GalleryNext() (*View, bool) {
	return p.stepGallery(1)
}

// GalleryPrev steps the gallery back with wraparound and re-renders.
func (p *Pipeline) GalleryPrev() (*View, bool) {
	return p.stepGallery(-1)
}

func (p *Pipeline) stepGallery(delta int) (*View, bool) {
	p.mu.Lock()
	if p.current == nil || !p.current.HasGallery() {
		p.mu.Unlock()
		return nil, false
	}
	n := len(p.current.Gallery)
	p.current.GalleryIndex = (p.current.GalleryIndex + delta + n) % n
	p.current.URL = p.current.Gallery[p.current.GalleryIndex]
	dup := *p.current
	p.mu.Unlock()

	p.renderer.Show(dup)
	return &dup, true
}

// ReportVideoDuration applies the video soft limit: when enabled and the
// video outlasts the remaining countdown, the timer is extended (current
// and original duration) to match.
func (p *Pipeline) ReportVideoDuration(seconds int) {
	if seconds <= 0 {
		return
	}
	if !p.state.Settings().VideoSoftLimitEnabled {
		return
	}
	remaining, _, _, running := p.timer.Snapshot()
	if running && seconds > remaining {
		p.timer.SetDuration(seconds)
		p.logger.Info().Int("seconds", seconds).Msg("timer extended to video length")
	}
}

func (p *Pipeline) validateSelection(s state.Settings) error {
	redditOK := p.enabledSubreddits(state.Favorites) > 0 ||
		(s.PunishmentsEnabled && p.enabledSubreddits(state.Punishments) > 0)
	foldersOK := len(s.EnabledContentFolders) > 0 || len(s.EnabledPunishmentFolders) > 0

	switch s.ContentSource {
	case state.SourceReddit:
		if !redditOK {
			return ErrNoRedditSources
		}
	case state.SourceCustom:
		if !foldersOK {
			return ErrNoFolderSources
		}
	case state.SourceMixed:
		if !redditOK && !foldersOK {
			return ErrNoRedditSources
		}
	}
	return nil
}

func (p *Pipeline) enabledSubreddits(kind state.ListKind) int {
	count := 0
	for _, e := range p.state.Subreddits(kind) {
		if e.Enabled {
			count++
		}
	}
	return count
}

func (p *Pipeline) buildRequest(s state.Settings) backend.ContentRequest {
	entries := p.state.History().Entries()
	refs := make([]backend.HistoryRef, len(entries))
	for i, e := range entries {
		refs[i] = backend.HistoryRef{
			ID:     e.ID,
			Folder: e.Folder,
			File:   e.File,
			Source: e.Source,
		}
	}

	return backend.ContentRequest{
		ContentSource:      s.ContentSource,
		PunishmentsEnabled: s.PunishmentsEnabled,
		Subreddits: backend.SubredditLists{
			Favorites:   p.state.Subreddits(state.Favorites),
			Punishments: p.state.Subreddits(state.Punishments),
		},
		EnabledFolders: backend.EnabledFolders{
			Content:    s.EnabledContentFolders,
			Punishment: s.EnabledPunishmentFolders,
		},
		TimerMin:       s.TimerMin,
		TimerMax:       s.TimerMax,
		ContentHistory: refs,
	}
}

// healMissingSubreddit removes the offending subreddit from both lists,
// surfaces a notice, and retries the whole cycle once after a fixed delay.
func (p *Pipeline) healMissingSubreddit(ctx context.Context, remote *backend.RemoteError) {
	p.setPhase(PhaseIdle)

	if remote.Subreddit != "" {
		p.subreddits.RemoveByName(ctx, remote.Subreddit)
	}
	p.notifier.Notify(fmt.Sprintf("Subreddit r/%s no longer exists and was removed; retrying", remote.Subreddit))
	p.logger.Warn().Str("subreddit", remote.Subreddit).Msg("removed missing subreddit, scheduling retry")

	time.AfterFunc(p.retryDelay, func() {
		if err := p.StartCycle(context.Background()); err != nil {
			p.logger.Warn().Err(err).Msg("retry cycle failed")
		}
	})
}

// scheduleNext starts the timer (auto-cycle only) and the metronome.
func (p *Pipeline) scheduleNext(s state.Settings, payload *backend.ContentPayload) {
	seconds := 0
	if s.AutoCycleEnabled {
		switch {
		case payload.TimerSeconds > 0:
			seconds = payload.TimerSeconds
		case s.AutoCycleSeconds > 0:
			seconds = s.AutoCycleSeconds
		}
		seconds = p.timer.Start(seconds)
	}

	// A server-suggested BPM always starts the metronome, auto-cycle or
	// not; otherwise the BPM is derived from the timer duration.
	switch {
	case payload.MetronomeSpeed > 0:
		p.metronome.Start(payload.MetronomeSpeed)
	case s.AutoCycleEnabled && seconds > 0:
		p.metronome.Start(metronome.BPMForDuration(seconds, s.TimerMin, s.TimerMax))
	}
}

// onTimerExpire is the countdown-zero hook: forced external-window close,
// optional completion sound, then the next cycle when auto-cycle is on.
func (p *Pipeline) onTimerExpire() {
	p.renderer.CloseExternal()
	p.state.SetExternalOpen(false)

	settings := p.state.Settings()
	if settings.SoundEnabled {
		p.renderer.PlayCompletion(settings.MetronomeVolume)
	}
	if settings.AutoCycleEnabled {
		if err := p.StartCycle(context.Background()); err != nil {
			p.logger.Warn().Err(err).Msg("auto-cycle failed")
		}
	}
}

func (p *Pipeline) bumpGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	return p.generation
}

func (p *Pipeline) isCurrentGeneration(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation == gen
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
}

func (p *Pipeline) fetchCaption(ctx context.Context, s state.Settings) string {
	caption, err := p.captions.GenerateCaption(ctx, backend.CaptionRequest{
		PenisSize:      s.PenisSize,
		PromptTemplate: s.CaptionPrompt,
		Model:          s.CaptionModel,
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("caption generation failed")
		return ""
	}
	return caption
}
