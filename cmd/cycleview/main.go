package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"cycleview/internal/api"
	"cycleview/internal/backend"
	"cycleview/internal/config"
	"cycleview/internal/content"
	"cycleview/internal/folders"
	"cycleview/internal/metronome"
	"cycleview/internal/notify"
	"cycleview/internal/server"
	"cycleview/internal/settingsync"
	"cycleview/internal/state"
	"cycleview/internal/stats"
	"cycleview/internal/storage"
	"cycleview/internal/subreddit"
	"cycleview/internal/timer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	contentSource := flag.String("content-source", "", "force the content source for this run (reddit, custom, mixed)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *contentSource != "" {
		cfg.Content.SourceOverride = *contentSource
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting cycleview")

	store, err := storage.NewStore(cfg.Cache.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open local settings cache")
	}
	defer store.Close()

	client, err := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backend url")
	}

	appState := state.New()
	notices := notify.NewCenter(logger)
	syncer := settingsync.New(appState, store, client, notices, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncer.Load(ctx, cfg.Content.SourceOverride)

	subreddits := subreddit.NewRegistry(appState, syncer, logger)
	folderReg := folders.NewRegistry(appState, client, syncer, logger)
	if err := folderReg.Refresh(ctx, false); err != nil {
		logger.Warn().Err(err).Msg("initial folder refresh failed")
	}

	renderer := &logRenderer{logger: logger.With().Str("component", "renderer").Logger()}

	timerEngine := timer.New(func() (int, int) {
		s := appState.Settings()
		return s.TimerMin, s.TimerMax
	}, logger)

	metronomeEngine := metronome.New(renderer, func() (bool, string, float64) {
		s := appState.Settings()
		return s.SoundEnabled, s.MetronomeSound, s.MetronomeVolume
	}, logger)

	pipeline := content.NewPipeline(content.Config{
		State:      appState,
		Fetcher:    client,
		Captions:   client,
		Subreddits: subreddits,
		Renderer:   renderer,
		Notifier:   notices,
		Timer:      timerEngine,
		Metronome:  metronomeEngine,
		Logger:     logger,
	})

	tracker := stats.NewTracker(appState, syncer, timerEngine, notices, logger)

	handler := api.NewHandler(api.Deps{
		State:      appState,
		Sync:       syncer,
		Pipeline:   pipeline,
		Subreddits: subreddits,
		Folders:    folderReg,
		Timer:      timerEngine,
		Metronome:  metronomeEngine,
		Stats:      tracker,
		Backend:    client,
		Notices:    notices,
	}, logger)

	srv := server.New(cfg, logger, handler)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")
		timerEngine.Stop()
		metronomeEngine.Stop()
		cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("cycleview stopped")
}

// logRenderer is the headless render surface: the UI polls the control API
// for the actual view, so rendering reduces to log lines.
type logRenderer struct {
	logger zerolog.Logger
}

func (r *logRenderer) Show(view content.View) {
	r.logger.Info().
		Str("kind", string(view.Kind)).
		Str("url", view.URL).
		Msg("showing content")
}

func (r *logRenderer) OpenExternal(url string) {
	r.logger.Info().Str("url", url).Msg("external window opened")
}

func (r *logRenderer) CloseExternal() {
	r.logger.Debug().Msg("external window closed")
}

func (r *logRenderer) PlayCompletion(volume float64) {
	r.logger.Info().Float64("volume", volume).Msg("completion sound")
}

func (r *logRenderer) Pulse(bpm int) {
	r.logger.Debug().Int("bpm", bpm).Msg("metronome pulse")
}

func (r *logRenderer) Play(sound string, volume float64) {
	r.logger.Debug().Str("sound", sound).Float64("volume", volume).Msg("metronome tick")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
