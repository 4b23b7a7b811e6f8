package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cycleview/internal/api"
	"cycleview/internal/config"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)
		r.Get("/status", s.handler.GetStatus)
		r.Get("/notifications", s.handler.GetNotifications)

		r.Get("/settings", s.handler.GetSettings)
		r.Put("/settings", s.handler.SaveSettings)
		r.Post("/settings/import", s.handler.ImportSettings)
		r.Post("/settings/import-file", s.handler.ImportSettingsFile)

		r.Post("/credentials", s.handler.UpdateCredentials)
		r.Post("/credentials/direct", s.handler.DirectSaveCredentials)

		r.Get("/content/current", s.handler.GetCurrentContent)
		r.Post("/content/next", s.handler.NextContent)
		r.Post("/content/skip", s.handler.SkipContent)
		r.Post("/content/gallery/next", s.handler.GalleryNext)
		r.Post("/content/gallery/prev", s.handler.GalleryPrev)
		r.Post("/content/video-duration", s.handler.ReportVideoDuration)

		r.Get("/subreddits/{list}", s.handler.GetSubreddits)
		r.Post("/subreddits/{list}", s.handler.AddSubreddit)
		r.Post("/subreddits/{list}/set-all", s.handler.SetAllSubreddits)
		r.Post("/subreddits/{list}/{index}/toggle", s.handler.ToggleSubreddit)
		r.Delete("/subreddits/{list}/{index}", s.handler.RemoveSubreddit)
		r.Delete("/subreddits/{list}", s.handler.RemoveAllSubreddits)

		r.Get("/folders", s.handler.GetFolders)
		r.Put("/folders/{kind}/enabled", s.handler.SetEnabledFolders)
		r.Post("/folders/{kind}/toggle", s.handler.ToggleFolder)

		r.Get("/timer", s.handler.GetTimer)
		r.Post("/timer/pause", s.handler.PauseTimer)
		r.Post("/timer/reset", s.handler.ResetTimer)

		r.Get("/metronome", s.handler.GetMetronome)
		r.Post("/metronome/start", s.handler.StartMetronome)
		r.Post("/metronome/stop", s.handler.StopMetronome)
		r.Put("/metronome/enabled", s.handler.SetMetronomeEnabled)

		r.Get("/stats", s.handler.GetStats)
		r.Post("/stats/finish", s.handler.FinishSession)
		r.Post("/stats/reset", s.handler.ResetStats)

		r.Post("/captions/generate", s.handler.GenerateCaption)
	})
}

// Router exposes the routing tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
