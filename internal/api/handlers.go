package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cycleview/internal/backend"
	"cycleview/internal/content"
	"cycleview/internal/folders"
	"cycleview/internal/metronome"
	"cycleview/internal/notify"
	"cycleview/internal/settingsync"
	"cycleview/internal/state"
	"cycleview/internal/stats"
	"cycleview/internal/subreddit"
	"cycleview/internal/timer"
)

const Version = "1.1.0"

type Handler struct {
	state      *state.AppState
	sync       *settingsync.Sync
	pipeline   *content.Pipeline
	subreddits *subreddit.Registry
	folders    *folders.Registry
	timer      *timer.Engine
	metronome  *metronome.Engine
	stats      *stats.Tracker
	backend    *backend.Client
	notices    *notify.Center
	logger     zerolog.Logger
}

type Deps struct {
	State      *state.AppState
	Sync       *settingsync.Sync
	Pipeline   *content.Pipeline
	Subreddits *subreddit.Registry
	Folders    *folders.Registry
	Timer      *timer.Engine
	Metronome  *metronome.Engine
	Stats      *stats.Tracker
	Backend    *backend.Client
	Notices    *notify.Center
}

func NewHandler(deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{
		state:      deps.State,
		sync:       deps.Sync,
		pipeline:   deps.Pipeline,
		subreddits: deps.Subreddits,
		folders:    deps.Folders,
		timer:      deps.Timer,
		metronome:  deps.Metronome,
		stats:      deps.Stats,
		backend:    deps.Backend,
		notices:    deps.Notices,
		logger:     logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusResponse())
}

func (h *Handler) statusResponse() StatusResponse {
	seconds, original, paused, running := h.timer.Snapshot()
	bpm, mRunning, suspended := h.metronome.Snapshot()
	flags := h.state.Content()
	totals := h.state.Stats()

	entries := h.state.History().Entries()
	history := make([]HistoryItem, len(entries))
	for i, e := range entries {
		history[i] = HistoryItem{
			ID:           e.ID,
			Folder:       e.Folder,
			File:         e.File,
			Source:       e.Source,
			IsPunishment: e.IsPunishment,
		}
	}

	return StatusResponse{
		Phase:         string(h.pipeline.Phase()),
		ContentSource: h.state.Settings().ContentSource,
		Loading:       flags.IsLoading,
		ExternalOpen:  flags.ExternalOpen,
		Timer: TimerResponse{
			Seconds:   seconds,
			Original:  original,
			Paused:    paused,
			Running:   running,
			Formatted: timer.FormatMMSS(seconds),
		},
		Metronome: MetronomeResponse{
			BPM:       bpm,
			Running:   mRunning,
			Suspended: suspended,
		},
		Stats:   totals,
		History: history,
	}
}

// Settings

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: h.state.Snapshot()})
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var patch state.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid settings payload")
		return
	}

	h.state.ApplyPatch(&patch)
	remoteSaved := h.sync.Save(r.Context())

	writeJSON(w, http.StatusOK, SaveResponse{
		Settings:    h.state.Snapshot(),
		RemoteSaved: remoteSaved,
	})
}

func (h *Handler) ImportSettings(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Import path required")
		return
	}

	result, err := h.backend.ImportSettings(r.Context(), req.Path)
	h.finishImport(w, r, result, err)
}

func (h *Handler) ImportSettingsFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("settingsFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "settingsFile upload required")
		return
	}
	defer file.Close()

	result, err := h.backend.ImportSettingsFile(r.Context(), header.Filename, file)
	h.finishImport(w, r, result, err)
}

func (h *Handler) finishImport(w http.ResponseWriter, r *http.Request, result *backend.ImportResult, err error) {
	if err != nil {
		h.logger.Error().Err(err).Msg("settings import failed")
		writeError(w, http.StatusBadGateway, "IMPORT_FAILED", err.Error())
		return
	}

	if result.Settings != nil {
		result.Settings.Migrate()
		h.state.ApplyPatch(result.Settings)
		h.sync.Save(r.Context())
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Message:             result.Message,
		CredentialsImported: result.CredentialsImported,
	})
}

func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	h.state.UpdateSettings(func(s *state.Settings) {
		s.Credentials = creds
	})
	h.sync.Save(r.Context())

	// Remote replication is best effort; local settings already hold the
	// credentials.
	if err := h.backend.UpdateCredentials(r.Context(), creds); err != nil {
		h.logger.Warn().Err(err).Msg("remote credential update failed")
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Credentials updated"})
}

func (h *Handler) DirectSaveCredentials(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := h.backend.DirectSaveCredentials(r.Context(), creds); err != nil {
		h.logger.Error().Err(err).Msg("direct credential save failed")
		writeError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Credentials saved"})
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (state.Credentials, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid credentials payload")
		return state.Credentials{}, false
	}

	creds := state.Credentials{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		UserAgent:    req.UserAgent,
	}
	if !creds.Configured() {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "client_id and client_secret required")
		return state.Credentials{}, false
	}
	return creds, true
}

// Content

func (h *Handler) GetCurrentContent(w http.ResponseWriter, r *http.Request) {
	view := h.pipeline.Current()
	if view == nil {
		writeError(w, http.StatusNotFound, "NO_CONTENT", "No content displayed yet")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) NextContent(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.StartCycle(r.Context()); err != nil {
		h.writeCycleError(w, err)
		return
	}
	h.writeCurrentOrStatus(w)
}

func (h *Handler) SkipContent(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Skip(r.Context()); err != nil {
		h.writeCycleError(w, err)
		return
	}
	h.writeCurrentOrStatus(w)
}

// writeCurrentOrStatus handles the missing-subreddit retry path, where a
// cycle ends without an error but also without content yet.
func (h *Handler) writeCurrentOrStatus(w http.ResponseWriter) {
	if view := h.pipeline.Current(); view != nil {
		writeJSON(w, http.StatusOK, view)
		return
	}
	writeJSON(w, http.StatusAccepted, h.statusResponse())
}

func (h *Handler) writeCycleError(w http.ResponseWriter, err error) {
	if errors.Is(err, content.ErrNoRedditSources) || errors.Is(err, content.ErrNoFolderSources) {
		writeError(w, http.StatusBadRequest, "NO_SOURCES", err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
}

func (h *Handler) GalleryNext(w http.ResponseWriter, r *http.Request) {
	h.writeGalleryStep(w, h.pipeline.GalleryNext)
}

func (h *Handler) GalleryPrev(w http.ResponseWriter, r *http.Request) {
	h.writeGalleryStep(w, h.pipeline.GalleryPrev)
}

func (h *Handler) writeGalleryStep(w http.ResponseWriter, step func() (*content.View, bool)) {
	view, ok := step()
	if !ok {
		writeError(w, http.StatusConflict, "NO_GALLERY", "Current content has no gallery")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) ReportVideoDuration(w http.ResponseWriter, r *http.Request) {
	var req VideoDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Positive seconds required")
		return
	}

	h.pipeline.ReportVideoDuration(req.Seconds)
	seconds, original, paused, running := h.timer.Snapshot()
	writeJSON(w, http.StatusOK, TimerResponse{
		Seconds:   seconds,
		Original:  original,
		Paused:    paused,
		Running:   running,
		Formatted: timer.FormatMMSS(seconds),
	})
}

// Subreddits

func (h *Handler) GetSubreddits(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: h.subreddits.EnabledCount(kind),
	})
}

func (h *Handler) AddSubreddit(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}

	var req AddSubredditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	name, err := h.subreddits.Add(r.Context(), kind, req.Name)
	switch {
	case errors.Is(err, subreddit.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "EMPTY_NAME", err.Error())
		return
	case errors.Is(err, subreddit.ErrDuplicate):
		writeError(w, http.StatusConflict, "DUPLICATE", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	h.logger.Info().Str("list", string(kind)).Str("subreddit", name).Msg("subreddit added")
	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: h.subreddits.EnabledCount(kind),
	})
}

func (h *Handler) ToggleSubreddit(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}

	h.subreddits.ToggleAt(r.Context(), kind, index)
	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: h.subreddits.EnabledCount(kind),
	})
}

func (h *Handler) RemoveSubreddit(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}

	h.subreddits.RemoveAt(r.Context(), kind, index)
	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: h.subreddits.EnabledCount(kind),
	})
}

func (h *Handler) SetAllSubreddits(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}

	var req SetAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	h.subreddits.SetAll(r.Context(), kind, req.Enabled)
	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: h.subreddits.EnabledCount(kind),
	})
}

func (h *Handler) RemoveAllSubreddits(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.listParam(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := h.subreddits.RemoveAll(r.Context(), kind, confirmed); err != nil {
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SubredditListResponse{
		List:         string(kind),
		Subreddits:   h.subreddits.View(kind),
		EnabledCount: 0,
	})
}

func (h *Handler) listParam(w http.ResponseWriter, r *http.Request) (state.ListKind, bool) {
	kind := state.ListKind(chi.URLParam(r, "list"))
	if !state.ValidList(kind) {
		writeError(w, http.StatusNotFound, "UNKNOWN_LIST", "List must be favorites or punishments")
		return "", false
	}
	return kind, true
}

func (h *Handler) indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "BAD_INDEX", "Index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// Folders

func (h *Handler) GetFolders(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"
	if err := h.folders.Refresh(r.Context(), refresh); err != nil {
		h.logger.Warn().Err(err).Msg("folder refresh failed, serving cached sets")
	}
	h.writeFolders(w)
}

func (h *Handler) SetEnabledFolders(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.folderKindParam(w, r)
	if !ok {
		return
	}

	var req SetFoldersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	h.folders.SetEnabled(r.Context(), kind, req.Names)
	h.writeFolders(w)
}

func (h *Handler) ToggleFolder(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.folderKindParam(w, r)
	if !ok {
		return
	}

	var req ToggleFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Folder name required")
		return
	}

	h.folders.Toggle(r.Context(), kind, req.Name)
	h.writeFolders(w)
}

func (h *Handler) writeFolders(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, FoldersResponse{
		ContentFolders:           h.folders.Folders(state.ContentFolders),
		PunishmentFolders:        h.folders.Folders(state.PunishmentFolders),
		EnabledContentFolders:    h.folders.Enabled(state.ContentFolders),
		EnabledPunishmentFolders: h.folders.Enabled(state.PunishmentFolders),
	})
}

func (h *Handler) folderKindParam(w http.ResponseWriter, r *http.Request) (state.FolderKind, bool) {
	kind := state.FolderKind(chi.URLParam(r, "kind"))
	if !state.ValidFolderKind(kind) {
		writeError(w, http.StatusNotFound, "UNKNOWN_KIND", "Kind must be content or punishment")
		return "", false
	}
	return kind, true
}

// Timer

func (h *Handler) GetTimer(w http.ResponseWriter, r *http.Request) {
	seconds, original, paused, running := h.timer.Snapshot()
	writeJSON(w, http.StatusOK, TimerResponse{
		Seconds:   seconds,
		Original:  original,
		Paused:    paused,
		Running:   running,
		Formatted: timer.FormatMMSS(seconds),
	})
}

func (h *Handler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.timer.TogglePause()
	h.GetTimer(w, r)
}

func (h *Handler) ResetTimer(w http.ResponseWriter, r *http.Request) {
	var req TimerResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	h.timer.Reset(req.UseNewDuration)
	h.GetTimer(w, r)
}

// Metronome

func (h *Handler) GetMetronome(w http.ResponseWriter, r *http.Request) {
	bpm, running, suspended := h.metronome.Snapshot()
	writeJSON(w, http.StatusOK, MetronomeResponse{
		BPM:       bpm,
		Running:   running,
		Suspended: suspended,
	})
}

func (h *Handler) StartMetronome(w http.ResponseWriter, r *http.Request) {
	var req MetronomeStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	h.metronome.Start(req.BPM)
	h.GetMetronome(w, r)
}

func (h *Handler) StopMetronome(w http.ResponseWriter, r *http.Request) {
	h.metronome.Stop()
	h.GetMetronome(w, r)
}

func (h *Handler) SetMetronomeEnabled(w http.ResponseWriter, r *http.Request) {
	var req MetronomeEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	h.metronome.SetEnabled(req.Enabled)
	h.GetMetronome(w, r)
}

// Stats

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	totals := h.stats.Totals()
	writeJSON(w, http.StatusOK, StatsResponse{
		FavoritesCompleted:   totals.FavoritesCompleted,
		PunishmentsCompleted: totals.PunishmentsCompleted,
	})
}

func (h *Handler) FinishSession(w http.ResponseWriter, r *http.Request) {
	totals := h.stats.Finish(r.Context())
	writeJSON(w, http.StatusOK, StatsResponse{
		FavoritesCompleted:   totals.FavoritesCompleted,
		PunishmentsCompleted: totals.PunishmentsCompleted,
	})
}

func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	var req ResetStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	totals, err := h.stats.Reset(r.Context(), req.Confirmed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		FavoritesCompleted:   totals.FavoritesCompleted,
		PunishmentsCompleted: totals.PunishmentsCompleted,
	})
}

// Captions

func (h *Handler) GenerateCaption(w http.ResponseWriter, r *http.Request) {
	settings := h.state.Settings()
	caption, err := h.backend.GenerateCaption(r.Context(), backend.CaptionRequest{
		PenisSize:      settings.PenisSize,
		PromptTemplate: settings.CaptionPrompt,
		Model:          settings.CaptionModel,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("caption generation failed")
		writeError(w, http.StatusBadGateway, "CAPTION_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CaptionResponse{Caption: caption})
}

// Notifications

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: h.notices.Drain()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
