package api

import (
	"cycleview/internal/notify"
	"cycleview/internal/state"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SettingsResponse struct {
	Settings state.Document `json:"settings"`
}

type SaveResponse struct {
	Settings    state.Document `json:"settings"`
	RemoteSaved bool           `json:"remote_saved"`
}

type StatusResponse struct {
	Phase         string            `json:"phase"`
	ContentSource string            `json:"content_source"`
	Loading       bool              `json:"loading"`
	ExternalOpen  bool              `json:"external_open"`
	Timer         TimerResponse     `json:"timer"`
	Metronome     MetronomeResponse `json:"metronome"`
	Stats         state.Stats       `json:"stats"`
	History       []HistoryItem     `json:"history"`
}

type HistoryItem struct {
	ID           string `json:"id"`
	Folder       string `json:"folder,omitempty"`
	File         string `json:"file,omitempty"`
	Source       string `json:"source"`
	IsPunishment bool   `json:"isPunishment"`
}

type SubredditListResponse struct {
	List         string                 `json:"list"`
	Subreddits   []state.SubredditEntry `json:"subreddits"`
	EnabledCount int                    `json:"enabled_count"`
}

type AddSubredditRequest struct {
	Name string `json:"name"`
}

type SetAllRequest struct {
	Enabled bool `json:"enabled"`
}

type FoldersResponse struct {
	ContentFolders           []state.FolderInfo `json:"content_folders"`
	PunishmentFolders        []state.FolderInfo `json:"punishment_folders"`
	EnabledContentFolders    []string           `json:"enabledContentFolders"`
	EnabledPunishmentFolders []string           `json:"enabledPunishmentFolders"`
}

type SetFoldersRequest struct {
	Names []string `json:"names"`
}

type ToggleFolderRequest struct {
	Name string `json:"name"`
}

type TimerResponse struct {
	Seconds   int    `json:"seconds"`
	Original  int    `json:"original"`
	Paused    bool   `json:"paused"`
	Running   bool   `json:"running"`
	Formatted string `json:"formatted"`
}

type TimerResetRequest struct {
	UseNewDuration bool `json:"useNewDuration"`
}

type VideoDurationRequest struct {
	Seconds int `json:"seconds"`
}

type MetronomeResponse struct {
	BPM       int  `json:"bpm"`
	Running   bool `json:"running"`
	Suspended bool `json:"suspended"`
}

type MetronomeStartRequest struct {
	BPM int `json:"bpm"`
}

type MetronomeEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type StatsResponse struct {
	FavoritesCompleted   int `json:"favoritesCompletedCount"`
	PunishmentsCompleted int `json:"punishmentsCompletedCount"`
}

type ResetStatsRequest struct {
	Confirmed bool `json:"confirmed"`
}

type CaptionResponse struct {
	Caption string `json:"caption"`
}

type ImportRequest struct {
	Path string `json:"path"`
}

type ImportResponse struct {
	Message             string `json:"message"`
	CredentialsImported bool   `json:"credentials_imported"`
}

type CredentialsRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserAgent    string `json:"user_agent"`
}

type NotificationsResponse struct {
	Notifications []notify.Notice `json:"notifications"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
