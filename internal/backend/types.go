package backend

import (
	"encoding/json"

	"cycleview/internal/state"
)

// ContentRequest is the /get_content body. It carries the full selection
// criteria plus the recent history so the backend can avoid repeats.
type ContentRequest struct {
	ContentSource      string         `json:"contentSource"`
	PunishmentsEnabled bool           `json:"punishmentsEnabled"`
	Subreddits         SubredditLists `json:"subreddits"`
	EnabledFolders     EnabledFolders `json:"enabledFolders"`
	TimerMin           int            `json:"timerMin"`
	TimerMax           int            `json:"timerMax"`
	ContentHistory     []HistoryRef   `json:"contentHistory"`
}

type SubredditLists struct {
	Favorites   []state.SubredditEntry `json:"favorites"`
	Punishments []state.SubredditEntry `json:"punishments"`
}

type EnabledFolders struct {
	Content    []string `json:"content"`
	Punishment []string `json:"punishment"`
}

// HistoryRef is the subset of a history entry the backend needs.
type HistoryRef struct {
	ID     string `json:"id"`
	Folder string `json:"folder,omitempty"`
	File   string `json:"file,omitempty"`
	Source string `json:"source,omitempty"`
}

// ContentPayload is a successful /get_content response. Which fields are
// populated depends on the source: Reddit posts carry post_url (and gallery
// fields), custom files carry content_url/file_name, and the generic
// url/type pair covers anything else.
type ContentPayload struct {
	Source         string   `json:"source"`
	Subreddit      string   `json:"subreddit"`
	PostURL        string   `json:"post_url"`
	PostTitle      string   `json:"post_title"`
	IsGallery      bool     `json:"is_gallery"`
	GalleryImages  []string `json:"gallery_images"`
	ContentURL     string   `json:"content_url"`
	Folder         string   `json:"folder"`
	FileName       string   `json:"file_name"`
	URL            string   `json:"url"`
	Type           string   `json:"type"`
	Info           string   `json:"info"`
	TimerSeconds   int      `json:"timer_seconds"`
	MetronomeSpeed int      `json:"metronome_speed"`
	IsPunishment   bool     `json:"isPunishment"`

	// Raw holds the undecoded body for the diagnostic fallback when no
	// recognized URL field is present.
	Raw json.RawMessage `json:"-"`
}

// FoldersPayload is the /get_custom_folders response.
type FoldersPayload struct {
	ContentFolders           []state.FolderInfo `json:"content_folders"`
	PunishmentFolders        []state.FolderInfo `json:"punishment_folders"`
	EnabledContentFolders    []string           `json:"enabledContentFolders"`
	EnabledPunishmentFolders []string           `json:"enabledPunishmentFolders"`
	Cached                   bool               `json:"cached"`
}

// CaptionRequest is the /generate_caption body.
type CaptionRequest struct {
	PenisSize      string `json:"penis_size"`
	PromptTemplate string `json:"prompt_template"`
	Model          string `json:"model"`
}

// ImportResult is returned by the settings import endpoints.
type ImportResult struct {
	Settings            *state.Patch `json:"settings"`
	CredentialsImported bool         `json:"credentials_imported"`
	Message             string       `json:"message"`
}

// ErrSubredditNotFound is the error code the backend uses when a requested
// subreddit no longer exists.
const ErrSubredditNotFound = "subreddit_not_found"

// RemoteError is an explicit error payload from the backend.
type RemoteError struct {
	Code      string
	Subreddit string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// IsSubredditNotFound reports whether the error payload identifies a
// removed subreddit.
func (e *RemoteError) IsSubredditNotFound() bool {
	return e.Code == ErrSubredditNotFound
}

// errorEnvelope matches any backend response carrying an error field.
type errorEnvelope struct {
	Error     string `json:"error"`
	Subreddit string `json:"subreddit"`
	Message   string `json:"message"`
}

func (env errorEnvelope) toError() *RemoteError {
	return &RemoteError{
		Code:      env.Error,
		Subreddit: env.Subreddit,
		Message:   env.Message,
	}
}
