package state

import "time"

// ListKind selects one of the two independently managed subreddit lists.
type ListKind string

const (
	Favorites   ListKind = "favorites"
	Punishments ListKind = "punishments"
)

func ValidList(k ListKind) bool {
	return k == Favorites || k == Punishments
}

// FolderKind selects one of the two custom folder sets.
type FolderKind string

const (
	ContentFolders    FolderKind = "content"
	PunishmentFolders FolderKind = "punishment"
)

func ValidFolderKind(k FolderKind) bool {
	return k == ContentFolders || k == PunishmentFolders
}

type SubredditEntry struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// FolderInfo describes a server-side discovered content folder.
type FolderInfo struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
}

type Stats struct {
	FavoritesCompleted   int `json:"favoritesCompletedCount"`
	PunishmentsCompleted int `json:"punishmentsCompletedCount"`
}

// ContentFlags is the transient per-content UI state.
type ContentFlags struct {
	IsPunishment bool `json:"isPunishment"`
	IsLoading    bool `json:"isLoading"`
	ExternalOpen bool `json:"externalOpen"`
}

// HistoryEntry records one piece of displayed content so the backend can
// avoid repeats.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Folder       string    `json:"folder"`
	File         string    `json:"file"`
	Source       string    `json:"source"`
	IsPunishment bool      `json:"isPunishment"`
	Timestamp    time.Time `json:"timestamp"`
}
