package state

import (
	"sync"
	"time"
)

// AppState is the single shared state container. It is constructed once at
// startup and injected into every component; all mutation goes through its
// methods under one lock, which replaces the single-threaded guarantee the
// original relied on.
type AppState struct {
	mu                sync.RWMutex
	settings          Settings
	favorites         []SubredditEntry
	punishments       []SubredditEntry
	contentFolders    []FolderInfo
	punishmentFolders []FolderInfo
	stats             Stats
	content           ContentFlags
	history           *History
}

func New() *AppState {
	return &AppState{
		settings: DefaultSettings(),
		history:  NewHistory(HistoryLimit),
	}
}

// Settings returns a copy of the current settings.
func (a *AppState) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneSettings(a.settings)
}

// UpdateSettings mutates settings atomically.
func (a *AppState) UpdateSettings(fn func(*Settings)) Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.settings)
	return cloneSettings(a.settings)
}

// ApplyPatch merges a partial settings document into the state; absent
// fields keep their current values.
func (a *AppState) ApplyPatch(p *Patch) {
	if p == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.settings
	if p.ContentSource != nil && ValidSource(*p.ContentSource) {
		s.ContentSource = *p.ContentSource
	}
	if p.PunishmentsEnabled != nil {
		s.PunishmentsEnabled = *p.PunishmentsEnabled
	}
	if p.AutoCycleEnabled != nil {
		s.AutoCycleEnabled = *p.AutoCycleEnabled
	}
	if p.AutoCycleSeconds != nil {
		s.AutoCycleSeconds = p.AutoCycleSeconds.Int()
	}
	if p.VideoSoftLimitEnabled != nil {
		s.VideoSoftLimitEnabled = *p.VideoSoftLimitEnabled
	}
	if p.TimerMin != nil && p.TimerMin.Int() > 0 {
		s.TimerMin = p.TimerMin.Int()
	}
	if p.TimerMax != nil && p.TimerMax.Int() > 0 {
		s.TimerMax = p.TimerMax.Int()
	}
	if s.TimerMax < s.TimerMin {
		s.TimerMax = s.TimerMin
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.MetronomeSpeed != nil && p.MetronomeSpeed.Int() > 0 {
		s.MetronomeSpeed = p.MetronomeSpeed.Int()
	}
	if p.MetronomeSound != nil {
		s.MetronomeSound = *p.MetronomeSound
	}
	if p.MetronomeVolume != nil && *p.MetronomeVolume >= 0 && *p.MetronomeVolume <= 1 {
		s.MetronomeVolume = *p.MetronomeVolume
	}
	if p.EnabledContentFolders != nil {
		s.EnabledContentFolders = append([]string(nil), (*p.EnabledContentFolders)...)
	}
	if p.EnabledPunishmentFolders != nil {
		s.EnabledPunishmentFolders = append([]string(nil), (*p.EnabledPunishmentFolders)...)
	}
	if p.CaptionsEnabled != nil {
		s.CaptionsEnabled = *p.CaptionsEnabled
	}
	if p.PenisSize != nil {
		s.PenisSize = *p.PenisSize
	}
	if p.CaptionModel != nil {
		s.CaptionModel = *p.CaptionModel
	}
	if p.CaptionPrompt != nil {
		s.CaptionPrompt = *p.CaptionPrompt
	}
	if c := p.ResolvedCredentials(); c != nil {
		s.Credentials = *c
	}
	if p.Favorites != nil {
		a.favorites = append([]SubredditEntry(nil), (*p.Favorites)...)
	}
	if p.Punishments != nil {
		a.punishments = append([]SubredditEntry(nil), (*p.Punishments)...)
	}
	if p.FavoritesCompletedCount != nil && *p.FavoritesCompletedCount >= 0 {
		a.stats.FavoritesCompleted = *p.FavoritesCompletedCount
	}
	if p.PunishmentsCompletedCount != nil && *p.PunishmentsCompletedCount >= 0 {
		a.stats.PunishmentsCompleted = *p.PunishmentsCompletedCount
	}
}

// Snapshot serializes the persistable state into a settings document.
func (a *AppState) Snapshot() Document {
	a.mu.RLock()
	defer a.mu.RUnlock()

	doc := Document{
		Settings:                  cloneSettings(a.settings),
		Favorites:                 append([]SubredditEntry{}, a.favorites...),
		Punishments:               append([]SubredditEntry{}, a.punishments...),
		FavoritesCompletedCount:   a.stats.FavoritesCompleted,
		PunishmentsCompletedCount: a.stats.PunishmentsCompleted,
		Version:                   SettingsVersion,
		LastUpdated:               NewDocumentTimestamp(time.Now()),
	}
	return doc
}

// Subreddits returns a copy of the requested list in backing order.
func (a *AppState) Subreddits(kind ListKind) []SubredditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]SubredditEntry{}, a.listFor(kind)...)
}

// MutateSubreddits runs fn over the requested list atomically. The returned
// slice replaces the list unless fn errors.
func (a *AppState) MutateSubreddits(kind ListKind, fn func([]SubredditEntry) ([]SubredditEntry, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	updated, err := fn(append([]SubredditEntry{}, a.listFor(kind)...))
	if err != nil {
		return err
	}
	if kind == Punishments {
		a.punishments = updated
	} else {
		a.favorites = updated
	}
	return nil
}

func (a *AppState) listFor(kind ListKind) []SubredditEntry {
	if kind == Punishments {
		return a.punishments
	}
	return a.favorites
}

// Folders returns the discovered folder set of the given kind.
func (a *AppState) Folders(kind FolderKind) []FolderInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if kind == PunishmentFolders {
		return append([]FolderInfo{}, a.punishmentFolders...)
	}
	return append([]FolderInfo{}, a.contentFolders...)
}

func (a *AppState) SetFolders(kind FolderKind, folders []FolderInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dup := append([]FolderInfo{}, folders...)
	if kind == PunishmentFolders {
		a.punishmentFolders = dup
	} else {
		a.contentFolders = dup
	}
}

func (a *AppState) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// AddCompleted bumps the counter matching the punishment flag.
func (a *AppState) AddCompleted(punishment bool) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if punishment {
		a.stats.PunishmentsCompleted++
	} else {
		a.stats.FavoritesCompleted++
	}
	return a.stats
}

func (a *AppState) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = Stats{}
}

func (a *AppState) Content() ContentFlags {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.content
}

func (a *AppState) SetLoading(loading bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content.IsLoading = loading
}

func (a *AppState) SetCurrentContent(isPunishment bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content.IsPunishment = isPunishment
	a.content.IsLoading = false
}

func (a *AppState) SetExternalOpen(open bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content.ExternalOpen = open
}

func (a *AppState) History() *History {
	return a.history
}

func cloneSettings(s Settings) Settings {
	dup := s
	dup.EnabledContentFolders = append([]string(nil), s.EnabledContentFolders...)
	dup.EnabledPunishmentFolders = append([]string(nil), s.EnabledPunishmentFolders...)
	return dup
}
