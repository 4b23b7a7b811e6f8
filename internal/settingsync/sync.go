package settingsync

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"cycleview/internal/backend"
	"cycleview/internal/state"
	"cycleview/internal/storage"
)

// Remote is the subset of the backend client the syncer needs.
type Remote interface {
	LoadSettings(ctx context.Context) (*state.Patch, error)
	SaveSettings(ctx context.Context, doc state.Document) error
}

var _ Remote = (*backend.Client)(nil)

// Notifier surfaces user-visible notices; failures never stay silent.
type Notifier interface {
	Notify(message string)
}

// Sync reconciles AppState with the local cache and the remote settings
// store. The local cache is the durable source of truth from the client's
// perspective; the remote store is best-effort replication.
type Sync struct {
	state    *state.AppState
	store    *storage.Store
	remote   Remote
	notifier Notifier
	logger   zerolog.Logger

	mu sync.Mutex
	// sessionSource is the session-scoped content source, valid for the
	// lifetime of this process.
	sessionSource string
}

func New(st *state.AppState, store *storage.Store, remote Remote, notifier Notifier, logger zerolog.Logger) *Sync {
	return &Sync{
		state:    st,
		store:    store,
		remote:   remote,
		notifier: notifier,
		logger:   logger.With().Str("component", "settingsync").Logger(),
	}
}

// Load hydrates AppState: local cache first, then the remote store. A
// successful remote fetch is authoritative and refreshes the local cache;
// on remote failure the previously parsed local cache stands; with neither,
// the hardcoded defaults already in AppState stay. sourceOverride is the
// explicit tier-1 content source (query-string analog), may be empty.
func (s *Sync) Load(ctx context.Context, sourceOverride string) {
	local := s.loadLocal()
	if local != nil {
		if local.Migrate() {
			s.logger.Info().Msg("migrated cached settings to current version")
		}
		s.state.ApplyPatch(local)
	}

	remote, err := s.remote.LoadSettings(ctx)
	switch {
	case err == nil:
		if remote.Migrate() {
			s.logger.Info().Msg("migrated remote settings to current version")
		}
		s.state.ApplyPatch(remote)
		s.writeLocal(s.state.Snapshot())
		s.logger.Info().Msg("settings loaded from remote store")
	case local != nil:
		s.logger.Warn().Err(err).Msg("remote settings unavailable, using local cache")
		s.notifier.Notify("Settings loaded from local cache; remote store unavailable")
	default:
		s.logger.Warn().Err(err).Msg("no settings available, using defaults")
		s.notifier.Notify("Using default settings; no saved settings found")
	}

	s.applyStandaloneKeys()
	s.ResolveContentSource(sourceOverride)
}

// Save persists the current state: local cache synchronously first, then
// the remote store. A remote failure is surfaced but never rolls back the
// local write.
func (s *Sync) Save(ctx context.Context) bool {
	doc := s.state.Snapshot()
	s.writeLocal(doc)

	if err := s.remote.SaveSettings(ctx, doc); err != nil {
		s.logger.Error().Err(err).Msg("remote settings save failed")
		s.notifier.Notify("Settings saved locally; remote save failed")
		return false
	}
	return true
}

// ResolveContentSource applies the 4-tier priority: explicit override >
// session value > stored settings > default. The winner is written back to
// the session, the standalone cache key and AppState so later reads are
// stable.
func (s *Sync) ResolveContentSource(override string) string {
	s.mu.Lock()
	session := s.sessionSource
	s.mu.Unlock()

	resolved := ""
	switch {
	case state.ValidSource(override):
		resolved = override
	case state.ValidSource(session):
		resolved = session
	default:
		if v, ok, err := s.store.Get(storage.KeyContentSource); err == nil && ok && state.ValidSource(v) {
			resolved = v
		} else if stored := s.state.Settings().ContentSource; state.ValidSource(stored) {
			resolved = stored
		} else {
			resolved = state.SourceReddit
		}
	}

	s.mu.Lock()
	s.sessionSource = resolved
	s.mu.Unlock()

	if err := s.store.Set(storage.KeyContentSource, resolved); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist content source key")
	}
	s.state.UpdateSettings(func(st *state.Settings) {
		st.ContentSource = resolved
	})
	return resolved
}

// SessionSource returns the session-scoped content source, if resolved.
func (s *Sync) SessionSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionSource
}

// loadLocal reads and parses the cached settings blob. Malformed JSON is a
// cache miss, not a fatal condition.
func (s *Sync) loadLocal() *state.Patch {
	blob, ok, err := s.store.Get(storage.KeySettings)
	if err != nil {
		s.logger.Warn().Err(err).Msg("local settings cache read failed")
		return nil
	}
	if !ok {
		return nil
	}

	patch, err := state.ParseDocument([]byte(blob))
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed cached settings")
		if derr := s.store.Delete(storage.KeySettings); derr != nil {
			s.logger.Warn().Err(derr).Msg("failed to drop malformed cache entry")
		}
		return nil
	}
	return patch
}

func (s *Sync) writeLocal(doc state.Document) {
	data, err := doc.MarshalJSON()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode settings document")
		return
	}
	if err := s.store.Set(storage.KeySettings, string(data)); err != nil {
		s.logger.Error().Err(err).Msg("local settings cache write failed")
		s.notifier.Notify("Failed to write settings to local cache")
		return
	}

	// Standalone keys mirror a few values outside the blob.
	if err := s.store.Set(storage.KeySoundEnabled, strconv.FormatBool(doc.SoundEnabled)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist sound key")
	}
	if err := s.store.Set(storage.KeyTheme, doc.Theme); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist theme key")
	}
	if doc.ContentSource != "" {
		if err := s.store.Set(storage.KeyContentSource, doc.ContentSource); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist content source key")
		}
	}
}

// applyStandaloneKeys folds the standalone cache keys into state when the
// blob did not carry them.
func (s *Sync) applyStandaloneKeys() {
	if v, ok, err := s.store.Get(storage.KeySoundEnabled); err == nil && ok {
		if enabled, perr := strconv.ParseBool(v); perr == nil {
			s.state.UpdateSettings(func(st *state.Settings) {
				st.SoundEnabled = enabled
			})
		}
	}
	if v, ok, err := s.store.Get(storage.KeyTheme); err == nil && ok && v != "" {
		s.state.UpdateSettings(func(st *state.Settings) {
			st.Theme = v
		})
	}
}
