package settingsync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"cycleview/internal/state"
	"cycleview/internal/storage"
)

type fakeRemote struct {
	mu      sync.Mutex
	loadDoc string
	loadErr error
	saveErr error
	saved   []state.Document
}

func (r *fakeRemote) LoadSettings(ctx context.Context) (*state.Patch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return state.ParseDocument([]byte(r.loadDoc))
}

func (r *fakeRemote) SaveSettings(ctx context.Context, doc state.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, doc)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fixture struct {
	st       *state.AppState
	store    *storage.Store
	remote   *fakeRemote
	notifier *recordingNotifier
	sync     *Sync
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		st:       state.New(),
		store:    store,
		remote:   &fakeRemote{loadErr: errors.New("unreachable")},
		notifier: &recordingNotifier{},
	}
	f.sync = New(f.st, f.store, f.remote, f.notifier, zerolog.Nop())
	return f
}

func TestLoadRemoteWinsAndRefreshesLocal(t *testing.T) {
	f := newFixture(t)
	f.remote.loadErr = nil
	f.remote.loadDoc = `{"theme": "dark", "timerMin": "45", "version": "1.1"}`

	f.sync.Load(context.Background(), "")

	s := f.st.Settings()
	if s.Theme != "dark" || s.TimerMin != 45 {
		t.Errorf("settings = theme %q, timerMin %d, want dark/45", s.Theme, s.TimerMin)
	}

	// The remote document got mirrored into the local cache.
	blob, ok, err := f.store.Get(storage.KeySettings)
	if err != nil || !ok {
		t.Fatalf("local cache blob missing: ok = %v, err = %v", ok, err)
	}
	patch, err := state.ParseDocument([]byte(blob))
	if err != nil {
		t.Fatalf("cached blob unparseable: %v", err)
	}
	if patch.Theme == nil || *patch.Theme != "dark" {
		t.Errorf("cached theme = %v, want dark", patch.Theme)
	}
}

func TestLoadFallsBackToLocalCache(t *testing.T) {
	f := newFixture(t)

	// Seed the cache from an earlier successful run.
	f.store.Set(storage.KeySettings, `{"theme": "dark", "version": "1.1"}`)

	f.sync.Load(context.Background(), "")

	if got := f.st.Settings().Theme; got != "dark" {
		t.Errorf("Theme = %q, want dark from local cache", got)
	}
	if f.notifier.count() == 0 {
		t.Errorf("no notice about remote being unavailable")
	}
}

func TestLoadDefaultsWhenNothingAvailable(t *testing.T) {
	f := newFixture(t)

	f.sync.Load(context.Background(), "")

	s := f.st.Settings()
	defaults := state.DefaultSettings()
	if s.Theme != defaults.Theme || s.TimerMin != defaults.TimerMin {
		t.Errorf("settings = %+v, want defaults", s)
	}
	if f.notifier.count() == 0 {
		t.Errorf("no notice about default settings")
	}
}

func TestLoadDiscardsMalformedCache(t *testing.T) {
	f := newFixture(t)
	f.store.Set(storage.KeySettings, `{not json`)

	f.sync.Load(context.Background(), "")

	if _, ok, _ := f.store.Get(storage.KeySettings); ok {
		t.Errorf("malformed cache entry not dropped")
	}
	if got := f.st.Settings().Theme; got != state.DefaultSettings().Theme {
		t.Errorf("Theme = %q, want default after cache miss", got)
	}
}

func TestLoadMigratesOldDocuments(t *testing.T) {
	f := newFixture(t)
	f.remote.loadErr = nil
	f.remote.loadDoc = `{"version": "0.1", "timerMin": "20"}`

	f.sync.Load(context.Background(), "")

	s := f.st.Settings()
	if s.TimerMin != 20 {
		t.Errorf("TimerMin = %d, want 20", s.TimerMin)
	}
	if s.MetronomeSound != "default" || s.MetronomeVolume != 0.7 {
		t.Errorf("migration defaults missing: sound %q volume %v", s.MetronomeSound, s.MetronomeVolume)
	}
}

func TestSaveWritesLocalEvenWhenRemoteFails(t *testing.T) {
	f := newFixture(t)
	f.remote.saveErr = errors.New("remote down")

	f.st.UpdateSettings(func(s *state.Settings) { s.Theme = "dark" })

	if ok := f.sync.Save(context.Background()); ok {
		t.Errorf("Save() = true with failing remote")
	}
	if f.notifier.count() == 0 {
		t.Errorf("no notice about remote save failure")
	}

	// A later load with the remote still down sees the saved values.
	f.st = state.New()
	f.sync = New(f.st, f.store, f.remote, f.notifier, zerolog.Nop())
	f.sync.Load(context.Background(), "")

	if got := f.st.Settings().Theme; got != "dark" {
		t.Errorf("Theme = %q after reload, want dark from local cache", got)
	}
}

func TestSavePushesToRemote(t *testing.T) {
	f := newFixture(t)
	f.remote.loadErr = nil
	f.remote.loadDoc = `{"version": "1.1"}`

	f.st.UpdateSettings(func(s *state.Settings) { s.Theme = "dark" })

	if ok := f.sync.Save(context.Background()); !ok {
		t.Fatalf("Save() = false")
	}

	f.remote.mu.Lock()
	saved := append([]state.Document(nil), f.remote.saved...)
	f.remote.mu.Unlock()
	if len(saved) != 1 || saved[0].Theme != "dark" {
		t.Errorf("remote saves = %+v", saved)
	}
	if saved[0].Version != state.SettingsVersion {
		t.Errorf("saved version = %q, want %q", saved[0].Version, state.SettingsVersion)
	}
}

func TestResolveContentSourcePriority(t *testing.T) {
	f := newFixture(t)

	// Tier 4: nothing anywhere resolves to reddit.
	if got := f.sync.ResolveContentSource(""); got != state.SourceReddit {
		t.Errorf("ResolveContentSource() = %q, want reddit default", got)
	}

	// Tier 3: stored settings value.
	f.store.Set(storage.KeyContentSource, state.SourceMixed)
	f.sync = New(f.st, f.store, f.remote, f.notifier, zerolog.Nop())
	if got := f.sync.ResolveContentSource(""); got != state.SourceMixed {
		t.Errorf("ResolveContentSource() = %q, want stored mixed", got)
	}

	// Tier 2: the session value set by the previous resolution wins over
	// the stored key.
	f.store.Set(storage.KeyContentSource, state.SourceReddit)
	if got := f.sync.ResolveContentSource(""); got != state.SourceMixed {
		t.Errorf("ResolveContentSource() = %q, want session mixed", got)
	}

	// Tier 1: explicit override beats everything.
	if got := f.sync.ResolveContentSource(state.SourceCustom); got != state.SourceCustom {
		t.Errorf("ResolveContentSource(custom) = %q, want custom", got)
	}

	if got := f.sync.SessionSource(); got != state.SourceCustom {
		t.Errorf("SessionSource() = %q, want custom", got)
	}
	if got := f.st.Settings().ContentSource; got != state.SourceCustom {
		t.Errorf("state ContentSource = %q, want custom", got)
	}
}

func TestResolveContentSourceIgnoresInvalidOverride(t *testing.T) {
	f := newFixture(t)

	if got := f.sync.ResolveContentSource("bogus"); got != state.SourceReddit {
		t.Errorf("ResolveContentSource(bogus) = %q, want reddit", got)
	}
}

func TestLoadAppliesExplicitOverride(t *testing.T) {
	f := newFixture(t)
	f.remote.loadErr = nil
	f.remote.loadDoc = `{"contentSource": "reddit", "version": "1.1"}`

	f.sync.Load(context.Background(), state.SourceCustom)

	if got := f.st.Settings().ContentSource; got != state.SourceCustom {
		t.Errorf("ContentSource = %q, want override custom", got)
	}
	// The winner was written back to the standalone key.
	if v, ok, _ := f.store.Get(storage.KeyContentSource); !ok || v != state.SourceCustom {
		t.Errorf("stored key = (%q, %v), want custom", v, ok)
	}
}

func TestStandaloneKeysApplied(t *testing.T) {
	f := newFixture(t)
	f.store.Set(storage.KeySoundEnabled, "false")
	f.store.Set(storage.KeyTheme, "dark")

	f.sync.Load(context.Background(), "")

	s := f.st.Settings()
	if s.SoundEnabled {
		t.Errorf("SoundEnabled = true, standalone key ignored")
	}
	if s.Theme != "dark" {
		t.Errorf("Theme = %q, want dark from standalone key", s.Theme)
	}
}
