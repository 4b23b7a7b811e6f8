package folders

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"cycleview/internal/backend"
	"cycleview/internal/state"
)

// Source lists the server-side custom folders.
type Source interface {
	GetCustomFolders(ctx context.Context, refresh bool) (*backend.FoldersPayload, error)
}

type Persister interface {
	Save(ctx context.Context) bool
}

// Registry manages the discovered folder sets and their enabled subsets.
type Registry struct {
	state   *state.AppState
	source  Source
	persist Persister
	logger  zerolog.Logger
}

func NewRegistry(st *state.AppState, source Source, persist Persister, logger zerolog.Logger) *Registry {
	return &Registry{
		state:   st,
		source:  source,
		persist: persist,
		logger:  logger.With().Str("component", "folders").Logger(),
	}
}

// Refresh re-reads the folder sets from the backend. The backend may also
// echo back enabled subsets, which are merged in when present.
func (r *Registry) Refresh(ctx context.Context, force bool) error {
	payload, err := r.source.GetCustomFolders(ctx, force)
	if err != nil {
		return fmt.Errorf("refresh folders: %w", err)
	}

	r.state.SetFolders(state.ContentFolders, payload.ContentFolders)
	r.state.SetFolders(state.PunishmentFolders, payload.PunishmentFolders)

	r.state.UpdateSettings(func(s *state.Settings) {
		if payload.EnabledContentFolders != nil {
			s.EnabledContentFolders = r.known(payload.ContentFolders, payload.EnabledContentFolders)
		} else {
			s.EnabledContentFolders = r.known(payload.ContentFolders, s.EnabledContentFolders)
		}
		if payload.EnabledPunishmentFolders != nil {
			s.EnabledPunishmentFolders = r.known(payload.PunishmentFolders, payload.EnabledPunishmentFolders)
		} else {
			s.EnabledPunishmentFolders = r.known(payload.PunishmentFolders, s.EnabledPunishmentFolders)
		}
	})

	r.logger.Info().
		Int("content", len(payload.ContentFolders)).
		Int("punishment", len(payload.PunishmentFolders)).
		Bool("cached", payload.Cached).
		Msg("folders refreshed")
	return nil
}

// Folders returns the discovered folder set of a kind.
func (r *Registry) Folders(kind state.FolderKind) []state.FolderInfo {
	return r.state.Folders(kind)
}

// Enabled returns the active subset of a kind.
func (r *Registry) Enabled(kind state.FolderKind) []string {
	s := r.state.Settings()
	if kind == state.PunishmentFolders {
		return s.EnabledPunishmentFolders
	}
	return s.EnabledContentFolders
}

// SetEnabled replaces the enabled subset of a kind, dropping names that are
// not currently discovered, and persists.
func (r *Registry) SetEnabled(ctx context.Context, kind state.FolderKind, names []string) {
	discovered := r.state.Folders(kind)
	filtered := r.known(discovered, names)

	r.state.UpdateSettings(func(s *state.Settings) {
		if kind == state.PunishmentFolders {
			s.EnabledPunishmentFolders = filtered
		} else {
			s.EnabledContentFolders = filtered
		}
	})
	r.persist.Save(ctx)
}

// Toggle flips one folder's membership in the enabled subset and persists.
func (r *Registry) Toggle(ctx context.Context, kind state.FolderKind, name string) {
	enabled := r.Enabled(kind)
	found := false
	next := make([]string, 0, len(enabled)+1)
	for _, n := range enabled {
		if n == name {
			found = true
			continue
		}
		next = append(next, n)
	}
	if !found {
		next = append(next, name)
	}
	r.SetEnabled(ctx, kind, next)
}

// known filters names down to folders that actually exist server-side.
func (r *Registry) known(discovered []state.FolderInfo, names []string) []string {
	index := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		index[f.Name] = true
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if index[n] {
			kept = append(kept, n)
		}
	}
	return kept
}
