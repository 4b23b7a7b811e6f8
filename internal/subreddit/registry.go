package subreddit

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"cycleview/internal/state"
)

var (
	ErrEmptyName            = errors.New("subreddit name is empty")
	ErrDuplicate            = errors.New("subreddit already in list")
	ErrConfirmationRequired = errors.New("confirmation required")
)

var (
	// redditURLPattern extracts the subreddit segment from a full Reddit URL.
	redditURLPattern = regexp.MustCompile(`(?i)reddit\.com/r/([^/?#\s]+)`)
	invalidChars     = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Normalize reduces raw user input to a bare subreddit name: trims
// whitespace, strips a leading r/ prefix, pulls the path segment out of a
// Reddit URL, and drops every character outside [A-Za-z0-9_]. Returns ""
// when nothing usable remains.
func Normalize(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}

	if m := redditURLPattern.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	if len(name) >= 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	name = strings.TrimSpace(name)

	return invalidChars.ReplaceAllString(name, "")
}

// Persister saves the current state after a successful mutation.
type Persister interface {
	Save(ctx context.Context) bool
}

// Registry manages the favorites and punishments subreddit lists.
type Registry struct {
	state   *state.AppState
	persist Persister
	logger  zerolog.Logger
}

func NewRegistry(st *state.AppState, persist Persister, logger zerolog.Logger) *Registry {
	return &Registry{
		state:   st,
		persist: persist,
		logger:  logger.With().Str("component", "subreddits").Logger(),
	}
}

// View returns the list sorted case-insensitive-alphabetically for display.
func (r *Registry) View(kind state.ListKind) []state.SubredditEntry {
	entries := r.state.Subreddits(kind)
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries
}

// Add normalizes and appends a new enabled entry. Case-insensitive
// duplicates within the same list are rejected.
func (r *Registry) Add(ctx context.Context, kind state.ListKind, raw string) (string, error) {
	name := Normalize(raw)
	if name == "" {
		return "", ErrEmptyName
	}

	err := r.state.MutateSubreddits(kind, func(entries []state.SubredditEntry) ([]state.SubredditEntry, error) {
		for _, e := range entries {
			if strings.EqualFold(e.Name, name) {
				return nil, ErrDuplicate
			}
		}
		return append(entries, state.SubredditEntry{Name: name, Enabled: true}), nil
	})
	if err != nil {
		return "", err
	}

	r.logger.Info().Str("list", string(kind)).Str("name", name).Msg("subreddit added")
	r.persist.Save(ctx)
	return name, nil
}

// ToggleAt flips the enabled flag of the entry at the given display
// position. Out-of-range positions are a no-op.
func (r *Registry) ToggleAt(ctx context.Context, kind state.ListKind, displayIndex int) {
	name, ok := r.nameAtDisplay(kind, displayIndex)
	if !ok {
		return
	}

	_ = r.state.MutateSubreddits(kind, func(entries []state.SubredditEntry) ([]state.SubredditEntry, error) {
		for i := range entries {
			if strings.EqualFold(entries[i].Name, name) {
				entries[i].Enabled = !entries[i].Enabled
				break
			}
		}
		return entries, nil
	})
	r.persist.Save(ctx)
}

// RemoveAt removes the entry at the given display position. Out-of-range
// positions are a no-op.
func (r *Registry) RemoveAt(ctx context.Context, kind state.ListKind, displayIndex int) {
	name, ok := r.nameAtDisplay(kind, displayIndex)
	if !ok {
		return
	}

	_ = r.state.MutateSubreddits(kind, func(entries []state.SubredditEntry) ([]state.SubredditEntry, error) {
		for i := range entries {
			if strings.EqualFold(entries[i].Name, name) {
				return append(entries[:i], entries[i+1:]...), nil
			}
		}
		return entries, nil
	})
	r.persist.Save(ctx)
}

// SetAll sets every entry's enabled flag.
func (r *Registry) SetAll(ctx context.Context, kind state.ListKind, enabled bool) {
	_ = r.state.MutateSubreddits(kind, func(entries []state.SubredditEntry) ([]state.SubredditEntry, error) {
		for i := range entries {
			entries[i].Enabled = enabled
		}
		return entries, nil
	})
	r.persist.Save(ctx)
}

// RemoveAll clears the list. Destructive and irreversible, so the caller
// must pass an explicit confirmation.
func (r *Registry) RemoveAll(ctx context.Context, kind state.ListKind, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	_ = r.state.MutateSubreddits(kind, func([]state.SubredditEntry) ([]state.SubredditEntry, error) {
		return nil, nil
	})
	r.logger.Info().Str("list", string(kind)).Msg("subreddit list cleared")
	r.persist.Save(ctx)
	return nil
}

// RemoveByName drops a subreddit from both lists by case-insensitive name
// match. Used when the backend reports the subreddit no longer exists.
// Returns true when anything was removed.
func (r *Registry) RemoveByName(ctx context.Context, name string) bool {
	removed := false
	for _, kind := range []state.ListKind{state.Favorites, state.Punishments} {
		_ = r.state.MutateSubreddits(kind, func(entries []state.SubredditEntry) ([]state.SubredditEntry, error) {
			kept := entries[:0]
			for _, e := range entries {
				if strings.EqualFold(e.Name, name) {
					removed = true
					continue
				}
				kept = append(kept, e)
			}
			return kept, nil
		})
	}
	if removed {
		r.logger.Info().Str("name", name).Msg("removed missing subreddit from lists")
		r.persist.Save(ctx)
	}
	return removed
}

// EnabledCount reports how many entries in the list are enabled.
func (r *Registry) EnabledCount(kind state.ListKind) int {
	count := 0
	for _, e := range r.state.Subreddits(kind) {
		if e.Enabled {
			count++
		}
	}
	return count
}

// nameAtDisplay maps a sorted display position back to the entry name.
// Names are unique per list, so the name is a stable lookup key into the
// unsorted backing order.
func (r *Registry) nameAtDisplay(kind state.ListKind, displayIndex int) (string, bool) {
	view := r.View(kind)
	if displayIndex < 0 || displayIndex >= len(view) {
		return "", false
	}
	return view[displayIndex].Name, true
}
