package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettingsVersion is written into every persisted settings document.
const SettingsVersion = "1.1"

// Settings is the canonical in-memory settings shape. The legacy flat
// credential fields (redditClientId etc.) exist only on the JSON boundary.
type Settings struct {
	ContentSource            string      `json:"contentSource"`
	PunishmentsEnabled       bool        `json:"punishmentsEnabled"`
	AutoCycleEnabled         bool        `json:"autoCycleEnabled"`
	AutoCycleSeconds         int         `json:"autoCycleSeconds,omitempty"`
	VideoSoftLimitEnabled    bool        `json:"videoTimerSoftLimitEnabled"`
	TimerMin                 int         `json:"timerMin"`
	TimerMax                 int         `json:"timerMax"`
	Theme                    string      `json:"theme"`
	SoundEnabled             bool        `json:"soundEnabled"`
	MetronomeSpeed           int         `json:"metronomeSpeed"`
	MetronomeSound           string      `json:"metronomeSound"`
	MetronomeVolume          float64     `json:"metronomeVolume"`
	EnabledContentFolders    []string    `json:"enabledContentFolders"`
	EnabledPunishmentFolders []string    `json:"enabledPunishmentFolders"`
	CaptionsEnabled          bool        `json:"captionsEnabled,omitempty"`
	PenisSize                string      `json:"penisSize,omitempty"`
	CaptionModel             string      `json:"captionModel,omitempty"`
	CaptionPrompt            string      `json:"captionPrompt,omitempty"`
	Credentials              Credentials `json:"redditCredentials,omitempty"`
}

type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserAgent    string `json:"user_agent"`
}

func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DefaultSettings mirrors the hardcoded defaults applied when neither the
// local cache nor the remote store has anything usable.
func DefaultSettings() Settings {
	return Settings{
		ContentSource:         SourceReddit,
		PunishmentsEnabled:    false,
		AutoCycleEnabled:      true,
		VideoSoftLimitEnabled: true,
		TimerMin:              30,
		TimerMax:              120,
		Theme:                 "light",
		SoundEnabled:          true,
		MetronomeSpeed:        60,
		MetronomeSound:        "default",
		MetronomeVolume:       0.7,
	}
}

// Content source modes.
const (
	SourceReddit = "reddit"
	SourceCustom = "custom"
	SourceMixed  = "mixed"
)

func ValidSource(s string) bool {
	return s == SourceReddit || s == SourceCustom || s == SourceMixed
}

// Document is the full persisted settings shape: scalar settings plus the
// subreddit lists and completion counters, exactly as the remote store and
// the local cache exchange it.
type Document struct {
	Settings
	Favorites                 []SubredditEntry `json:"favorites"`
	Punishments               []SubredditEntry `json:"punishments"`
	FavoritesCompletedCount   int              `json:"favoritesCompletedCount"`
	PunishmentsCompletedCount int              `json:"punishmentsCompletedCount"`
	Version                   string           `json:"version"`
	LastUpdated               string           `json:"lastUpdated"`
}

// MarshalJSON emits the legacy flat credential fields alongside the nested
// object so older consumers of the settings document keep working.
func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	out := struct {
		alias
		RedditClientID     string `json:"redditClientId,omitempty"`
		RedditClientSecret string `json:"redditClientSecret,omitempty"`
		RedditUserAgent    string `json:"redditUserAgent,omitempty"`
	}{alias: alias(d)}
	if d.Credentials.Configured() {
		out.RedditClientID = d.Credentials.ClientID
		out.RedditClientSecret = d.Credentials.ClientSecret
		out.RedditUserAgent = d.Credentials.UserAgent
	}
	return json.Marshal(out)
}

// Patch is a partial settings document. Nil fields were absent from the
// source and must not overwrite current values when applied.
type Patch struct {
	ContentSource            *string      `json:"contentSource"`
	PunishmentsEnabled       *bool        `json:"punishmentsEnabled"`
	AutoCycleEnabled         *bool        `json:"autoCycleEnabled"`
	AutoCycleSeconds         *FlexInt     `json:"autoCycleSeconds"`
	VideoSoftLimitEnabled    *bool        `json:"videoTimerSoftLimitEnabled"`
	TimerMin                 *FlexInt     `json:"timerMin"`
	TimerMax                 *FlexInt     `json:"timerMax"`
	Theme                    *string      `json:"theme"`
	SoundEnabled             *bool        `json:"soundEnabled"`
	MetronomeSpeed           *FlexInt     `json:"metronomeSpeed"`
	MetronomeSound           *string      `json:"metronomeSound"`
	MetronomeVolume          *float64     `json:"metronomeVolume"`
	EnabledContentFolders    *[]string    `json:"enabledContentFolders"`
	EnabledPunishmentFolders *[]string    `json:"enabledPunishmentFolders"`
	CaptionsEnabled          *bool        `json:"captionsEnabled"`
	PenisSize                *string      `json:"penisSize"`
	CaptionModel             *string      `json:"captionModel"`
	CaptionPrompt            *string      `json:"captionPrompt"`
	Credentials              *Credentials `json:"redditCredentials"`

	// Legacy flat credential shape, folded into Credentials on apply.
	RedditClientID     *string `json:"redditClientId"`
	RedditClientSecret *string `json:"redditClientSecret"`
	RedditUserAgent    *string `json:"redditUserAgent"`

	Favorites                 *[]SubredditEntry `json:"favorites"`
	Punishments               *[]SubredditEntry `json:"punishments"`
	FavoritesCompletedCount   *int              `json:"favoritesCompletedCount"`
	PunishmentsCompletedCount *int              `json:"punishmentsCompletedCount"`
	Version                   *string           `json:"version"`
}

// ParseDocument decodes a settings document into a Patch. Fields the source
// does not carry stay nil so the merge keeps existing values.
func ParseDocument(data []byte) (*Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse settings document: %w", err)
	}
	return &p, nil
}

// ResolvedCredentials returns the canonical credentials carried by the
// patch, preferring the nested object over the legacy flat fields.
func (p *Patch) ResolvedCredentials() *Credentials {
	if p.Credentials != nil && p.Credentials.Configured() {
		c := *p.Credentials
		c.normalize()
		return &c
	}
	if p.RedditClientID != nil && p.RedditClientSecret != nil {
		c := Credentials{
			ClientID:     strings.TrimSpace(*p.RedditClientID),
			ClientSecret: strings.TrimSpace(*p.RedditClientSecret),
		}
		if p.RedditUserAgent != nil {
			c.UserAgent = strings.TrimSpace(*p.RedditUserAgent)
		}
		if c.Configured() {
			c.normalize()
			return &c
		}
	}
	return nil
}

func (c *Credentials) normalize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	if c.UserAgent == "" {
		c.UserAgent = "cycleview/1.0"
	}
}

// FlexInt decodes from either a JSON number or a numeric string. The
// original store persisted timer bounds as strings ("30"), so both shapes
// show up in cached and remote documents.
type FlexInt int

func (f FlexInt) Int() int { return int(f) }

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("numeric string expected, got %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(int(n))
	return nil
}

// NewDocumentTimestamp formats the lastUpdated field the way the original
// store does.
func NewDocumentTimestamp(now time.Time) string {
	return now.Format(time.RFC3339)
}
