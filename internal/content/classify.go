package content

import (
	"net/url"
	"regexp"
	"strings"

	"cycleview/internal/backend"
)

// Kind is the render category of a content payload.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindExternal Kind = "external"
	KindRaw      Kind = "raw"
)

var (
	imagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(\?.*)?$`)
	videoPattern = regexp.MustCompile(`(?i)\.(mp4|webm|mov)(\?.*)?$`)
)

// Classification is the pure result of classifying a content payload,
// independent of any rendering concern.
type Classification struct {
	Kind    Kind
	URL     string
	Gallery []string
	Raw     string

	Title        string
	Info         string
	Source       string
	Subreddit    string
	Folder       string
	FileName     string
	IsPunishment bool
}

// Classify maps a content payload onto a render category. Precedence: a
// gallery of at least two images, then the direct content URL, then the
// post URL, then the generic url field, then the raw diagnostic fallback.
func Classify(p *backend.ContentPayload) Classification {
	c := Classification{
		Title:        p.PostTitle,
		Info:         p.Info,
		Source:       p.Source,
		Subreddit:    p.Subreddit,
		Folder:       p.Folder,
		FileName:     p.FileName,
		IsPunishment: p.IsPunishment,
	}

	if len(p.GalleryImages) >= 2 {
		c.Kind = KindImage
		c.Gallery = make([]string, len(p.GalleryImages))
		for i, u := range p.GalleryImages {
			c.Gallery[i] = NormalizeImageURL(u)
		}
		c.URL = c.Gallery[0]
		return c
	}

	if p.ContentURL != "" {
		switch {
		case imagePattern.MatchString(p.ContentURL):
			c.Kind = KindImage
			c.URL = NormalizeImageURL(p.ContentURL)
			return c
		case videoPattern.MatchString(p.ContentURL):
			c.Kind = KindVideo
			c.URL = p.ContentURL
			return c
		}
	}

	if p.PostURL != "" {
		switch {
		case imagePattern.MatchString(p.PostURL):
			c.Kind = KindImage
			c.URL = NormalizeImageURL(p.PostURL)
		case videoPattern.MatchString(p.PostURL):
			c.Kind = KindVideo
			c.URL = p.PostURL
		default:
			c.Kind = KindExternal
			c.URL = p.PostURL
		}
		return c
	}

	if p.URL != "" {
		switch {
		case imagePattern.MatchString(p.URL) || p.Type == "image":
			c.Kind = KindImage
			c.URL = NormalizeImageURL(p.URL)
		case videoPattern.MatchString(p.URL) || p.Type == "video":
			c.Kind = KindVideo
			c.URL = p.URL
		default:
			c.Kind = KindExternal
			c.URL = p.URL
		}
		return c
	}

	if p.ContentURL != "" {
		// Unrecognized extension on a direct URL: open it externally
		// rather than guessing a renderer.
		c.Kind = KindExternal
		c.URL = p.ContentURL
		return c
	}

	c.Kind = KindRaw
	c.Raw = string(p.Raw)
	return c
}

// NormalizeImageURL works around Reddit CDN quirks: HTML-escaped
// ampersands, preview.redd.it previews that 403 outside the site, and webp
// variants that some embedders refuse.
func NormalizeImageURL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "&amp;", "&")

	u, err := url.Parse(cleaned)
	if err != nil || u.Host == "" {
		return cleaned
	}

	if strings.EqualFold(u.Host, "preview.redd.it") {
		u.Host = "i.redd.it"
		u.RawQuery = ""
		u.Fragment = ""
		if strings.HasSuffix(strings.ToLower(u.Path), ".webp") {
			u.Path = u.Path[:len(u.Path)-len(".webp")] + ".jpg"
		}
		return u.String()
	}

	changed := false
	q := u.Query()
	if f := q.Get("format"); f == "webp" || f == "pjpg" {
		q.Set("format", "jpg")
		changed = true
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".webp") {
		u.Path = u.Path[:len(u.Path)-len(".webp")] + ".jpg"
		changed = true
	}
	if changed {
		u.RawQuery = q.Encode()
		return u.String()
	}
	return cleaned
}

// ContentID returns the payload's resolvable identifier for history
// tracking, or "" when the payload has none.
func ContentID(p *backend.ContentPayload) string {
	switch {
	case p.PostURL != "":
		return p.PostURL
	case p.ContentURL != "":
		return p.ContentURL
	case p.URL != "":
		return p.URL
	}
	return ""
}
