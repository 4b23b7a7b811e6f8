package content

// View is what the renderer receives for one piece of content.
type View struct {
	Kind         Kind     `json:"kind"`
	URL          string   `json:"url"`
	Gallery      []string `json:"gallery,omitempty"`
	GalleryIndex int      `json:"galleryIndex,omitempty"`
	Caption      string   `json:"caption,omitempty"`
	Raw          string   `json:"raw,omitempty"`

	Title        string `json:"title,omitempty"`
	Info         string `json:"info,omitempty"`
	Source       string `json:"source,omitempty"`
	Subreddit    string `json:"subreddit,omitempty"`
	Folder       string `json:"folder,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	IsPunishment bool   `json:"isPunishment"`
}

// HasGallery reports whether the view carries a navigable gallery.
func (v *View) HasGallery() bool {
	return v != nil && len(v.Gallery) >= 2
}

// CurrentSlide returns the image URL at the gallery position, or the plain
// URL for non-gallery views.
func (v *View) CurrentSlide() string {
	if !v.HasGallery() {
		return v.URL
	}
	return v.Gallery[v.GalleryIndex]
}

func viewFromClassification(c Classification) View {
	return View{
		Kind:         c.Kind,
		URL:          c.URL,
		Gallery:      c.Gallery,
		Raw:          c.Raw,
		Title:        c.Title,
		Info:         c.Info,
		Source:       c.Source,
		Subreddit:    c.Subreddit,
		Folder:       c.Folder,
		FileName:     c.FileName,
		IsPunishment: c.IsPunishment,
	}
}

// Renderer is the display surface the pipeline hands content to. External
// content opens in a tracked separate window; CloseExternal must be safe to
// call when no window is open.
type Renderer interface {
	Show(view View)
	OpenExternal(url string)
	CloseExternal()
	PlayCompletion(volume float64)
}

// Notifier surfaces user-visible notices.
type Notifier interface {
	Notify(message string)
}
