package views

import "time"

// SiteConfig holds site-wide settings shared by every rendered page.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}

// Document is a WordPress content node as the templates see it.
type Document struct {
	ID      string
	URI     string
	Type    string
	Title   string
	Date    time.Time
	Content string // HTML, already sanitized when the site asks for it
	Excerpt string // plain text
	Image   *Image
}

// Image is a featured image.
type Image struct {
	URL string
	Alt string
}

// Link points at a neighbouring document.
type Link struct {
	Title string
	URI   string
}

// BuildRow is one line of the console's build history.
type BuildRow struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	State      string
	Pages      int
	Skipped    bool
	FailedType string
	Error      string
}

// PageRow is one generated page of a build.
type PageRow struct {
	Path      string
	Template  string
	ID        string
	Previous  string
	Next      string
	ChangeTag string // "added", "removed" or ""
}
