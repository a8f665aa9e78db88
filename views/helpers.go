package views

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// DocumentURL is the canonical URL of a document.
func DocumentURL(cfg SiteConfig, doc Document) string {
	return buildURL(cfg.URL, doc.URI)
}

// FormatDate renders a publish date for humans.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalLD(data)
}

// DocumentJsonLD produces a BlogPosting block for articles and features
// and a WebPage block for everything else.
func DocumentJsonLD(cfg SiteConfig, doc Document, kind string) string {
	docURL := DocumentURL(cfg, doc)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    kind,
		"headline": doc.Title,
		"url":      docURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   docURL,
		},
	}
	if doc.Excerpt != "" {
		data["description"] = doc.Excerpt
	}
	if !doc.Date.IsZero() {
		data["datePublished"] = doc.Date.Format(time.RFC3339)
	}
	if doc.Image != nil {
		data["image"] = doc.Image.URL
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalLD(data)
}

func marshalLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// printer writes HTML fragments and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *printer) text(s string) {
	p.raw(html.EscapeString(s))
}

func (p *printer) attr(name, value string) {
	p.raw(" ", name, `="`, html.EscapeString(value), `"`)
}

func (p *printer) render(ctx context.Context, c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}
