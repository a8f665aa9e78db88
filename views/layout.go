package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared HTML shell with SEO and OpenGraph tags.
func Layout(cfg SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		title := cfg.Name
		if meta.Title != "" && meta.Title != cfg.Name {
			title = meta.Title + " | " + cfg.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = cfg.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		p.raw(`<!DOCTYPE html>`, "\n", `<html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(`</title>`)
		if desc != "" {
			p.raw(`<meta name="description"`)
			p.attr("content", desc)
			p.raw(`>`)
		}
		if meta.URL != "" {
			p.raw(`<link rel="canonical"`)
			p.attr("href", meta.URL)
			p.raw(`><meta property="og:url"`)
			p.attr("content", meta.URL)
			p.raw(`>`)
		}
		p.raw(`<meta property="og:title"`)
		p.attr("content", title)
		p.raw(`><meta property="og:type"`)
		p.attr("content", ogType)
		p.raw(`><meta property="og:site_name"`)
		p.attr("content", cfg.Name)
		p.raw(`>`)
		p.raw(`<link rel="alternate" type="application/rss+xml"`)
		p.attr("title", cfg.Name)
		p.raw(` href="/feed.xml">`)
		p.raw(`<link rel="stylesheet" href="/assets/herald.css">`)
		if meta.JSONLD != "" {
			// json.Marshal escapes <, > and & so the block cannot close the script tag.
			p.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
		p.raw(`</head><body><header class="site-header"><a class="site-title" href="/">`)
		p.text(cfg.Name)
		p.raw(`</a></header><main class="site-main">`)
		p.render(ctx, body)
		p.raw(`</main><footer class="site-footer"><p>`)
		p.text(cfg.Name)
		if cfg.Author != "" {
			p.text(" by " + cfg.Author)
		}
		p.raw(` &middot; <a href="/feed.xml">RSS</a></p></footer></body></html>`)
		return p.err
	})
}
