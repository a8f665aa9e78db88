package views

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"
)

// Post renders an article. prev is the newer neighbour, next the older one.
func Post(cfg SiteConfig, doc Document, prev, next *Link) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<article class="post">`)
		heading(p, doc)
		featured(p, doc.Image)
		p.raw(`<div class="post-content">`, doc.Content, `</div>`)
		neighbours(p, prev, next, "Newer", "Older")
		p.raw(`</article>`)
		return p.err
	})
	return Layout(cfg, documentMeta(cfg, doc, "article", "BlogPosting"), body)
}

// Hero renders a feature page with its image as a banner.
func Hero(cfg SiteConfig, doc Document, prev, next *Link) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<article class="hero">`)
		p.raw(`<section class="hero-banner">`)
		if doc.Image != nil {
			p.raw(`<img class="hero-image"`)
			p.attr("src", doc.Image.URL)
			p.attr("alt", doc.Image.Alt)
			p.raw(`>`)
		}
		p.raw(`<div class="hero-text"><h1>`)
		p.text(doc.Title)
		p.raw(`</h1>`)
		if doc.Excerpt != "" {
			p.raw(`<p class="hero-lede">`)
			p.text(doc.Excerpt)
			p.raw(`</p>`)
		}
		p.raw(`</div></section>`)
		p.raw(`<div class="post-content">`, doc.Content, `</div>`)
		neighbours(p, prev, next, "Previous feature", "Next feature")
		p.raw(`</article>`)
		return p.err
	})
	return Layout(cfg, documentMeta(cfg, doc, "article", "Article"), body)
}

// Page renders a standalone page. Pages have no neighbours.
func Page(cfg SiteConfig, doc Document) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<article class="page"><h1>`)
		p.text(doc.Title)
		p.raw(`</h1>`)
		featured(p, doc.Image)
		p.raw(`<div class="post-content">`, doc.Content, `</div></article>`)
		return p.err
	})
	return Layout(cfg, documentMeta(cfg, doc, "website", "WebPage"), body)
}

// Home lists articles newest first.
func Home(cfg SiteConfig, docs []Document) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="post-list">`)
		if len(docs) == 0 {
			p.raw(`<p class="empty">Nothing published yet.</p>`)
		}
		for _, d := range docs {
			p.raw(`<article class="post-summary"><h2><a`)
			p.attr("href", d.URI)
			p.raw(`>`)
			p.text(d.Title)
			p.raw(`</a></h2>`)
			dateline(p, d.Date)
			if d.Excerpt != "" {
				p.raw(`<p>`)
				p.text(d.Excerpt)
				p.raw(`</p>`)
			}
			p.raw(`</article>`)
		}
		p.raw(`</section>`)
		return p.err
	})
	meta := PageMeta{URL: buildURL(cfg.URL), JSONLD: WebsiteJsonLD(cfg)}
	return Layout(cfg, meta, body)
}

// NotFound is the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Not found"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="error"><h1>Page not found</h1><p>The page you are looking for does not exist. <a href="/">Back home</a></p></section>`)
		return p.err
	}))
}

// ServerError is the 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Error"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="error"><h1>Something went wrong</h1><p>Please try again later.</p></section>`)
		return p.err
	}))
}

func documentMeta(cfg SiteConfig, doc Document, ogType, ldType string) PageMeta {
	return PageMeta{
		Title:       doc.Title,
		Description: doc.Excerpt,
		URL:         DocumentURL(cfg, doc),
		OGType:      ogType,
		JSONLD:      DocumentJsonLD(cfg, doc, ldType),
	}
}

func heading(p *printer, doc Document) {
	p.raw(`<header class="post-header"><h1>`)
	p.text(doc.Title)
	p.raw(`</h1>`)
	dateline(p, doc.Date)
	p.raw(`</header>`)
}

func dateline(p *printer, t time.Time) {
	if t.IsZero() {
		return
	}
	p.raw(`<time`)
	p.attr("datetime", t.Format("2006-01-02"))
	p.raw(`>`)
	p.text(FormatDate(t))
	p.raw(`</time>`)
}

func featured(p *printer, img *Image) {
	if img == nil || img.URL == "" {
		return
	}
	p.raw(`<figure class="featured"><img`)
	p.attr("src", img.URL)
	p.attr("alt", img.Alt)
	p.raw(` loading="lazy"></figure>`)
}

func neighbours(p *printer, prev, next *Link, prevLabel, nextLabel string) {
	if prev == nil && next == nil {
		return
	}
	p.raw(`<nav class="post-nav">`)
	for _, n := range []struct {
		link  *Link
		label string
		rel   string
	}{{prev, prevLabel, "prev"}, {next, nextLabel, "next"}} {
		if n.link == nil {
			continue
		}
		p.raw(`<a`)
		p.attr("class", "post-nav-"+n.rel)
		p.attr("rel", n.rel)
		p.attr("href", n.link.URI)
		p.raw(`><span>`)
		p.text(n.label)
		p.raw(`</span> `)
		p.text(n.link.Title)
		p.raw(`</a>`)
	}
	p.raw(`</nav>`)
}
