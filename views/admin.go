package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// AdminLogin renders the console login form.
func AdminLogin(cfg SiteConfig, showError bool, csrfToken string) templ.Component {
	return Layout(cfg, PageMeta{Title: "Console"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="admin admin-login"><h1>Console</h1>`)
		if showError {
			p.raw(`<p class="flash flash-error">Invalid password.</p>`)
		}
		p.raw(`<form method="post" action="/admin/login/">`)
		csrfField(p, csrfToken)
		p.raw(`<label>Password <input type="password" name="password" autofocus required></label>`)
		p.raw(`<button type="submit">Sign in</button></form></section>`)
		return p.err
	}))
}

// AdminDashboard lists recent builds and offers a manual rebuild.
func AdminDashboard(cfg SiteConfig, builds []BuildRow, message string, building bool, csrfToken string) templ.Component {
	return Layout(cfg, PageMeta{Title: "Console"}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="admin admin-dashboard"><header class="admin-bar"><h1>Builds</h1>`)
		p.raw(`<form method="post" action="/admin/rebuild/">`)
		csrfField(p, csrfToken)
		if building {
			p.raw(`<button type="submit" disabled>Building&hellip;</button>`)
		} else {
			p.raw(`<button type="submit">Rebuild now</button>`)
		}
		p.raw(`</form><form method="post" action="/admin/logout/">`)
		csrfField(p, csrfToken)
		p.raw(`<button type="submit" class="link">Sign out</button></form></header>`)
		if message != "" {
			p.raw(`<p class="flash">`)
			p.text(message)
			p.raw(`</p>`)
		}
		if len(builds) == 0 {
			p.raw(`<p class="empty">No builds yet.</p></section>`)
			return p.err
		}
		p.raw(`<table class="builds"><thead><tr><th>Started</th><th>State</th><th>Pages</th><th>Duration</th><th>Error</th></tr></thead><tbody>`)
		for _, b := range builds {
			p.raw(`<tr`)
			p.attr("class", "state-"+b.State)
			p.raw(`><td><a`)
			p.attr("href", "/admin/builds/"+b.ID+"/")
			p.raw(`>`)
			p.text(b.StartedAt.Format("2006-01-02 15:04:05"))
			p.raw(`</a></td><td>`)
			p.text(b.State)
			if b.Skipped {
				p.raw(` <small>(skipped)</small>`)
			}
			p.raw(`</td><td>`)
			p.text(fmt.Sprint(b.Pages))
			p.raw(`</td><td>`)
			p.text(b.Duration.String())
			p.raw(`</td><td>`)
			if b.FailedType != "" {
				p.text(b.FailedType + ": ")
			}
			p.text(b.Error)
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table></section>`)
		return p.err
	}))
}

// AdminBuild shows one build and the pages it generated, tagged against
// the build before it.
func AdminBuild(cfg SiteConfig, build BuildRow, pages []PageRow) templ.Component {
	return Layout(cfg, PageMeta{Title: "Build " + build.ID}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<section class="admin admin-build"><p><a href="/admin/">&larr; All builds</a></p><h1>Build <code>`)
		p.text(build.ID)
		p.raw(`</code></h1><dl><dt>State</dt><dd>`)
		p.text(build.State)
		p.raw(`</dd><dt>Started</dt><dd>`)
		p.text(build.StartedAt.Format("2006-01-02 15:04:05"))
		p.raw(`</dd><dt>Duration</dt><dd>`)
		p.text(build.Duration.String())
		p.raw(`</dd>`)
		if build.Error != "" {
			p.raw(`<dt>Error</dt><dd class="error">`)
			p.text(build.Error)
			p.raw(`</dd>`)
		}
		p.raw(`</dl><table class="pages"><thead><tr><th>Path</th><th>Template</th><th>ID</th><th>Previous</th><th>Next</th></tr></thead><tbody>`)
		for _, pg := range pages {
			p.raw(`<tr`)
			if pg.ChangeTag != "" {
				p.attr("class", "change-"+pg.ChangeTag)
			}
			p.raw(`><td>`)
			p.text(pg.Path)
			if pg.ChangeTag != "" {
				p.raw(` <small>`)
				p.text(pg.ChangeTag)
				p.raw(`</small>`)
			}
			p.raw(`</td><td>`)
			p.text(pg.Template)
			p.raw(`</td><td>`)
			p.text(pg.ID)
			p.raw(`</td><td>`)
			p.text(pg.Previous)
			p.raw(`</td><td>`)
			p.text(pg.Next)
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table></section>`)
		return p.err
	}))
}

func csrfField(p *printer, token string) {
	p.raw(`<input type="hidden" name="_csrf"`)
	p.attr("value", token)
	p.raw(`>`)
}
