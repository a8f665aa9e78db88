package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSite = SiteConfig{Name: "Herald", URL: "https://example.com", Author: "Ada"}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestPostRendersNeighbours(t *testing.T) {
	doc := Document{ID: "B", URI: "/b/", Title: "Bee <b>", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Content: "<p>body</p>"}
	out := render(t, Post(testSite, doc, &Link{Title: "Ay", URI: "/a/"}, &Link{Title: "Cee", URI: "/c/"}))

	assert.Contains(t, out, "<title>Bee &lt;b&gt; | Herald</title>")
	assert.Contains(t, out, "<p>body</p>")
	assert.Contains(t, out, `rel="prev" href="/a/"`)
	assert.Contains(t, out, `rel="next" href="/c/"`)
	assert.Contains(t, out, `<link rel="canonical" href="https://example.com/b/">`)
	assert.Contains(t, out, `"@type":"BlogPosting"`)
	assert.Contains(t, out, "February 1, 2024")
}

func TestPostWithoutNeighboursHasNoNav(t *testing.T) {
	out := render(t, Post(testSite, Document{URI: "/only/", Title: "Only"}, nil, nil))
	assert.NotContains(t, out, "post-nav")
}

func TestHeroShowsBanner(t *testing.T) {
	doc := Document{URI: "/hero/x/", Title: "X", Excerpt: "lede", Image: &Image{URL: "https://cdn.example.com/x.jpg", Alt: "an x"}}
	out := render(t, Hero(testSite, doc, nil, &Link{Title: "Y", URI: "/hero/y/"}))
	assert.Contains(t, out, `src="https://cdn.example.com/x.jpg"`)
	assert.Contains(t, out, `<p class="hero-lede">lede</p>`)
	assert.Contains(t, out, "Next feature")
	assert.NotContains(t, out, "Previous feature")
}

func TestHomeListsDocuments(t *testing.T) {
	out := render(t, Home(testSite, []Document{{URI: "/a/", Title: "A"}, {URI: "/b/", Title: "B"}}))
	assert.Contains(t, out, `<a href="/a/">A</a>`)
	assert.Contains(t, out, `"@type":"WebSite"`)
	assert.Less(t, strings.Index(out, `href="/a/"`), strings.Index(out, `href="/b/"`))
}

func TestJsonLDEscapesScriptClose(t *testing.T) {
	ld := DocumentJsonLD(testSite, Document{URI: "/x/", Title: "</script><script>alert(1)"}, "BlogPosting")
	assert.NotContains(t, ld, "</script>")
}

func TestAdminDashboardEscapesErrors(t *testing.T) {
	rows := []BuildRow{{ID: "b1", State: "failed", Error: "<boom>", StartedAt: time.Now()}}
	out := render(t, AdminDashboard(testSite, rows, "", true, "tok"))
	assert.Contains(t, out, "&lt;boom&gt;")
	assert.Contains(t, out, `value="tok"`)
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, `href="/admin/builds/b1/"`)
}
