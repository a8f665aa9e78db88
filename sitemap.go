package herald

import (
	"encoding/xml"
	"io"
	"time"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// writeSitemap lists the home page followed by every rendered page.
func writeSitemap(w io.Writer, base string, pages []renderedPage) error {
	urls := []sitemapURL{{Loc: BuildURL(base)}}
	for _, p := range pages {
		if p.Path == "/" {
			continue
		}
		u := sitemapURL{Loc: BuildURL(base, p.Path)}
		if !p.Doc.Date.IsZero() {
			u.LastMod = p.Doc.Date.Format(time.DateOnly)
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(sitemap)
}
