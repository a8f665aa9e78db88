package herald

import (
	"encoding/xml"
	"io"
	"time"
)

// feedSize caps the number of items in feed.xml.
const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate,omitempty"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// writeFeed writes an RSS 2.0 feed of pages, which must already be newest first.
func writeFeed(w io.Writer, cfg SiteConfig, pages []renderedPage) error {
	if len(pages) > feedSize {
		pages = pages[:feedSize]
	}
	items := make([]rssItem, 0, len(pages))
	for _, p := range pages {
		link := BuildURL(cfg.URL, p.Path)
		item := rssItem{
			Title:       p.Doc.Title,
			Link:        link,
			Description: p.Doc.Excerpt,
			// WordPress ids are stable across slug changes
			GUID: rssGUID{Value: p.Doc.ID, IsPermaLink: false},
		}
		if item.GUID.Value == "" {
			item.GUID = rssGUID{Value: link, IsPermaLink: true}
		}
		if !p.Doc.Date.IsZero() {
			item.PubDate = p.Doc.Date.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        BuildURL(cfg.URL),
			Description: cfg.Description,
			Items:       items,
		},
	}
	if len(pages) > 0 && !pages[0].Doc.Date.IsZero() {
		feed.Channel.LastBuildDate = pages[0].Doc.Date.Format(time.RFC1123Z)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(feed)
}
