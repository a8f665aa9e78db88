package herald

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a-h/templ"

	"github.com/eringen/herald/views"
)

// excerptLength caps plain-text excerpts used in meta tags and feeds.
const excerptLength = 280

// TemplateData is what a template query resolves to.
type TemplateData struct {
	Node     views.Document
	Previous *views.Link
	Next     *views.Link
}

// Template turns a page context into HTML: Query is run with the context
// as variables and Render draws the result.
type Template struct {
	ID     string
	Query  string
	Render func(cfg views.SiteConfig, d TemplateData) templ.Component
}

// TemplateSet maps template identifiers to templates.
type TemplateSet map[string]Template

// DefaultTemplates returns the post, hero and page templates.
func DefaultTemplates() TemplateSet {
	return TemplateSet{
		TemplatePost: {
			ID:    TemplatePost,
			Query: neighbourQuery("HeraldPost"),
			Render: func(cfg views.SiteConfig, d TemplateData) templ.Component {
				return views.Post(cfg, d.Node, d.Previous, d.Next)
			},
		},
		TemplateHero: {
			ID:    TemplateHero,
			Query: neighbourQuery("HeraldHero"),
			Render: func(cfg views.SiteConfig, d TemplateData) templ.Component {
				return views.Hero(cfg, d.Node, d.Previous, d.Next)
			},
		},
		TemplatePage: {
			ID: TemplatePage,
			Query: `query HeraldPage($id: ID!) {
  node: contentNode(id: $id, idType: ID) { ...HeraldDocument }
}
` + documentFragment,
			Render: func(cfg views.SiteConfig, d TemplateData) templ.Component {
				return views.Page(cfg, d.Node)
			},
		},
	}
}

// Lookup returns the template registered under id.
func (s TemplateSet) Lookup(id string) (Template, error) {
	t, ok := s[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return t, nil
}

const documentFragment = `fragment HeraldDocument on ContentNode {
  id
  uri
  date
  contentTypeName
  ... on NodeWithTitle { title }
  ... on NodeWithContentEditor { content }
  ... on NodeWithExcerpt { excerpt }
  ... on NodeWithFeaturedImage { featuredImage { node { sourceUrl altText } } }
}`

// neighbourQuery fetches the node plus the title and uri of its neighbours.
// Absent neighbours are skipped with @include so null ids never reach contentNode.
func neighbourQuery(name string) string {
	return fmt.Sprintf(`query %s($id: ID!, $previousPostId: ID = "", $nextPostId: ID = "", $hasPrevious: Boolean!, $hasNext: Boolean!) {
  node: contentNode(id: $id, idType: ID) { ...HeraldDocument }
  previous: contentNode(id: $previousPostId, idType: ID) @include(if: $hasPrevious) { ...HeraldLink }
  next: contentNode(id: $nextPostId, idType: ID) @include(if: $hasNext) { ...HeraldLink }
}
fragment HeraldLink on ContentNode {
  uri
  ... on NodeWithTitle { title }
}
%s`, name, documentFragment)
}

type wpDocument struct {
	ID              string `json:"id"`
	URI             string `json:"uri"`
	Date            string `json:"date"`
	ContentTypeName string `json:"contentTypeName"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Excerpt         string `json:"excerpt"`
	FeaturedImage   *struct {
		Node struct {
			SourceURL string `json:"sourceUrl"`
			AltText   string `json:"altText"`
		} `json:"node"`
	} `json:"featuredImage"`
}

type wpLink struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type templateResult struct {
	Node     *wpDocument `json:"node"`
	Previous *wpLink     `json:"previous"`
	Next     *wpLink     `json:"next"`
}

// Fetch runs the template query for pc.
func (t Template) Fetch(ctx context.Context, q Querier, pc PageContext) (TemplateData, error) {
	vars := pc.Vars()
	vars["hasPrevious"] = pc.PreviousPostID != ""
	vars["hasNext"] = pc.NextPostID != ""

	resp, err := q.Query(ctx, t.Query, vars)
	if err != nil {
		return TemplateData{}, &SourceQueryError{Template: t.ID, Err: err}
	}
	if len(resp.Errors) > 0 {
		return TemplateData{}, &SourceQueryError{Template: t.ID, Errors: resp.Errors}
	}
	var res templateResult
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		return TemplateData{}, fmt.Errorf("%w: decode %s: %v", ErrMalformedContent, pc.ID, err)
	}
	if res.Node == nil {
		return TemplateData{}, fmt.Errorf("%w: content %s not found", ErrMalformedContent, pc.ID)
	}

	n := res.Node
	doc := views.Document{
		ID:      n.ID,
		URI:     n.URI,
		Type:    n.ContentTypeName,
		Title:   n.Title,
		Content: n.Content,
		Excerpt: Summarize(PlainText(n.Excerpt), excerptLength),
	}
	if n.Date != "" {
		date, err := parseWPDate(n.Date)
		if err != nil {
			return TemplateData{}, fmt.Errorf("%w: content %s: %v", ErrMalformedContent, pc.ID, err)
		}
		doc.Date = date
	}
	if n.FeaturedImage != nil && n.FeaturedImage.Node.SourceURL != "" {
		doc.Image = &views.Image{URL: n.FeaturedImage.Node.SourceURL, Alt: n.FeaturedImage.Node.AltText}
	}

	d := TemplateData{Node: doc}
	if res.Previous != nil {
		d.Previous = &views.Link{URI: res.Previous.URI, Title: res.Previous.Title}
	}
	if res.Next != nil {
		d.Next = &views.Link{URI: res.Next.URI, Title: res.Next.Title}
	}
	return d, nil
}
