package herald

import (
	"encoding/json"
	"time"
)

// Content type names.
const (
	TypeArticle = "article"
	TypeFeature = "feature"
	TypePage    = "page"
)

// Template identifiers for the built-in templates.
const (
	TemplatePost = "post"
	TemplateHero = "hero"
	TemplatePage = "page"
)

// ContentType describes one kind of WordPress content that becomes pages.
type ContentType struct {
	Name       string `mapstructure:"name"`       // article, feature, page
	Connection string `mapstructure:"connection"` // WPGraphQL root connection, e.g. "posts"
	Template   string `mapstructure:"template"`   // template identifier used to render the pages
	Primary    bool   `mapstructure:"primary"`    // no primary content means nothing to build
}

// DefaultContentTypes returns the article, feature and page pipelines in build order.
func DefaultContentTypes() []ContentType {
	return []ContentType{
		{Name: TypeArticle, Connection: "posts", Template: TemplatePost, Primary: true},
		{Name: TypeFeature, Connection: "heroes", Template: TemplateHero},
		{Name: TypePage, Connection: "pages", Template: TemplatePage},
	}
}

// ContentItem is one addressable unit of content as listed by the content source.
type ContentItem struct {
	ID   string
	URI  string
	Date time.Time
	Type string
}

// OrderedEdge is an item together with its neighbours in the date-descending
// order of its type. Previous is nil for the first item, Next for the last.
type OrderedEdge struct {
	Previous *ContentItem
	Item     ContentItem
	Next     *ContentItem
}

// PageContext is handed to the template renderer. Empty neighbour ids mean
// "no neighbour" and are serialized as null.
type PageContext struct {
	ID             string
	PreviousPostID string
	NextPostID     string
}

// Vars returns the context as GraphQL query variables.
func (c PageContext) Vars() map[string]any {
	return map[string]any{
		"id":             c.ID,
		"previousPostId": nullable(c.PreviousPostID),
		"nextPostId":     nullable(c.NextPostID),
	}
}

// MarshalJSON encodes absent neighbours as null.
func (c PageContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Vars())
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (c *PageContext) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID             string  `json:"id"`
		PreviousPostID *string `json:"previousPostId"`
		NextPostID     *string `json:"nextPostId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = PageContext{ID: raw.ID}
	if raw.PreviousPostID != nil {
		c.PreviousPostID = *raw.PreviousPostID
	}
	if raw.NextPostID != nil {
		c.NextPostID = *raw.NextPostID
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// PlanEntry is one page to create: where it lives, how to render it, and
// which content it shows.
type PlanEntry struct {
	Path     string      `json:"path"`
	Template string      `json:"template"`
	Context  PageContext `json:"context"`
}

// Plan is the ordered list of pages for one content type.
type Plan []PlanEntry

// Paths returns the plan's paths in order.
func (p Plan) Paths() []string {
	paths := make([]string, len(p))
	for i, e := range p {
		paths[i] = e.Path
	}
	return paths
}

// Page is what gets registered with the page registry. Component is an
// opaque template reference resolved when the site is written.
type Page struct {
	Path      string      `json:"path"`
	Component string      `json:"component"`
	Context   PageContext `json:"context"`
}
