package herald

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/eringen/herald/graphql"
)

// Querier is the read-only capability the pipeline needs from the content source.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]any) (*graphql.Response, error)
}

// DefaultPageSize is the number of items requested per GraphQL page.
const DefaultPageSize = 100

// wpDateLayout is the format WPGraphQL uses for the "date" field (site local time).
const wpDateLayout = "2006-01-02T15:04:05"

// Source lists content items of a type from a WPGraphQL endpoint.
type Source struct {
	q        Querier
	pageSize int
	logger   *slog.Logger
}

// NewSource creates a Source over q. pageSize <= 0 uses DefaultPageSize.
func NewSource(q Querier, pageSize int, logger *slog.Logger) *Source {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{q: q, pageSize: pageSize, logger: logger}
}

type listResult struct {
	// nil when the connection is missing from the response
	Items *struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []struct {
			ID   string `json:"id"`
			URI  string `json:"uri"`
			Date string `json:"date"`
		} `json:"nodes"`
	} `json:"items"`
}

// listQuery aliases the connection to "items" so every type decodes the same way.
func listQuery(ct ContentType) string {
	return fmt.Sprintf(`query HeraldList_%s($first: Int!, $after: String) {
  items: %s(first: $first, after: $after, where: { orderby: { field: DATE, order: DESC } }) {
    pageInfo { hasNextPage endCursor }
    nodes { id uri date }
  }
}`, ct.Connection, ct.Connection)
}

// FetchItems returns every item of ct ordered by publication date, newest
// first, each wrapped with its neighbours. An empty result is not an error.
// Any failure yields a *SourceQueryError and no items.
func (s *Source) FetchItems(ctx context.Context, ct ContentType) ([]OrderedEdge, error) {
	query := listQuery(ct)
	var items []ContentItem
	var after any
	seen := make(map[string]struct{})

	for {
		resp, err := s.q.Query(ctx, query, map[string]any{"first": s.pageSize, "after": after})
		if err != nil {
			return nil, &SourceQueryError{Type: ct.Name, Err: err}
		}
		if len(resp.Errors) > 0 {
			return nil, &SourceQueryError{Type: ct.Name, Errors: resp.Errors}
		}

		var page listResult
		if len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return nil, &SourceQueryError{Type: ct.Name, Err: fmt.Errorf("%w: decode %s list: %v", ErrMalformedContent, ct.Connection, err)}
			}
		}
		if page.Items == nil {
			return nil, &SourceQueryError{Type: ct.Name, Err: fmt.Errorf("%w: %s connection missing", ErrMalformedContent, ct.Connection)}
		}
		for _, n := range page.Items.Nodes {
			date, err := parseWPDate(n.Date)
			if err != nil {
				return nil, &SourceQueryError{Type: ct.Name, Err: fmt.Errorf("%w: item %s: %v", ErrMalformedContent, n.ID, err)}
			}
			items = append(items, ContentItem{ID: n.ID, URI: n.URI, Date: date, Type: ct.Name})
		}

		info := page.Items.PageInfo
		if !info.HasNextPage {
			break
		}
		if _, dup := seen[info.EndCursor]; dup || info.EndCursor == "" {
			return nil, &SourceQueryError{Type: ct.Name, Err: fmt.Errorf("%w: pagination cursor %q does not advance", ErrMalformedContent, info.EndCursor)}
		}
		seen[info.EndCursor] = struct{}{}
		after = info.EndCursor
	}

	s.logger.Debug("fetched content", ContentTypeAttr(ct.Name), Count(len(items)))
	return orderEdges(items), nil
}

// orderEdges sorts items newest first (ties keep source order) and links neighbours.
func orderEdges(items []ContentItem) []OrderedEdge {
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	edges := make([]OrderedEdge, len(items))
	for i := range items {
		edges[i].Item = items[i]
		if i > 0 {
			prev := items[i-1]
			edges[i].Previous = &prev
		}
		if i < len(items)-1 {
			next := items[i+1]
			edges[i].Next = &next
		}
	}
	return edges
}

func parseWPDate(s string) (time.Time, error) {
	if t, err := time.Parse(wpDateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
