package herald

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/eringen/herald/graphql"
)

// scriptedQuerier answers queries in order with canned responses.
type scriptedQuerier struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     []map[string]any
}

type scriptedResponse struct {
	resp *graphql.Response
	err  error
}

func (q *scriptedQuerier) Query(ctx context.Context, query string, vars map[string]any) (*graphql.Response, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, vars)
	if len(q.responses) == 0 {
		return nil, fmt.Errorf("unexpected query #%d", len(q.calls))
	}
	r := q.responses[0]
	q.responses = q.responses[1:]
	return r.resp, r.err
}

type node struct {
	ID   string `json:"id"`
	URI  string `json:"uri"`
	Date string `json:"date"`
}

func listPage(hasNext bool, cursor string, nodes ...node) scriptedResponse {
	data := map[string]any{
		"items": map[string]any{
			"pageInfo": map[string]any{"hasNextPage": hasNext, "endCursor": cursor},
			"nodes":    nodes,
		},
	}
	b, _ := json.Marshal(data)
	return scriptedResponse{resp: &graphql.Response{Data: b}}
}

// fakeFetcher serves edges per content type and records fetch order.
type fakeFetcher struct {
	mu     sync.Mutex
	edges  map[string][]OrderedEdge
	errs   map[string]error
	called []string
}

func (f *fakeFetcher) FetchItems(ctx context.Context, ct ContentType) ([]OrderedEdge, error) {
	f.mu.Lock()
	f.called = append(f.called, ct.Name)
	f.mu.Unlock()
	if err := f.errs[ct.Name]; err != nil {
		return nil, err
	}
	return f.edges[ct.Name], nil
}

// contentQuerier answers list queries from per-connection items and
// template queries from per-id documents.
type contentQuerier struct {
	lists map[string][]node
	docs  map[string]map[string]any
}

func (q *contentQuerier) Query(ctx context.Context, query string, vars map[string]any) (*graphql.Response, error) {
	if strings.HasPrefix(query, "query HeraldList_") {
		name := strings.TrimPrefix(query, "query HeraldList_")
		name = name[:strings.Index(name, "(")]
		return listPage(false, "", q.lists[name]...).resp, nil
	}
	data := map[string]any{}
	if id, _ := vars["id"].(string); id != "" {
		data["node"] = q.docs[id]
	}
	if id, _ := vars["previousPostId"].(string); id != "" {
		data["previous"] = q.docs[id]
	}
	if id, _ := vars["nextPostId"].(string); id != "" {
		data["next"] = q.docs[id]
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &graphql.Response{Data: b}, nil
}
