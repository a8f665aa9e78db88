package herald

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/herald/graphql"
)

var articleType = DefaultContentTypes()[0]

func TestFetchItemsSortsNewestFirstAndLinksNeighbours(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(false, "",
			node{ID: "B", URI: "/b/", Date: "2024-02-01T10:00:00"},
			node{ID: "A", URI: "/a/", Date: "2024-03-01T10:00:00"},
			node{ID: "C", URI: "/c/", Date: "2024-01-01T10:00:00"},
		),
	}}
	edges, err := NewSource(q, 10, nil).FetchItems(context.Background(), articleType)
	require.NoError(t, err)
	require.Len(t, edges, 3)

	assert.Equal(t, "A", edges[0].Item.ID)
	assert.Nil(t, edges[0].Previous)
	assert.Equal(t, "B", edges[0].Next.ID)

	assert.Equal(t, "B", edges[1].Item.ID)
	assert.Equal(t, "A", edges[1].Previous.ID)
	assert.Equal(t, "C", edges[1].Next.ID)

	assert.Equal(t, "C", edges[2].Item.ID)
	assert.Equal(t, "B", edges[2].Previous.ID)
	assert.Nil(t, edges[2].Next)

	for _, e := range edges {
		assert.Equal(t, TypeArticle, e.Item.Type)
	}
}

func TestFetchItemsFollowsPagination(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(true, "cursor-1", node{ID: "A", URI: "/a/", Date: "2024-03-01T10:00:00"}),
		listPage(true, "cursor-2", node{ID: "B", URI: "/b/", Date: "2024-02-01T10:00:00"}),
		listPage(false, "", node{ID: "C", URI: "/c/", Date: "2024-01-01T10:00:00"}),
	}}
	edges, err := NewSource(q, 1, nil).FetchItems(context.Background(), articleType)
	require.NoError(t, err)
	require.Len(t, edges, 3)

	require.Len(t, q.calls, 3)
	assert.Nil(t, q.calls[0]["after"])
	assert.Equal(t, "cursor-1", q.calls[1]["after"])
	assert.Equal(t, "cursor-2", q.calls[2]["after"])
	assert.Equal(t, 1, q.calls[0]["first"])
}

func TestFetchItemsEmptyIsNotAnError(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{listPage(false, "")}}
	edges, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestFetchItemsRejectsMissingConnection(t *testing.T) {
	cases := map[string]json.RawMessage{
		"null connection":   json.RawMessage(`{"items":null}`),
		"absent connection": json.RawMessage(`{}`),
		"null data":         json.RawMessage(`null`),
		"no data":           nil,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			q := &scriptedQuerier{responses: []scriptedResponse{{resp: &graphql.Response{Data: data}}}}
			edges, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
			assert.Nil(t, edges)
			require.ErrorIs(t, err, ErrMalformedContent)
			var sqe *SourceQueryError
			require.ErrorAs(t, err, &sqe)
			assert.Equal(t, TypeArticle, sqe.Type)
			assert.Contains(t, err.Error(), "posts connection missing")
		})
	}
}

func TestMissingPrimaryConnectionFailsBuild(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{{resp: &graphql.Response{Data: json.RawMessage(`{"items":null}`)}}}}
	reg := NewRegistry()
	report, err := NewBuilder(NewSource(q, 0, nil), WithBuildLogger(quietLogger())).Run(context.Background(), reg)
	require.ErrorIs(t, err, ErrMalformedContent)
	assert.False(t, report.Skipped)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, TypeArticle, report.FailedType)
	assert.Zero(t, reg.Len())
}

func TestFetchItemsReportsSourceErrors(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		{resp: &graphql.Response{Errors: []graphql.Error{{Message: "first"}, {Message: "second"}}}},
	}}
	edges, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
	assert.Nil(t, edges)

	var sqe *SourceQueryError
	require.ErrorAs(t, err, &sqe)
	assert.Equal(t, TypeArticle, sqe.Type)
	assert.Len(t, sqe.Errors, 2)
	assert.Contains(t, err.Error(), "article")
	assert.Contains(t, err.Error(), "first; second")
}

func TestFetchItemsErrorOnLaterPageDropsEarlierItems(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(true, "cursor-1", node{ID: "A", URI: "/a/", Date: "2024-03-01T10:00:00"}),
		{resp: &graphql.Response{Errors: []graphql.Error{{Message: "timeout"}}}},
	}}
	edges, err := NewSource(q, 1, nil).FetchItems(context.Background(), articleType)
	assert.Nil(t, edges)
	var sqe *SourceQueryError
	require.ErrorAs(t, err, &sqe)
}

func TestFetchItemsWrapsTransportErrors(t *testing.T) {
	boom := errors.New("connection refused")
	q := &scriptedQuerier{responses: []scriptedResponse{{err: boom}}}
	_, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)

	var sqe *SourceQueryError
	require.ErrorAs(t, err, &sqe)
	assert.ErrorIs(t, err, boom)
}

func TestFetchItemsRejectsMalformedDates(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(false, "", node{ID: "A", URI: "/a/", Date: "yesterday"}),
	}}
	_, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestFetchItemsAcceptsRFC3339Dates(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(false, "",
			node{ID: "A", URI: "/a/", Date: "2024-03-01T10:00:00Z"},
			node{ID: "B", URI: "/b/", Date: "2024-03-02T10:00:00+02:00"},
		),
	}}
	edges, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
	require.NoError(t, err)
	assert.Equal(t, "B", edges[0].Item.ID)
}

func TestFetchItemsRejectsStuckCursor(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(true, "same", node{ID: "A", URI: "/a/", Date: "2024-03-01T10:00:00"}),
		listPage(true, "same", node{ID: "B", URI: "/b/", Date: "2024-02-01T10:00:00"}),
	}}
	_, err := NewSource(q, 1, nil).FetchItems(context.Background(), articleType)
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestFetchItemsStableForEqualDates(t *testing.T) {
	q := &scriptedQuerier{responses: []scriptedResponse{
		listPage(false, "",
			node{ID: "first", URI: "/1/", Date: "2024-03-01T10:00:00"},
			node{ID: "second", URI: "/2/", Date: "2024-03-01T10:00:00"},
		),
	}}
	edges, err := NewSource(q, 0, nil).FetchItems(context.Background(), articleType)
	require.NoError(t, err)
	assert.Equal(t, "first", edges[0].Item.ID)
	assert.Equal(t, "second", edges[1].Item.ID)
}

func TestListQueryAliasesConnection(t *testing.T) {
	q := listQuery(ContentType{Name: TypeFeature, Connection: "heroes"})
	assert.Contains(t, q, "query HeraldList_heroes(")
	assert.Contains(t, q, "items: heroes(first: $first, after: $after")
	assert.Contains(t, q, "orderby: { field: DATE, order: DESC }")
}
