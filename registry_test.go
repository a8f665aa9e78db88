package herald

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryIdempotentForIdenticalPage(t *testing.T) {
	r := NewRegistry()
	p := Page{Path: "/a/", Component: TemplatePost, Context: PageContext{ID: "A", NextPostID: "B"}}
	require.NoError(t, r.CreatePage(context.Background(), p))
	require.NoError(t, r.CreatePage(context.Background(), p))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsConflictingPage(t *testing.T) {
	r := NewRegistry()
	first := Page{Path: "/about/", Component: TemplatePage, Context: PageContext{ID: "P1"}}
	second := Page{Path: "/about/", Component: TemplatePost, Context: PageContext{ID: "A1"}}
	require.NoError(t, r.CreatePage(context.Background(), first))

	err := r.CreatePage(context.Background(), second)
	require.ErrorIs(t, err, ErrPathConflict)
	var pce *PathConflictError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, "/about/", pce.Path)
	assert.Equal(t, first, pce.Existing)
	assert.Equal(t, second, pce.Incoming)

	got, ok := r.Get("/about/")
	require.True(t, ok)
	assert.Equal(t, first, got, "first registration must survive")
}

func TestRegistryRejectsSamePathDifferentNeighbours(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreatePage(context.Background(), Page{Path: "/a/", Component: TemplatePost, Context: PageContext{ID: "A"}}))
	err := r.CreatePage(context.Background(), Page{Path: "/a/", Component: TemplatePost, Context: PageContext{ID: "A", NextPostID: "B"}})
	assert.ErrorIs(t, err, ErrPathConflict)
}

func TestRegistryRejectsEmptyPath(t *testing.T) {
	r := NewRegistry()
	err := r.CreatePage(context.Background(), Page{Component: TemplatePost, Context: PageContext{ID: "A"}})
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Zero(t, r.Len())
}

func TestRegistryHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRegistry().CreatePage(ctx, Page{Path: "/a/"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRegistryPagesSortedByPath(t *testing.T) {
	r := NewRegistry()
	for _, p := range []string{"/c/", "/a/", "/b/"} {
		require.NoError(t, r.CreatePage(context.Background(), Page{Path: p, Component: TemplatePage, Context: PageContext{ID: p}}))
	}
	pages := r.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, "/a/", pages[0].Path)
	assert.Equal(t, "/b/", pages[1].Path)
	assert.Equal(t, "/c/", pages[2].Path)
}

func TestEmitRegistersEveryEntry(t *testing.T) {
	r := NewRegistry()
	var plan Plan
	for i := 0; i < 50; i++ {
		plan = append(plan, PlanEntry{Path: fmt.Sprintf("/p/%d/", i), Template: TemplatePost, Context: PageContext{ID: fmt.Sprint(i)}})
	}
	require.NoError(t, NewEmitter(r, 4).Emit(context.Background(), plan))
	assert.Equal(t, 50, r.Len())

	got, ok := r.Get("/p/7/")
	require.True(t, ok)
	assert.Equal(t, TemplatePost, got.Component)
	assert.Equal(t, "7", got.Context.ID)
}

func TestEmitCollectsEveryConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.CreatePage(context.Background(), Page{Path: "/x/", Component: TemplatePage, Context: PageContext{ID: "X"}}))
	require.NoError(t, r.CreatePage(context.Background(), Page{Path: "/y/", Component: TemplatePage, Context: PageContext{ID: "Y"}}))

	plan := Plan{
		{Path: "/x/", Template: TemplatePost, Context: PageContext{ID: "1"}},
		{Path: "/ok/", Template: TemplatePost, Context: PageContext{ID: "2"}},
		{Path: "/y/", Template: TemplatePost, Context: PageContext{ID: "3"}},
	}
	err := NewEmitter(r, 0).Emit(context.Background(), plan)
	require.Error(t, err)
	conflicts := PathConflicts(err)
	require.Len(t, conflicts, 2)

	paths := []string{conflicts[0].Path, conflicts[1].Path}
	assert.ElementsMatch(t, []string{"/x/", "/y/"}, paths)
	_, ok := r.Get("/ok/")
	assert.True(t, ok, "non-conflicting entries are still registered")
}

func TestEmitDetectsDuplicatePathWithinPlan(t *testing.T) {
	r := NewRegistry()
	plan := Plan{
		{Path: "/dup/", Template: TemplatePost, Context: PageContext{ID: "1"}},
		{Path: "/dup/", Template: TemplatePost, Context: PageContext{ID: "2"}},
	}
	err := NewEmitter(r, 0).Emit(context.Background(), plan)
	assert.ErrorIs(t, err, ErrPathConflict)
	assert.Len(t, PathConflicts(err), 1)
}
