package herald

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// PageCreator registers pages with the site being built.
type PageCreator interface {
	CreatePage(ctx context.Context, p Page) error
}

// Registry is the page registry for one build, keyed by path. Registering
// an identical page twice is a no-op; registering a different page under a
// taken path is a *PathConflictError.
type Registry struct {
	mu    sync.Mutex
	pages map[string]Page
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]Page)}
}

// CreatePage implements PageCreator.
func (r *Registry) CreatePage(ctx context.Context, p Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Path == "" {
		return fmt.Errorf("%w: %s page %q has an empty path", ErrInvalidPath, p.Component, p.Context.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pages[p.Path]; ok {
		if existing == p {
			return nil
		}
		return &PathConflictError{Path: p.Path, Existing: existing, Incoming: p}
	}
	r.pages[p.Path] = p
	return nil
}

// Get returns the page registered at path.
func (r *Registry) Get(path string) (Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[path]
	return p, ok
}

// Len returns the number of registered pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Pages returns all registered pages sorted by path.
func (r *Registry) Pages() []Page {
	r.mu.Lock()
	pages := make([]Page, 0, len(r.pages))
	for _, p := range r.pages {
		pages = append(pages, p)
	}
	r.mu.Unlock()
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages
}
