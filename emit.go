package herald

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Emitter registers a plan's pages with a PageCreator.
type Emitter struct {
	creator     PageCreator
	concurrency int
}

// NewEmitter creates an Emitter. concurrency <= 0 means one goroutine per entry.
func NewEmitter(creator PageCreator, concurrency int) *Emitter {
	return &Emitter{creator: creator, concurrency: concurrency}
}

// Emit registers every entry concurrently and waits for all of them. Every
// failure is collected; the returned error joins them all.
func (e *Emitter) Emit(ctx context.Context, plan Plan) error {
	base := pool.New()
	if e.concurrency > 0 {
		base = base.WithMaxGoroutines(e.concurrency)
	}
	p := base.WithErrors().WithContext(ctx)
	for _, entry := range plan {
		p.Go(func(ctx context.Context) error {
			return e.creator.CreatePage(ctx, Page{
				Path:      entry.Path,
				Component: entry.Template,
				Context:   entry.Context,
			})
		})
	}
	return p.Wait()
}
