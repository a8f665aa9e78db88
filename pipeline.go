package herald

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// BuildResult is the outcome of a full build.
type BuildResult struct {
	Report *Report
	Site   *WriteResult // nil when nothing was written
	Diff   *PageDiff    // nil without history or a previous build
}

// Pipeline runs complete builds: page generation, site writing and history.
// Only one build runs at a time.
type Pipeline struct {
	cfg      SiteConfig
	builder  *Builder
	site     *Site
	store    *Store
	cache    *BuildCache
	recorder Recorder
	logger   *slog.Logger

	mu         sync.Mutex
	running    atomic.Bool // a full build holds mu
	generating atomic.Bool // Build or Plan is inside the builder

	stateMu sync.Mutex
	last    State // final state of the last run, including the site write
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithHistory saves every build to s and invalidates c afterwards. c may be nil.
func WithHistory(s *Store, c *BuildCache) PipelineOption {
	return func(p *Pipeline) {
		p.store = s
		p.cache = c
	}
}

// WithPipelineRecorder sets the metrics recorder for builds and site writes.
func WithPipelineRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires a Source, Builder and Site over q.
func NewPipeline(cfg SiteConfig, q Querier, opts ...PipelineOption) *Pipeline {
	cfg.setDefaults()
	p := &Pipeline{
		cfg:      cfg,
		recorder: NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.builder = NewBuilder(NewSource(q, cfg.PageSize, p.logger),
		WithContentTypes(cfg.ContentTypes),
		WithBuildLogger(p.logger),
		WithRecorder(p.recorder),
		WithEmitConcurrency(cfg.Concurrency),
	)
	p.site = NewSite(cfg, q, WithSiteLogger(p.logger))
	return p
}

// Building reports whether a build is running.
func (p *Pipeline) Building() bool {
	return p.running.Load()
}

// State is the state of the running build, or the final state of the last
// one. A build whose pages were generated but whose site write failed is
// StateFailed.
func (p *Pipeline) State() State {
	if p.generating.Load() {
		return p.builder.State()
	}
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.last
}

func (p *Pipeline) setLast(s State) {
	p.stateMu.Lock()
	p.last = s
	p.stateMu.Unlock()
}

// generate runs the builder into reg and records its final state.
func (p *Pipeline) generate(ctx context.Context, reg *Registry) (*Report, error) {
	p.generating.Store(true)
	defer p.generating.Store(false)
	report, err := p.builder.Run(ctx, reg)
	p.setLast(report.State)
	return report, err
}

// Plan runs page generation into a fresh registry without writing anything.
func (p *Pipeline) Plan(ctx context.Context) (*Report, *Registry, error) {
	if !p.mu.TryLock() {
		return nil, nil, ErrBuildInProgress
	}
	defer p.mu.Unlock()
	reg := NewRegistry()
	report, err := p.generate(ctx, reg)
	return report, reg, err
}

// Build generates pages and writes the site. It returns ErrBuildInProgress
// if another build holds the pipeline. When the primary content type is
// empty the output directory is left as it is.
func (p *Pipeline) Build(ctx context.Context) (*BuildResult, error) {
	if !p.mu.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer p.mu.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	reg := NewRegistry()
	report, err := p.generate(ctx, reg)
	res := &BuildResult{Report: report}
	if err == nil && !report.Skipped {
		start := time.Now()
		res.Site, err = p.site.Write(ctx, reg.Pages())
		p.recorder.ObserveWriteDuration(time.Since(start))
		if err != nil {
			report.State = StateFailed
			report.Err = err
			report.FinishedAt = time.Now()
			p.setLast(StateFailed)
			p.logger.Error("site write failed", BuildID(report.ID), ErrorAttr(err))
		}
	}

	if herr := p.record(ctx, res); herr != nil {
		p.logger.Error("saving build history failed", BuildID(report.ID), ErrorAttr(herr))
		err = errors.Join(err, herr)
	}
	return res, err
}

func (p *Pipeline) record(ctx context.Context, res *BuildResult) error {
	if p.store == nil {
		return nil
	}
	if p.cache != nil {
		defer p.cache.Invalidate()
	}
	// history is written even when the build context was canceled
	ctx = context.WithoutCancel(ctx)
	rec := RecordFromReport(res.Report)
	if err := p.store.SaveBuild(ctx, rec, res.Report.Plan); err != nil {
		return err
	}
	prev, err := p.store.PreviousBuild(ctx, rec.ID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("herald: load previous build: %w", err)
	}
	diff, err := p.store.DiffPages(ctx, prev.ID, rec.ID)
	if err != nil {
		return err
	}
	res.Diff = &diff
	if !diff.Empty() {
		p.logger.Info("pages changed since previous build", BuildID(rec.ID),
			slog.Int("added", len(diff.Added)), slog.Int("removed", len(diff.Removed)), slog.Int("changed", len(diff.Changed)))
	}
	return nil
}
