package herald

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the orchestrator's position in a build.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePlanning
	StateEmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePlanning:
		return "planning"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) State {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == s {
			return st
		}
	}
	return StateFailed
}

// Fetcher lists the ordered items of a content type.
type Fetcher interface {
	FetchItems(ctx context.Context, ct ContentType) ([]OrderedEdge, error)
}

// TypeReport summarises one content type within a build.
type TypeReport struct {
	Type     string
	Items    int
	Pages    int
	Duration time.Duration
}

// Report describes one run of the page generation step.
type Report struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	State      State
	Skipped    bool // primary content type was empty
	FailedType string
	Types      []TypeReport
	Plan       Plan // entries of every fully emitted type, in build order
	Err        error
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Builder drives fetch, plan and emit for each content type in sequence.
type Builder struct {
	fetcher     Fetcher
	types       []ContentType
	logger      *slog.Logger
	recorder    Recorder
	concurrency int

	mu    sync.Mutex
	state State
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithContentTypes replaces DefaultContentTypes.
func WithContentTypes(types []ContentType) BuilderOption {
	return func(b *Builder) { b.types = types }
}

// WithBuildLogger sets the builder's logger.
func WithBuildLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) BuilderOption {
	return func(b *Builder) { b.recorder = r }
}

// WithEmitConcurrency bounds concurrent registrations per type.
func WithEmitConcurrency(n int) BuilderOption {
	return func(b *Builder) { b.concurrency = n }
}

// NewBuilder creates a Builder reading from fetcher.
func NewBuilder(fetcher Fetcher, opts ...BuilderOption) *Builder {
	b := &Builder{
		fetcher:  fetcher,
		types:    DefaultContentTypes(),
		logger:   slog.Default(),
		recorder: NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the state of the current or last run.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) transition(log *slog.Logger, s State, attrs ...any) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	log.Debug("build state", append([]any{StateAttr(s)}, attrs...)...)
}

// orderedTypes puts primary types first and otherwise keeps configured order.
func (b *Builder) orderedTypes() []ContentType {
	types := append([]ContentType(nil), b.types...)
	sort.SliceStable(types, func(i, j int) bool { return types[i].Primary && !types[j].Primary })
	return types
}

// Run fetches, plans and registers the pages of every content type into reg.
// Types are processed one after another; a type is fully registered before
// the next one is fetched. An empty primary type ends the run successfully
// without registering anything. The first failing type stops the run; pages
// of types completed before it stay registered.
func (b *Builder) Run(ctx context.Context, reg PageCreator) (*Report, error) {
	report := &Report{ID: uuid.NewString(), StartedAt: time.Now()}
	log := b.logger.With(BuildID(report.ID))
	b.transition(log, StateIdle)
	log.Info("page generation started", Count(len(b.types)))

	finish := func(s State, err error) (*Report, error) {
		report.FinishedAt = time.Now()
		report.State = s
		report.Err = err
		b.transition(log, s)
		b.recorder.ObserveBuildDuration(report.Duration())
		b.recorder.IncBuildOutcome(s.String())
		if err != nil {
			log.Error("page generation failed", ContentTypeAttr(report.FailedType), ErrorAttr(err), Duration(report.Duration()))
			return report, err
		}
		log.Info("page generation finished", Count(len(report.Plan)), Duration(report.Duration()))
		return report, nil
	}

	for _, ct := range b.orderedTypes() {
		start := time.Now()
		b.transition(log, StateFetching, ContentTypeAttr(ct.Name))
		edges, err := b.fetcher.FetchItems(ctx, ct)
		b.recorder.ObserveFetchDuration(ct.Name, time.Since(start))
		if err != nil {
			report.FailedType = ct.Name
			var sqe *SourceQueryError
			if !errors.As(err, &sqe) {
				err = &SourceQueryError{Type: ct.Name, Err: err}
			}
			return finish(StateFailed, err)
		}
		if len(edges) == 0 {
			if ct.Primary {
				log.Info("no primary content, nothing to build", ContentTypeAttr(ct.Name))
				report.Skipped = true
				report.Plan = nil
				return finish(StateDone, nil)
			}
			log.Info("no content of type", ContentTypeAttr(ct.Name))
			report.Types = append(report.Types, TypeReport{Type: ct.Name, Duration: time.Since(start)})
			continue
		}

		b.transition(log, StatePlanning, ContentTypeAttr(ct.Name), Count(len(edges)))
		plan := BuildPlan(edges, ct.Template)

		b.transition(log, StateEmitting, ContentTypeAttr(ct.Name), Count(len(plan)))
		if err := NewEmitter(reg, b.concurrency).Emit(ctx, plan); err != nil {
			report.FailedType = ct.Name
			if n := len(PathConflicts(err)); n > 0 {
				b.recorder.AddPathConflicts(n)
			}
			return finish(StateFailed, fmt.Errorf("herald: emitting %s pages: %w", ct.Name, err))
		}
		b.recorder.AddPagesEmitted(ct.Name, len(plan))
		report.Plan = append(report.Plan, plan...)
		report.Types = append(report.Types, TypeReport{
			Type:     ct.Name,
			Items:    len(edges),
			Pages:    len(plan),
			Duration: time.Since(start),
		})
		log.Info("content type emitted", ContentTypeAttr(ct.Name), Count(len(plan)))
	}
	return finish(StateDone, nil)
}

// PathConflicts extracts every *PathConflictError from a (possibly joined) error.
func PathConflicts(err error) []*PathConflictError {
	var out []*PathConflictError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *PathConflictError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}
