// Package herald builds a static site from WordPress content read over
// GraphQL. It lists articles, features and pages, links each article to
// its chronological neighbours, registers one page per item and renders
// the pages with templ components.
//
// The App type serves the generated site together with a small console for
// build history, a rebuild webhook, scheduled rebuilds and Prometheus metrics.
package herald

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/herald/views"
)

// keepBuilds is how many builds the history retains.
const keepBuilds = 200

// ViewFuncs holds the templ components the server renders. DefaultViews
// fills it from the views package; callers may swap any of them.
type ViewFuncs struct {
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(builds []views.BuildRow, message string, building bool, csrfToken string) templ.Component
	AdminBuild     func(build views.BuildRow, pages []views.PageRow) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// DefaultViews returns the built-in console and error pages.
func DefaultViews(cfg SiteConfig) ViewFuncs {
	vc := cfg.viewConfig()
	return ViewFuncs{
		AdminLogin: func(showError bool, csrfToken string) templ.Component {
			return views.AdminLogin(vc, showError, csrfToken)
		},
		AdminDashboard: func(builds []views.BuildRow, message string, building bool, csrfToken string) templ.Component {
			return views.AdminDashboard(vc, builds, message, building, csrfToken)
		},
		AdminBuild: func(build views.BuildRow, pages []views.PageRow) templ.Component {
			return views.AdminBuild(vc, build, pages)
		},
		NotFound:    func() templ.Component { return views.NotFound(vc) },
		ServerError: func() templ.Component { return views.ServerError(vc) },
	}
}

// App is the herald server. It wires together the pipeline, build history,
// middleware, handlers and scheduler.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *BuildCache
	Pipeline *Pipeline
	Views    ViewFuncs
	Logger   *slog.Logger
	Metrics  *prom.Registry

	querier      Querier
	loginLimiter *AttemptLimiter
	hookLimiter  *AttemptLimiter
	scheduler    gocron.Scheduler
	customRoutes []func(*App)

	ctx        context.Context
	cancel     context.CancelFunc
	rebuilding atomic.Bool
	builds     sync.WaitGroup
	setupOnce  sync.Once
	setupErr   error
}

// New creates an App that reads content through q.
func New(cfg SiteConfig, q Querier, opts ...Option) *App {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Views:   DefaultViews(cfg),
		Logger:  slog.Default(),
		querier: q,
		ctx:     ctx,
		cancel:  cancel,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithLogger sets the App's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// Setup opens the history store and registers middleware and routes.
// Start calls it; tests call it directly to drive the Echo instance.
func (a *App) Setup() error {
	a.setupOnce.Do(func() { a.setupErr = a.setup() })
	return a.setupErr
}

func (a *App) setup() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if a.Config.AdminPassword != "" && a.Config.SessionSecret == "" {
		return fmt.Errorf("herald: SessionSecret is required when AdminPassword is set")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("herald: init store: %w", err)
		}
		a.Store = store
	}
	a.Cache = NewBuildCache(a.Store, a.Config.HistoryCacheTTL)

	a.Metrics = prom.NewRegistry()
	a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := NewPrometheusRecorder(a.Metrics)

	a.Pipeline = NewPipeline(a.Config, a.querier,
		WithHistory(a.Store, a.Cache),
		WithPipelineRecorder(recorder),
		WithPipelineLogger(a.Logger),
	)

	a.loginLimiter = NewAttemptLimiter(5, time.Minute)
	a.hookLimiter = NewAttemptLimiter(10, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets up the App, starts the rebuild schedule and serves until ctx
// is canceled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.startScheduler(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", slog.String("addr", a.Config.Addr), slog.String("output_dir", a.Config.OutputDir))
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

// Rebuild starts a build in the background. It returns ErrBuildInProgress
// if a build is already running.
func (a *App) Rebuild(reason string) error {
	if !a.rebuilding.CompareAndSwap(false, true) {
		return ErrBuildInProgress
	}
	a.builds.Add(1)
	go func() {
		defer a.builds.Done()
		defer a.rebuilding.Store(false)
		a.runBuild(a.ctx, reason)
	}()
	return nil
}

// Building reports whether a build started by Rebuild or the schedule is running.
func (a *App) Building() bool {
	return a.rebuilding.Load()
}

// Wait blocks until background builds have finished.
func (a *App) Wait() {
	a.builds.Wait()
}

func (a *App) runBuild(ctx context.Context, reason string) {
	log := a.Logger.With(slog.String("reason", reason))
	log.Info("rebuild requested")
	res, err := a.Pipeline.Build(ctx)
	if errors.Is(err, ErrBuildInProgress) {
		log.Warn("rebuild skipped, another build is running")
		return
	}
	if err != nil {
		log.Error("rebuild failed", ErrorAttr(err))
	} else if res.Site != nil {
		log.Info("rebuild finished", BuildID(res.Report.ID), Count(res.Site.Pages), Duration(res.Report.Duration()))
	}
	if n, perr := a.Store.Prune(context.WithoutCancel(ctx), keepBuilds); perr != nil {
		log.Warn("pruning build history failed", ErrorAttr(perr))
	} else if n > 0 {
		a.Cache.Invalidate()
	}
}

// Close stops the scheduler, waits for running builds and releases resources.
func (a *App) Close() error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Shutdown())
	}
	a.cancel()
	a.builds.Wait()
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.hookLimiter != nil {
		a.hookLimiter.Close()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
