package herald

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder receives build metrics. NoopRecorder is the default.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string)
	ObserveFetchDuration(contentType string, d time.Duration)
	AddPagesEmitted(contentType string, n int)
	AddPathConflicts(n int)
	ObserveWriteDuration(d time.Duration)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) ObserveFetchDuration(string, time.Duration) {}
func (NoopRecorder) AddPagesEmitted(string, int)                {}
func (NoopRecorder) AddPathConflicts(int)                       {}
func (NoopRecorder) ObserveWriteDuration(time.Duration)         {}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	fetchDuration *prom.HistogramVec
	pagesEmitted  *prom.CounterVec
	pathConflicts prom.Counter
	writeDuration prom.Histogram
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "herald",
			Name:      "build_duration_seconds",
			Help:      "Total duration of page generation runs",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "herald",
			Name:      "build_outcomes_total",
			Help:      "Page generation runs by final state",
		}, []string{"outcome"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "herald",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of content list fetches per content type",
			Buckets:   prom.DefBuckets,
		}, []string{"content_type"}),
		pagesEmitted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "herald",
			Name:      "pages_emitted_total",
			Help:      "Pages registered per content type",
		}, []string{"content_type"}),
		pathConflicts: prom.NewCounter(prom.CounterOpts{
			Namespace: "herald",
			Name:      "path_conflicts_total",
			Help:      "Pages refused because their path was already taken",
		}),
		writeDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "herald",
			Name:      "site_write_duration_seconds",
			Help:      "Duration of rendering and publishing the static site",
			Buckets:   prom.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.fetchDuration, pr.pagesEmitted, pr.pathConflicts, pr.writeDuration)
	}
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveFetchDuration(contentType string, d time.Duration) {
	p.fetchDuration.WithLabelValues(contentType).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddPagesEmitted(contentType string, n int) {
	p.pagesEmitted.WithLabelValues(contentType).Add(float64(n))
}

func (p *PrometheusRecorder) AddPathConflicts(n int) {
	p.pathConflicts.Add(float64(n))
}

func (p *PrometheusRecorder) ObserveWriteDuration(d time.Duration) {
	p.writeDuration.Observe(d.Seconds())
}
