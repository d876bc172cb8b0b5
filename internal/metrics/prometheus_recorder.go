package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	runDuration     prom.Histogram
	runOutcomes     *prom.CounterVec
	operations      *prom.CounterVec
	recordedEntries prom.Gauge
	lastSuccess     prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "polycrystal",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs, lock wait included",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "polycrystal",
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome",
		}, []string{"outcome"}),
		operations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "polycrystal",
			Name:      "operations_total",
			Help:      "Package operations by kind and result",
		}, []string{"kind", "result"}),
		recordedEntries: prom.NewGauge(prom.GaugeOpts{
			Namespace: "polycrystal",
			Name:      "recorded_entries",
			Help:      "Number of entries in the recorded state after the last run",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: "polycrystal",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	reg.MustRegister(pr.runDuration, pr.runOutcomes, pr.operations, pr.recordedEntries, pr.lastSuccess)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncOperation(kind string, result OperationResult) {
	p.operations.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) SetRecordedEntries(n int) {
	p.recordedEntries.Set(float64(n))
}

func (p *PrometheusRecorder) SetLastSuccess(t time.Time) {
	p.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile atomically writes the registry in text exposition format to path.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}

// Handler serves the registry for scraping.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
