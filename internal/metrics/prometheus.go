package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "texlsp"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	buildDuration *prom.HistogramVec
	buildOutcomes *prom.CounterVec
	buildsActive  prom.Gauge
	lintResults   *prom.CounterVec
	lintDuration  *prom.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall-clock duration of compiler builds by final status",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Builds by final status",
		}, []string{"status"}),
		buildsActive: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "builds_in_flight",
			Help:      "Builds currently registered for cancellation",
		}),
		lintResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "lint_attempts_total",
			Help:      "Lint attempts by tool and outcome",
		}, []string{"tool", "outcome"}),
		lintDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "lint_duration_seconds",
			Help:      "Duration of external linter invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"tool"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcomes, pr.buildsActive, pr.lintResults, pr.lintDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveBuild(status string, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(status).Observe(d.Seconds())
	p.buildOutcomes.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetBuildsInFlight(n int) {
	if p == nil {
		return
	}
	p.buildsActive.Set(float64(n))
}

func (p *PrometheusRecorder) IncLint(tool string, outcome LintOutcome) {
	if p == nil {
		return
	}
	p.lintResults.WithLabelValues(tool, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveLintDuration(tool string, d time.Duration) {
	if p == nil {
		return
	}
	p.lintDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
