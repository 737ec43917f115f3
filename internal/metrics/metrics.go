// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the service reports. A nil *Collector is
// valid and records nothing, so wiring stays optional in tests.
type Collector struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	blockedTotal     *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	classifierErrors prometheus.Counter
	tokensStreamed   prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_runs_total",
			Help: "Completed workflow runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentd_run_duration_seconds",
			Help:    "Wall time of workflow runs.",
			Buckets: prometheus.DefBuckets,
		}),
		blockedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_blocked_total",
			Help: "Runs blocked by the safety gate, by category.",
		}, []string{"category"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_tool_invocations_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		classifierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentd_classifier_errors_total",
			Help: "Safety classifier responses that failed to parse.",
		}),
		tokensStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentd_tokens_streamed_total",
			Help: "Token events emitted to stream consumers.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentd_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentd_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	c.registry.MustRegister(
		c.runsTotal, c.runDuration, c.blockedTotal, c.toolInvocations,
		c.classifierErrors, c.tokensStreamed, c.httpRequests, c.httpDuration,
	)
	return c
}

// Handler serves the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RunCompleted(status string, seconds float64) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(seconds)
}

func (c *Collector) RunBlocked(category string) {
	if c == nil {
		return
	}
	c.blockedTotal.WithLabelValues(category).Inc()
}

func (c *Collector) ToolInvoked(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolInvocations.WithLabelValues(tool, outcome).Inc()
}

func (c *Collector) ClassifierError() {
	if c == nil {
		return
	}
	c.classifierErrors.Inc()
}

func (c *Collector) TokenStreamed() {
	if c == nil {
		return
	}
	c.tokensStreamed.Inc()
}

func (c *Collector) HTTPRequest(method, path, status string, seconds float64) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, status).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(seconds)
}
