// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several instances (tests) can coexist.
// All methods are safe on a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationsTotal   *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	statusLookups      *prometheus.CounterVec
	statusEntriesSwept prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		generationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Provider calls by outcome (completed or failure kind)",
		}, []string{"outcome"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Image provider latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 25, 30},
		}, []string{"outcome"}),
		statusLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_lookups_total",
			Help:      "Requests answered from the status store, by recorded state",
		}, []string{"state"}),
		statusEntriesSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_entries_swept_total",
			Help:      "Expired status entries removed by the sweeper",
		}),
	}
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) RecordGeneration(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.generationsTotal.WithLabelValues(outcome).Inc()
	c.providerDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *Collector) RecordStatusLookup(state string) {
	if c == nil {
		return
	}
	c.statusLookups.WithLabelValues(state).Inc()
}

func (c *Collector) RecordSwept(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.statusEntriesSwept.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }
