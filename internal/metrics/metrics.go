// Package metrics implements the observability hooks with Prometheus.
//
// The serve and view commands register them at startup:
//
//	m := metrics.New(prometheus.NewRegistry())
//	m.Register()
//	srv := server.New(local, server.Options{Metrics: m.Handler()})
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/kudsight/pkg/observability"
)

const namespace = "kudsight"

// Metrics holds the collectors behind the hook implementations.
type Metrics struct {
	registry *prometheus.Registry

	loads         *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	loadedNodes   prometheus.Gauge
	overlaySkips  *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	flushedPoints prometheus.Histogram

	cacheLookups *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "loads_total",
			Help: "Dataset loads by outcome.",
		}, []string{"outcome"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "session", Name: "load_duration_seconds",
			Help:    "Time to fetch, normalize and merge a dataset.",
			Buckets: prometheus.DefBuckets,
		}),
		loadedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "session", Name: "loaded_nodes",
			Help: "Node count of the most recently loaded dataset.",
		}),
		overlaySkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "overlay_skips_total",
			Help: "Loads that applied no saved layout, by reason.",
		}, []string{"reason"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "layout_flushes_total",
			Help: "Layout submissions by outcome.",
		}, []string{"outcome"}),
		flushedPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "session", Name: "layout_flush_positions",
			Help:    "Positions per layout submission.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Cache lookups by key type and result.",
		}, []string{"type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http_client", Name: "requests_total",
			Help: "Outgoing requests by method, host and status code.",
		}, []string{"method", "host", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http_client", Name: "request_duration_seconds",
			Help:    "Outgoing request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "host"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http_client", Name: "errors_total",
			Help: "Outgoing requests that failed before a response.",
		}, []string{"method", "host"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loads, m.loadDuration, m.loadedNodes, m.overlaySkips,
		m.flushes, m.flushedPoints,
		m.cacheLookups, m.cacheBytes,
		m.httpRequests, m.httpDuration, m.httpErrors,
	)
	return m
}

// Register installs the hooks globally.
func (m *Metrics) Register() {
	observability.SetSessionHooks(m.Session())
	observability.SetCacheHooks(m.Cache())
	observability.SetHTTPHooks(m.HTTP())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Session() observability.SessionHooks { return sessionHooks{m} }
func (m *Metrics) Cache() observability.CacheHooks     { return cacheHooks{m} }
func (m *Metrics) HTTP() observability.HTTPHooks       { return httpHooks{m} }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type sessionHooks struct{ m *Metrics }

func (h sessionHooks) OnLoadStart(context.Context, string) {}

func (h sessionHooks) OnLoadComplete(_ context.Context, _ string, nodes int, d time.Duration, err error) {
	h.m.loads.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return
	}
	h.m.loadDuration.Observe(d.Seconds())
	h.m.loadedNodes.Set(float64(nodes))
}

func (h sessionHooks) OnOverlaySkipped(_ context.Context, _ string, reason string) {
	h.m.overlaySkips.WithLabelValues(skipReason(reason)).Inc()
}

func (h sessionHooks) OnFlush(_ context.Context, _ string, positions int, err error) {
	h.m.flushes.WithLabelValues(outcome(err)).Inc()
	h.m.flushedPoints.Observe(float64(positions))
}

// skipReason keeps the label set bounded: probe and fetch failures carry the
// error text after a colon.
func skipReason(reason string) string {
	label, _, _ := strings.Cut(reason, ":")
	return label
}

type cacheHooks struct{ m *Metrics }

func (h cacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.m.cacheLookups.WithLabelValues(keyType, "hit").Inc()
}

func (h cacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.m.cacheLookups.WithLabelValues(keyType, "miss").Inc()
}

func (h cacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

type httpHooks struct{ m *Metrics }

func (h httpHooks) OnRequest(context.Context, string, string, string) {}

func (h httpHooks) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	h.m.httpRequests.WithLabelValues(method, host, strconv.Itoa(code)).Inc()
	h.m.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (h httpHooks) OnError(_ context.Context, method, host, _ string, _ error) {
	h.m.httpErrors.WithLabelValues(method, host).Inc()
}
