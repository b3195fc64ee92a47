package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "buckaroo"

// Prometheus implements every hook interface by recording Prometheus
// metrics.
type Prometheus struct {
	resolves        *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	resolvePackages prometheus.Histogram
	inflight        prometheus.Gauge
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	cacheOps        *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "resolves_total",
			Help: "Resolutions by outcome.",
		}, []string{"outcome"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "resolve_duration_seconds",
			Help:    "Wall time of a resolution.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		resolvePackages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "resolve_packages",
			Help:    "Packages in a successful resolution.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "resolves_in_flight",
			Help: "Resolutions currently running.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "recipe_fetches_total",
			Help: "Recipe fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "recipe_fetch_duration_seconds",
			Help:    "Wall time of a recipe fetch.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"source"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Cache lookups and writes by key type.",
		}, []string{"type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Outgoing HTTP requests by host and status.",
		}, []string{"host", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Latency of outgoing HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}
	if reg != nil {
		reg.MustRegister(
			p.resolves, p.resolveDuration, p.resolvePackages, p.inflight,
			p.fetches, p.fetchDuration,
			p.cacheOps, p.cacheBytes,
			p.requests, p.requestDuration,
		)
	}
	return p
}

// Install registers p as the global resolve, cache and HTTP hooks.
func (p *Prometheus) Install() {
	SetResolveHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnResolveStart(context.Context, int) { p.inflight.Inc() }

func (p *Prometheus) OnResolveComplete(_ context.Context, packages, _ int, d time.Duration, err error) {
	p.inflight.Dec()
	p.resolves.WithLabelValues(outcome(err)).Inc()
	p.resolveDuration.Observe(d.Seconds())
	if err == nil {
		p.resolvePackages.Observe(float64(packages))
	}
}

func (p *Prometheus) OnFetch(_ context.Context, source, _ string, d time.Duration, err error) {
	p.fetches.WithLabelValues(source, outcome(err)).Inc()
	p.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	p.requests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.requests.WithLabelValues(host, "error").Inc()
}

var (
	_ ResolveHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)
