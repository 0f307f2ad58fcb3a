// Package metrics exposes cycle and HTTP metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gapwatch"

var severities = []domain.Severity{
	domain.SeverityLow, domain.SeverityModerate, domain.SeverityHigh, domain.SeverityCritical,
}

type Collector struct {
	registry *prometheus.Registry

	cyclesTotal  *prometheus.CounterVec
	lastCycle    prometheus.Gauge
	gapScore     *prometheus.GaugeVec
	categories   *prometheus.GaugeVec
	alerts       *prometheus.GaugeVec
	avgGapScore  prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector registers all metrics on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Monitoring cycles by final status.",
		}, []string{"status"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle completed.",
		}),
		gapScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gap_score",
			Help:      "Latest gap score per category.",
		}, []string{"category"}),
		categories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "categories",
			Help:      "Categories per severity in the latest cycle.",
		}, []string{"severity"}),
		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts",
			Help:      "Raised alerts per type in the latest cycle.",
		}, []string{"alert"}),
		avgGapScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "avg_gap_score",
			Help:      "Average gap score in the latest cycle.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		c.cyclesTotal,
		c.lastCycle,
		c.gapScore,
		c.categories,
		c.alerts,
		c.avgGapScore,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCycle counts a finished cycle and replaces the gap gauges with its values.
func (c *Collector) ObserveCycle(status string, records []domain.ChangeRecord, kpis domain.KPISummary, at time.Time) {
	c.cyclesTotal.WithLabelValues(status).Inc()
	c.lastCycle.Set(float64(at.Unix()))
	c.ObserveGaps(records, kpis)
}

// ObserveGaps replaces the per-category and per-severity gauges.
func (c *Collector) ObserveGaps(records []domain.ChangeRecord, kpis domain.KPISummary) {
	c.avgGapScore.Set(kpis.AvgGapScore)

	c.gapScore.Reset()
	c.alerts.Reset()
	counts := make(map[domain.Severity]int, len(severities))
	for _, r := range records {
		c.gapScore.WithLabelValues(r.Category).Set(r.GapScore)
		counts[r.GapStatus]++
		for _, a := range r.Alerts {
			c.alerts.WithLabelValues(string(a)).Inc()
		}
	}
	for _, s := range severities {
		c.categories.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format, for batch runs
// that are not scraped.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Handler serves the private registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and durations by route template.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.httpRequests.WithLabelValues(route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
