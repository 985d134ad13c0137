package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 汇总路由相关指标。nil 接收者上的方法均为空操作。
type Router struct {
	registry *prometheus.Registry

	quotes      *prometheus.CounterVec
	visits      *prometheus.HistogramVec
	pathFills   *prometheus.HistogramVec
	sourceUsage *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewRouter 创建指标并注册到独立的 Registry。
func NewRouter() *Router {
	m := &Router{
		registry: prometheus.NewRegistry(),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_quotes_total",
			Help: "Routing requests by side and outcome",
		}, []string{"side", "outcome"}),
		visits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_search_visits",
			Help:    "Search budget consumed per request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}, []string{"side"}),
		pathFills: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_path_fills",
			Help:    "Fills in the selected path",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}, []string{"side"}),
		sourceUsage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_source_usage_total",
			Help: "Collapsed fills emitted per source",
		}, []string{"source"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_quote_latency_ms",
			Help:    "End-to-end quote latency",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"side"}),
	}
	m.registry.MustRegister(
		m.quotes, m.visits, m.pathFills, m.sourceUsage, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveQuote 记录一次成功报价。
func (m *Router) ObserveQuote(side string, visits, fills int, sources []string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(side, "ok").Inc()
	m.visits.WithLabelValues(side).Observe(float64(visits))
	m.pathFills.WithLabelValues(side).Observe(float64(fills))
	m.latency.WithLabelValues(side).Observe(float64(elapsed.Milliseconds()))
	for _, s := range sources {
		m.sourceUsage.WithLabelValues(s).Inc()
	}
}

// ObserveFailure 按错误类别记录失败报价。
func (m *Router) ObserveFailure(side, reason string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(side, reason).Inc()
}

// Registry 返回底层 Registry。
func (m *Router) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics 处理器。
func (m *Router) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
