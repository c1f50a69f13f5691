// Package metrics exposes Prometheus collectors for matching passes, the match cache and
// HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/david/scholar-match/internal/models"
)

// Metrics implements matching.Recorder and cache.Observer.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	matchPasses     *prometheus.CounterVec
	matchDuration   *prometheus.HistogramVec
	droppedJudgment *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	matchPasses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_passes_total",
		Help: "Matching passes by result source and fallback reason",
	}, []string{"source", "reason"})

	matchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "match_pass_duration_seconds",
		Help:    "Wall time of a matching pass",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source"})

	droppedJudgment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_judgments_dropped_total",
		Help: "Collaborator judgments discarded during validation",
	}, []string{"reason"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_cache_lookups_total",
		Help: "Match cache lookups by result",
	}, []string{"result"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(matchPasses, matchDuration, droppedJudgment, cacheLookups, requestDuration)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		matchPasses:     matchPasses,
		matchDuration:   matchDuration,
		droppedJudgment: droppedJudgment,
		cacheLookups:    cacheLookups,
		requestDuration: requestDuration,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveMatchPass(source models.MatchSource, reason string, elapsed time.Duration) {
	if reason == "" {
		reason = "none"
	}
	m.matchPasses.WithLabelValues(string(source), reason).Inc()
	m.matchDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

func (m *Metrics) AddDroppedJudgments(reason string, n int) {
	if n <= 0 {
		return
	}
	m.droppedJudgment.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// EchoMiddleware records request latency keyed by route pattern.
func (m *Metrics) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, path, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
