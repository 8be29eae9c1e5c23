package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_orchestrator"

var (
	// SessionsStarted counts generation starts. Labels: outcome (accepted, rejected, failed).
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "sessions_started_total",
		Help:      "Generation session start attempts by outcome",
	}, []string{"outcome"})

	// SessionsFinished counts sessions that reached a terminal status.
	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "sessions_finished_total",
		Help:      "Generation sessions by terminal status",
	}, []string{"status"})

	ArticlesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "articles_total",
		Help:      "Articles written by model and whether the fallback draft was used",
	}, []string{"model", "fallback"})

	ArticleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "article_duration_seconds",
		Help:      "Time to write one article",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180},
	}, []string{"model"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result (hit, miss)",
	}, []string{"result"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "invalidated_entries_total",
		Help:      "Entries dropped by prefix invalidation",
	})

	// ProxyRequests counts content proxy lookups. Labels: status (HTTP status returned).
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "CMS proxy requests by returned status",
	}, []string{"status"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
