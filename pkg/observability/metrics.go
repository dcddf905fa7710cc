package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_ratelimit_decisions_total",
		Help: "Admission decisions made by the request limiter",
	}, []string{"result"})

	RateLimitTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fs_ratelimit_tracked_identities",
		Help: "Identities currently tracked by the request limiter",
	})

	ChefRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_chef_requests_total",
		Help: "Calls to the generative-AI provider",
	}, []string{"kind", "result"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fs_http_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	MediaTraffic = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_media_bytes_total",
		Help: "Total bytes of media written or served",
	}, []string{"direction"})
)

// RecordDecision counts one limiter decision.
func RecordDecision(allowed bool) {
	if allowed {
		RateLimitDecisions.WithLabelValues("allowed").Inc()
		return
	}
	RateLimitDecisions.WithLabelValues("rejected").Inc()
}
