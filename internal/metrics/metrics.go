// Package metrics provides Prometheus metrics for the folio server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route pattern and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration measures handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ReactionsTotal counts like and unlike operations that hit an article.
	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "article_reactions_total",
			Help:      "Total number of article likes and unlikes",
		},
		[]string{"kind"},
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "messages_posted_total",
			Help:      "Total number of guestbook messages stored",
		},
	)

	SnapshotPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "snapshot_publish_errors_total",
			Help:      "Total number of message snapshots that failed to publish",
		},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "folio",
			Name:      "stream_subscribers",
			Help:      "Number of open message stream connections",
		},
	)
)

// RecordRequest records one finished HTTP request.
func RecordRequest(method, route string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordReaction(kind string) {
	ReactionsTotal.WithLabelValues(kind).Inc()
}
