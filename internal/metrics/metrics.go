package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_http_requests_total",
			Help: "HTTP requests processed, by route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_notifications_created_total",
			Help: "Notification rows written, by type and result",
		},
		[]string{"type", "result"},
	)

	fanoutBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "animehub_notification_fanout_batch_size",
			Help:    "Number of recipients per bulk or system fan-out",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	unreadCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animehub_unread_cache_lookups_total",
			Help: "Unread-count cache lookups, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordNotification counts one notification insert attempt.
func RecordNotification(notificationType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	notificationsCreated.WithLabelValues(notificationType, result).Inc()
}

// RecordFanout observes the size of a fan-out batch.
func RecordFanout(size int) {
	fanoutBatchSize.Observe(float64(size))
}

// RecordCacheLookup counts a cache hit, miss or error.
func RecordCacheLookup(outcome string) {
	unreadCacheLookups.WithLabelValues(outcome).Inc()
}

// GinMiddleware records request counts and latency using the matched route template,
// so path parameters do not explode label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
