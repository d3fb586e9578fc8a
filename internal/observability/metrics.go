package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP requests processed by the relay.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	commitConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_store_commit_conflicts_total",
			Help: "Total number of store commits retried after a conflict.",
		},
	)
	pollRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_poll_requests_total",
			Help: "Total number of poll requests, by outcome.",
		},
		[]string{"outcome"},
	)
	pollSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_poll_sessions_active",
			Help: "Number of polling sessions seen within the session TTL.",
		},
	)
	fanoutQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_fanout_queue_depth",
			Help: "Number of room events waiting for notification fanout.",
		},
	)
	notificationsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_notifications_delivered_total",
			Help: "Total number of notifications written by the fanout.",
		},
		[]string{"type"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		commitConflictsTotal,
		pollRequestsTotal,
		pollSessionsActive,
		fanoutQueueDepth,
		notificationsDeliveredTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncCommitConflict() {
	commitConflictsTotal.Inc()
}

func IncPollRequest(outcome string) {
	pollRequestsTotal.WithLabelValues(outcome).Inc()
}

func SetActivePollSessions(n int) {
	pollSessionsActive.Set(float64(n))
}

func SetFanoutQueueDepth(n int) {
	fanoutQueueDepth.Set(float64(n))
}

func IncNotificationDelivered(notificationType string) {
	notificationsDeliveredTotal.WithLabelValues(notificationType).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
