package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AttemptsStarted counts StartAttempt outcomes: created, resumed or the error kind.
	AttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_attempts_started_total",
			Help: "StartAttempt calls by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_submissions_completed_total",
			Help: "Submissions moved to COMPLETED",
		},
	)

	AnswersGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_answers_graded_total",
			Help: "Answers graded, by mode (auto or manual)",
		},
		[]string{"mode"},
	)

	ReviewsApproved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_reviews_approved_total",
			Help: "Submissions released by a reviewer",
		},
	)

	LockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lms_submission_lock_wait_seconds",
			Help:    "Time spent waiting for the per-submission lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			SubmissionsCompleted,
			AnswersGraded,
			ReviewsApproved,
			LockWait,
		)
	})
}

func ObserveLockWait(start time.Time) {
	LockWait.Observe(time.Since(start).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
