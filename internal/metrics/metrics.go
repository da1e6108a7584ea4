// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the assessment engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns every collector. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	answers         *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	violations      *prometheus.CounterVec
	judgeErrors     prometheus.Counter
	conflicts       *prometheus.CounterVec
}

// New creates a Recorder with its collectors registered on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_answers_total",
				Help: "Answers accepted, by question type and correctness",
			},
			[]string{"type", "correct"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_attempts_finalized_total",
				Help: "Attempts reaching a terminal status, by status and result",
			},
			[]string{"status", "result"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_violations_total",
				Help: "Proctoring violations recorded, by type",
			},
			[]string{"type"},
		),
		judgeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_judge_errors_total",
			Help: "Code judge calls that failed and were scored as zero",
		}),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_version_conflicts_total",
				Help: "Attempt mutations rejected by the version check",
			},
			[]string{"operation"},
		),
	}

	r.registry.MustRegister(
		r.requests, r.requestDuration, r.answers, r.submissions,
		r.violations, r.judgeErrors, r.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) AnswerScored(questionType string, correct bool) {
	if r == nil {
		return
	}
	r.answers.WithLabelValues(questionType, strconv.FormatBool(correct)).Inc()
}

func (r *Recorder) AttemptFinalized(status, result string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(status, result).Inc()
}

func (r *Recorder) ViolationRecorded(violationType string) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(violationType).Inc()
}

func (r *Recorder) JudgeFailed() {
	if r == nil {
		return
	}
	r.judgeErrors.Inc()
}

func (r *Recorder) VersionConflict(operation string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(operation).Inc()
}

// Middleware counts and times every request by route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		r.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
