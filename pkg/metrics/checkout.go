package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order submission, search and analytics activity.
type CheckoutMetrics struct {
	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
	searches           *prometheus.CounterVec
	analyticsFailures  *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	submissionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_submission_duration_seconds",
		Help:    "Duration of order submissions to the order API in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_breaker_state",
		Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).",
	}, []string{"upstream"})
	searches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_searches_total",
		Help: "Product searches by result status.",
	}, []string{"status"})
	analyticsFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_publish_failures_total",
		Help: "Analytics events that failed to publish.",
	}, []string{"event"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served by route pattern and status class.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(submissions, submissionDuration, breakerState, searches, analyticsFailures, httpRequests)
	return &CheckoutMetrics{
		submissions:        submissions,
		submissionDuration: submissionDuration,
		breakerState:       breakerState,
		searches:           searches,
		analyticsFailures:  analyticsFailures,
		httpRequests:       httpRequests,
	}
}

// ObserveSubmission counts one submission attempt and records its duration.
func (c *CheckoutMetrics) ObserveSubmission(outcome string, duration time.Duration) {
	if c == nil || c.submissions == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.submissions.WithLabelValues(outcome).Inc()
	c.submissionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetBreakerState exports the current breaker state for an upstream.
func (c *CheckoutMetrics) SetBreakerState(upstream string, state int) {
	if c == nil || c.breakerState == nil {
		return
	}
	c.breakerState.WithLabelValues(normalizeLabel(upstream)).Set(float64(state))
}

// IncSearch counts a search by its result status.
func (c *CheckoutMetrics) IncSearch(status string) {
	if c == nil || c.searches == nil {
		return
	}
	c.searches.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncAnalyticsFailure counts an analytics event that could not be published.
func (c *CheckoutMetrics) IncAnalyticsFailure(event string) {
	if c == nil || c.analyticsFailures == nil {
		return
	}
	c.analyticsFailures.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncHTTPRequest counts a served request.
func (c *CheckoutMetrics) IncHTTPRequest(method, route string, status int) {
	if c == nil || c.httpRequests == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, normalizeLabel(route), statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
