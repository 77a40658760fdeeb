package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enrollmentsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "roster",
		Name:      "enrollments_total",
		Help:      "Number of successful signups per activity.",
	}, []string{"activity"})

	unenrollmentsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "roster",
		Name:      "unenrollments_total",
		Help:      "Number of participants removed per activity.",
	}, []string{"activity"})

	rejectionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "roster",
		Name:      "rejections_total",
		Help:      "Number of rejected roster mutations, labeled by operation and reason.",
	}, []string{"op", "reason"})

	rosterSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activity_registry",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Roster size as last listed, adjusted by each signup and removal.",
	}, []string{"activity"})

	publishFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Number of roster events that could not be handed to the publisher.",
	}, []string{"event_type"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_registry",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(
		enrollmentsCounter,
		unenrollmentsCounter,
		rejectionsCounter,
		rosterSizeGauge,
		publishFailuresCounter,
		requestDuration,
	)
}

// RecordEnrollment counts a successful signup.
func RecordEnrollment(activity string) {
	enrollmentsCounter.WithLabelValues(activity).Inc()
}

// RecordUnenrollment counts a successful removal.
func RecordUnenrollment(activity string) {
	unenrollmentsCounter.WithLabelValues(activity).Inc()
}

// RecordRejection counts a failed roster mutation.
func RecordRejection(op, reason string) {
	rejectionsCounter.WithLabelValues(op, reason).Inc()
}

// RecordRosterSize updates the roster size gauge.
func RecordRosterSize(activity string, size int) {
	rosterSizeGauge.WithLabelValues(activity).Set(float64(size))
}

// AdjustRosterSize moves the roster size gauge after a mutation.
func AdjustRosterSize(activity string, delta int) {
	rosterSizeGauge.WithLabelValues(activity).Add(float64(delta))
}

// RecordPublishFailure counts an event the publisher rejected.
func RecordPublishFailure(eventType string) {
	publishFailuresCounter.WithLabelValues(eventType).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(method string, status int, seconds float64) {
	requestDuration.WithLabelValues(methodLabel(method), statusClass(status)).Observe(seconds)
}

// methodLabel bounds the method label to the standard verbs.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "other"
	}
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
