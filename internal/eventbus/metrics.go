package eventbus

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "eventbus",
		Name:      "events_published_total",
		Help:      "Number of roster events written to Kafka.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "eventbus",
		Name:      "events_failed_total",
		Help:      "Number of roster events Kafka did not accept.",
	}, []string{"event_type"})

	publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activity_registry",
		Subsystem: "eventbus",
		Name:      "publish_duration_seconds",
		Help:      "Time spent writing a roster event to Kafka.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_registry",
		Subsystem: "eventbus",
		Name:      "queue_depth",
		Help:      "Roster events waiting for delivery.",
	})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_registry",
		Subsystem: "eventbus",
		Name:      "events_dropped_total",
		Help:      "Number of roster events rejected because the queue was full.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(publishedCounter, failedCounter, publishDuration, queueDepth, droppedCounter)
}
