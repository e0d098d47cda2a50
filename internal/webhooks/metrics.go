package webhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer outcome notification metrics. The event_type label is one of
// transfer.completed, transfer.failed or transfer.stopped.
var (
	NotificationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_notification_events_total",
			Help: "Transfer outcome events handed to the notifier",
		},
		[]string{"event_type"},
	)

	// NotificationDeliveriesTotal counts final delivery results per endpoint.
	NotificationDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_notification_deliveries_total",
			Help: "Transfer outcome notifications by final delivery status",
		},
		[]string{"event_type", "status"},
	)

	NotificationDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesender_notification_delivery_duration_seconds",
			Help:    "Time to deliver one transfer outcome notification, retries included",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"event_type"},
	)

	NotificationRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_notification_retries_total",
			Help: "Repeated attempts to deliver a transfer outcome notification",
		},
		[]string{"event_type"},
	)

	NotificationQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filesender_notification_queue_size",
			Help: "Transfer outcome events waiting for delivery",
		},
	)

	// NotificationDroppedTotal counts events lost to a full queue or a
	// notifier that already shut down.
	NotificationDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesender_notification_dropped_total",
			Help: "Transfer outcome events dropped before delivery",
		},
	)
)

// PrometheusMetrics records notifier activity in the default registry.
type PrometheusMetrics struct{}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (m *PrometheusMetrics) RecordEvent(eventType string) {
	NotificationEventsTotal.WithLabelValues(eventType).Inc()
}

func (m *PrometheusMetrics) RecordDelivery(eventType, status string) {
	NotificationDeliveriesTotal.WithLabelValues(eventType, status).Inc()
}

func (m *PrometheusMetrics) RecordDeliveryDuration(eventType string, duration time.Duration) {
	NotificationDeliveryDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRetry(eventType string) {
	NotificationRetriesTotal.WithLabelValues(eventType).Inc()
}

func (m *PrometheusMetrics) RecordDroppedEvent() {
	NotificationDroppedTotal.Inc()
}

func (m *PrometheusMetrics) SetQueueSize(size int) {
	NotificationQueueSize.Set(float64(size))
}
