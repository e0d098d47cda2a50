package webhooks

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics()
	event := string(EventTransferFailed)

	events := testutil.ToFloat64(NotificationEventsTotal.WithLabelValues(event))
	failed := testutil.ToFloat64(NotificationDeliveriesTotal.WithLabelValues(event, string(DeliveryStatusFailed)))
	retries := testutil.ToFloat64(NotificationRetriesTotal.WithLabelValues(event))
	dropped := testutil.ToFloat64(NotificationDroppedTotal)

	m.RecordEvent(event)
	m.RecordDelivery(event, string(DeliveryStatusFailed))
	m.RecordRetry(event)
	m.RecordRetry(event)
	m.RecordDroppedEvent()
	m.RecordDeliveryDuration(event, 250*time.Millisecond)
	m.SetQueueSize(3)

	if got := testutil.ToFloat64(NotificationEventsTotal.WithLabelValues(event)); got != events+1 {
		t.Errorf("events = %v, want %v", got, events+1)
	}
	if got := testutil.ToFloat64(NotificationDeliveriesTotal.WithLabelValues(event, string(DeliveryStatusFailed))); got != failed+1 {
		t.Errorf("failed deliveries = %v, want %v", got, failed+1)
	}
	if got := testutil.ToFloat64(NotificationRetriesTotal.WithLabelValues(event)); got != retries+2 {
		t.Errorf("retries = %v, want %v", got, retries+2)
	}
	if got := testutil.ToFloat64(NotificationDroppedTotal); got != dropped+1 {
		t.Errorf("dropped = %v, want %v", got, dropped+1)
	}
	if got := testutil.ToFloat64(NotificationQueueSize); got != 3 {
		t.Errorf("queue size = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(NotificationDeliveryDuration); n < 1 {
		t.Errorf("delivery duration series = %d, want at least 1", n)
	}
}
