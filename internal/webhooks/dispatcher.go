package webhooks

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Dispatcher handles asynchronous webhook delivery
type Dispatcher struct {
	configs      []*Config
	client       *http.Client
	eventChan    chan *Event
	workerCount  int
	wg           sync.WaitGroup
	metrics      MetricsRecorder
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// ctx aborts in-flight deliveries when Shutdown gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	// retryDelay is replaced in tests
	retryDelay func(attempt int) time.Duration
}

// MetricsRecorder is an interface for recording webhook metrics
type MetricsRecorder interface {
	RecordEvent(eventType string)
	RecordDelivery(eventType, status string)
	RecordDeliveryDuration(eventType string, duration time.Duration)
	RecordRetry(eventType string)
	RecordDroppedEvent()
	SetQueueSize(size int)
}

// NewDispatcher creates a new webhook dispatcher for configs. A nil client
// uses a pooled default.
func NewDispatcher(configs []*Config, client *http.Client, workerCount, bufferSize int, metrics MetricsRecorder) *Dispatcher {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if workerCount <= 0 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		configs:     configs,
		client:      client,
		eventChan:   make(chan *Event, bufferSize),
		workerCount: workerCount,
		metrics:     metrics,
		shutdown:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		retryDelay:  CalculateRetryDelay,
	}
}

// Start starts the webhook dispatcher workers
func (d *Dispatcher) Start() {
	slog.Debug("starting webhook dispatcher", "workers", d.workerCount, "endpoints", len(d.configs))

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Shutdown stops accepting events and waits for queued deliveries until
// ctx ends, then aborts the rest. Reports whether the queue drained.
func (d *Dispatcher) Shutdown(ctx context.Context) bool {
	d.shutdownOnce.Do(func() {
		// Emit checks shutdown before sending, so closing eventChan is safe
		close(d.shutdown)
		close(d.eventChan)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		slog.Debug("webhook dispatcher shutdown complete")
		return true
	case <-ctx.Done():
		d.cancel()
		<-done
		slog.Warn("webhook dispatcher shutdown timed out, pending deliveries aborted")
		return false
	}
}

// Emit emits a webhook event for delivery
func (d *Dispatcher) Emit(event *Event) {
	select {
	case <-d.shutdown:
		slog.Warn("webhook dispatcher shutting down, dropping event", "event_type", event.Type)
		d.metrics.RecordDroppedEvent()
		return
	default:
	}

	select {
	case d.eventChan <- event:
		d.metrics.RecordEvent(string(event.Type))
		d.metrics.SetQueueSize(len(d.eventChan))
	default:
		slog.Warn("webhook event channel full, dropping event", "event_type", event.Type)
		d.metrics.RecordDroppedEvent()
	}
}

// worker processes webhook events until the channel is closed
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for event := range d.eventChan {
		if event == nil {
			continue
		}
		d.processEvent(event)
		d.metrics.SetQueueSize(len(d.eventChan))
	}
	slog.Debug("webhook worker stopped", "worker_id", id)
}

// processEvent delivers an event to every subscribed endpoint
func (d *Dispatcher) processEvent(event *Event) {
	for _, config := range d.configs {
		if !config.SubscribedTo(event.Type) {
			continue
		}

		payload, err := TransformPayload(event, config.Format)
		if err != nil {
			slog.Error("failed to transform event payload", "error", err, "format", config.Format)
			continue
		}

		d.attemptDelivery(config, string(event.Type), payload)
	}
}

// attemptDelivery delivers payload, retrying with backoff up to
// config.MaxRetries times.
func (d *Dispatcher) attemptDelivery(config *Config, eventType, payload string) DeliveryStatus {
	for attempt := 1; ; attempt++ {
		startTime := time.Now()
		result := DeliverWebhook(d.ctx, d.client, config, payload)
		d.metrics.RecordDeliveryDuration(eventType, time.Since(startTime))

		if result.Success {
			d.metrics.RecordDelivery(eventType, string(DeliveryStatusSuccess))
			return DeliveryStatusSuccess
		}

		if !ShouldRetry(attempt, config.MaxRetries) || d.ctx.Err() != nil {
			d.metrics.RecordDelivery(eventType, string(DeliveryStatusFailed))
			slog.Error("webhook delivery failed",
				"url", config.URL,
				"attempts", attempt,
				"error", result.Error)
			return DeliveryStatusFailed
		}

		delay := d.retryDelay(attempt - 1)
		d.metrics.RecordRetry(eventType)
		slog.Info("webhook delivery failed, retrying",
			"url", config.URL,
			"attempt", attempt,
			"max_retries", config.MaxRetries,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-d.ctx.Done():
			d.metrics.RecordDelivery(eventType, string(DeliveryStatusFailed))
			return DeliveryStatusFailed
		}
	}
}

// GetQueueSize returns the current size of the event queue
func (d *Dispatcher) GetQueueSize() int {
	return len(d.eventChan)
}
