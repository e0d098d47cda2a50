package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MockMetricsRecorder implements MetricsRecorder for testing
type MockMetricsRecorder struct {
	mu            sync.Mutex
	events        int
	deliveries    map[string]int
	retries       int
	droppedEvents int
	queueSize     int
}

func newMockMetrics() *MockMetricsRecorder {
	return &MockMetricsRecorder{deliveries: make(map[string]int)}
}

func (m *MockMetricsRecorder) RecordEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

func (m *MockMetricsRecorder) RecordDelivery(eventType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[status]++
}

func (m *MockMetricsRecorder) RecordDeliveryDuration(eventType string, duration time.Duration) {}

func (m *MockMetricsRecorder) RecordRetry(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *MockMetricsRecorder) RecordDroppedEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedEvents++
}

func (m *MockMetricsRecorder) SetQueueSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueSize = size
}

func (m *MockMetricsRecorder) snapshot() (events, success, failed, retries, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, m.deliveries[string(DeliveryStatusSuccess)], m.deliveries[string(DeliveryStatusFailed)], m.retries, m.droppedEvents
}

func sampleEvent(eventType EventType) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Transfer: TransferData{
			ID:         "42",
			Files:      []string{"a.txt", "b.txt"},
			Size:       2048,
			Uploaded:   2048,
			Recipients: []string{"alice@example.org"},
			Expires:    time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
			Elapsed:    1.5,
		},
	}
}

func TestDispatcher_DeliversSubscribedEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Events = []EventType{EventTransferCompleted}

	metrics := newMockMetrics()
	d := NewDispatcher([]*Config{cfg}, server.Client(), 2, 10, metrics)
	d.Start()

	d.Emit(sampleEvent(EventTransferCompleted))
	d.Emit(sampleEvent(EventTransferStopped))

	if !d.Shutdown(context.Background()) {
		t.Fatal("Shutdown() did not drain the queue")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Type != EventTransferCompleted || received[0].Transfer.ID != "42" {
		t.Errorf("received = %+v, want one transfer.completed event", received)
	}

	events, success, _, _, _ := metrics.snapshot()
	if events != 2 || success != 1 {
		t.Errorf("metrics events=%d success=%d, want 2 and 1", events, success)
	}
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3

	metrics := newMockMetrics()
	d := NewDispatcher([]*Config{cfg}, server.Client(), 1, 1, metrics)
	d.retryDelay = func(int) time.Duration { return time.Millisecond }
	d.Start()

	d.Emit(sampleEvent(EventTransferFailed))
	d.Shutdown(context.Background())

	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	_, success, failed, retries, _ := metrics.snapshot()
	if success != 1 || failed != 0 || retries != 2 {
		t.Errorf("success=%d failed=%d retries=%d, want 1, 0, 2", success, failed, retries)
	}
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2

	metrics := newMockMetrics()
	d := NewDispatcher([]*Config{cfg}, server.Client(), 1, 1, metrics)
	d.retryDelay = func(int) time.Duration { return time.Millisecond }
	d.Start()

	d.Emit(sampleEvent(EventTransferCompleted))
	d.Shutdown(context.Background())

	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
	if _, _, failed, _, _ := metrics.snapshot(); failed != 1 {
		t.Errorf("failed deliveries = %d, want 1", failed)
	}
}

func TestDispatcher_ShutdownTimeoutAbortsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 10

	d := NewDispatcher([]*Config{cfg}, server.Client(), 1, 1, newMockMetrics())
	d.retryDelay = func(int) time.Duration { return time.Hour }
	d.Start()
	d.Emit(sampleEvent(EventTransferCompleted))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if d.Shutdown(ctx) {
		t.Error("Shutdown() reported a drained queue while a retry was pending")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Shutdown() took %s", elapsed)
	}
}

func TestDispatcher_DropsEvents(t *testing.T) {
	metrics := newMockMetrics()
	d := NewDispatcher(nil, nil, 1, 1, metrics)

	// Not started: the second event overflows the buffer
	d.Emit(sampleEvent(EventTransferCompleted))
	d.Emit(sampleEvent(EventTransferCompleted))

	if d.GetQueueSize() != 1 {
		t.Errorf("GetQueueSize() = %d, want 1", d.GetQueueSize())
	}

	d.Start()
	d.Shutdown(context.Background())
	d.Shutdown(context.Background())

	// Emitting after shutdown is dropped, not a panic
	d.Emit(sampleEvent(EventTransferCompleted))

	if _, _, _, _, dropped := metrics.snapshot(); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
}
