// Package utils provides helpers shared by the transfer engine and the CLI.
package utils

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// StopFunc asks a running transfer to stop.
type StopFunc func(ctx context.Context)

// TransferTracker tracks in-progress transfers for graceful shutdown.
// It can stop every active transfer and wait for them to finish.
type TransferTracker struct {
	mu              sync.RWMutex
	activeTransfers map[string]*activeTransfer
	wg              sync.WaitGroup
	shuttingDown    atomic.Bool
	shutdownCh      chan struct{}
}

// activeTransfer represents an in-progress transfer.
type activeTransfer struct {
	Key       string
	StartTime time.Time
	Files     int
	Size      int64
	stop      StopFunc
}

// NewTransferTracker creates a new TransferTracker.
func NewTransferTracker() *TransferTracker {
	return &TransferTracker{
		activeTransfers: make(map[string]*activeTransfer),
		shutdownCh:      make(chan struct{}),
	}
}

// StartTransfer registers a transfer as in-progress and returns its tracking key.
// Returns false if the tracker is shutting down and new transfers are not accepted.
func (tt *TransferTracker) StartTransfer(files int, size int64, stop StopFunc) (string, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	// Check shutdown status inside lock to avoid TOCTOU race condition
	if tt.shuttingDown.Load() {
		return "", false
	}

	key := uuid.New().String()
	tt.activeTransfers[key] = &activeTransfer{
		Key:       key,
		StartTime: time.Now(),
		Files:     files,
		Size:      size,
		stop:      stop,
	}
	tt.wg.Add(1)

	slog.Debug("transfer tracked",
		"tracking_key", key,
		"files", files,
		"size", size,
		"active_transfers", len(tt.activeTransfers),
	)

	return key, true
}

// FinishTransfer marks a transfer as finished (done, stopped or abandoned).
func (tt *TransferTracker) FinishTransfer(key string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if _, exists := tt.activeTransfers[key]; exists {
		delete(tt.activeTransfers, key)
		tt.wg.Done()

		slog.Debug("transfer untracked",
			"tracking_key", key,
			"active_transfers", len(tt.activeTransfers),
		)
	} else {
		slog.Warn("FinishTransfer called for unknown transfer",
			"tracking_key", key,
			"active_transfers", len(tt.activeTransfers),
		)
	}
}

// GetActiveCount returns the number of active transfers.
func (tt *TransferTracker) GetActiveCount() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.activeTransfers)
}

// GetActiveBytes returns the combined size of all active transfers.
func (tt *TransferTracker) GetActiveBytes() int64 {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	var total int64
	for _, a := range tt.activeTransfers {
		total += a.Size
	}
	return total
}

// IsShuttingDown returns true once shutdown has begun.
func (tt *TransferTracker) IsShuttingDown() bool {
	return tt.shuttingDown.Load()
}

// ShutdownCh returns a channel that is closed when shutdown begins.
func (tt *TransferTracker) ShutdownCh() <-chan struct{} {
	return tt.shutdownCh
}

// BeginShutdown rejects new transfers and stops every active one.
func (tt *TransferTracker) BeginShutdown(ctx context.Context) {
	if !tt.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	close(tt.shutdownCh)

	tt.mu.RLock()
	stops := make([]StopFunc, 0, len(tt.activeTransfers))
	for _, a := range tt.activeTransfers {
		if a.stop != nil {
			stops = append(stops, a.stop)
		}
	}
	tt.mu.RUnlock()

	slog.Info("transfer tracker: shutdown initiated, stopping active transfers",
		"active_transfers", len(stops),
	)

	for _, stop := range stops {
		stop(ctx)
	}
}

// WaitForTransfers stops all active transfers and waits for them to finish,
// respecting context cancellation.
// Returns true if all transfers finished, false if the context ended first.
func (tt *TransferTracker) WaitForTransfers(ctx context.Context) bool {
	tt.BeginShutdown(ctx)

	done := make(chan struct{})
	go func() {
		tt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("transfer tracker: all transfers finished")
		return true
	case <-ctx.Done():
		tt.mu.RLock()
		for _, a := range tt.activeTransfers {
			slog.Warn("transfer tracker: abandoned transfer",
				"tracking_key", a.Key,
				"files", a.Files,
				"duration", time.Since(a.StartTime),
			)
		}
		tt.mu.RUnlock()
		return false
	}
}
