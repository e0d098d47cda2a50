package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjmerc/filesender-client/internal/metrics"
)

// reportProgress reports non-terminal progress, or acknowledges a finished
// file with the server before reporting it complete.
func (t *Transfer) reportProgress(ctx context.Context, f *File, complete bool) error {
	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	snapshot, id, logOn := *f, t.id, t.cfg.Log
	t.mu.Unlock()

	if logOn {
		if complete {
			slog.Info(fmt.Sprintf("File %s (%d bytes) uploaded", snapshot.Name, snapshot.Size))
		} else {
			slog.Info(fmt.Sprintf("Uploading %s (%d bytes) : %.2f%%", snapshot.Name, snapshot.Size, 100*float64(snapshot.Uploaded)/float64(snapshot.Size)))
		}
	}

	if !complete {
		t.notifyProgress(snapshot, false)
		return nil
	}

	err := t.retry.Do(ctx, "file_complete", func(ctx context.Context) error {
		if t.isStopped() {
			return ErrStopped
		}
		return t.transport.FileComplete(ctx, snapshot.ref(id))
	})
	if err != nil {
		if t.isStopped() {
			return ErrStopped
		}
		terr := transportError(KindTransport, err, map[string]any{"operation": "file_complete", "file": snapshot.Name})
		t.reportError(terr)
		return terr
	}

	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	f.acked = true
	snapshot = *f
	strategy := "unknown"
	if t.strategy != nil {
		strategy = t.strategy.Name()
	}
	t.mu.Unlock()

	metrics.FilesCompletedTotal.WithLabelValues(strategy).Inc()
	slog.Debug("file complete", "transfer_id", id, "file_id", snapshot.ID, "name", snapshot.Name, "size", snapshot.Size)

	t.notifyProgress(snapshot, true)
	t.saveDraft(ctx)
	return nil
}

func (t *Transfer) notifyProgress(f File, complete bool) {
	if t.callbacks.OnProgress == nil {
		return
	}
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks.OnProgress(f, complete)
}

// flushCompletions acknowledges files that finished uploading but whose
// completion never reached the server.
func (t *Transfer) flushCompletions(ctx context.Context) error {
	t.mu.Lock()
	var pending []*File
	for _, f := range t.files {
		if f.Complete && !f.acked {
			pending = append(pending, f)
		}
	}
	t.mu.Unlock()

	for _, f := range pending {
		if err := t.reportProgress(ctx, f, true); err != nil {
			return err
		}
	}
	return nil
}

// reportComplete marks the transfer done and acknowledges it.
func (t *Transfer) reportComplete(ctx context.Context) error {
	t.mu.Lock()
	switch t.status {
	case StatusStopped:
		t.mu.Unlock()
		return ErrStopped
	case StatusDone:
		t.mu.Unlock()
		return nil
	}

	t.elapsed = t.elapsedLocked()
	t.status = StatusDone
	t.lifeCancel()
	id, size, elapsed, logOn := t.id, t.size, t.elapsed, t.cfg.Log
	t.mu.Unlock()

	metrics.TransfersTotal.WithLabelValues("done").Inc()
	metrics.TransferDuration.Observe(elapsed.Seconds())

	if logOn {
		slog.Info(fmt.Sprintf("Transfer %s (%d bytes) complete, took %.3fs", id, size, elapsed.Seconds()))
	}

	return t.acknowledgeComplete(ctx)
}

// acknowledgeComplete tells the server the transfer is complete and
// invokes OnComplete.
func (t *Transfer) acknowledgeComplete(ctx context.Context) error {
	t.mu.Lock()
	id, guestToken := t.id, t.guestToken
	t.mu.Unlock()

	err := t.retry.Do(ctx, "transfer_complete", func(ctx context.Context) error {
		if t.isStopped() {
			return ErrStopped
		}
		return t.transport.TransferComplete(ctx, id, guestToken)
	})
	if errors.Is(err, ErrStopped) {
		return ErrStopped
	}
	if err != nil {
		terr := transportError(KindTransport, err, map[string]any{"operation": "transfer_complete"})
		t.reportError(terr)
		return terr
	}

	t.mu.Lock()
	t.completeAcked = true
	elapsed := t.elapsed
	t.mu.Unlock()

	slog.Info("transfer complete", "transfer_id", id, "elapsed", elapsed)

	if t.callbacks.OnComplete != nil {
		t.cbMu.Lock()
		t.callbacks.OnComplete(elapsed)
		t.cbMu.Unlock()
	}

	t.finish(ctx)
	return nil
}

// reportError routes a run-time error to OnError, or to the process-wide
// sink when no callback is set.
func (t *Transfer) reportError(e *Error) {
	t.mu.Lock()
	id, size, logOn := t.id, t.size, t.cfg.Log
	t.mu.Unlock()

	metrics.ErrorsTotal.WithLabelValues(string(e.Kind)).Inc()
	metrics.TransfersTotal.WithLabelValues("failed").Inc()

	if logOn {
		slog.Warn(fmt.Sprintf("Transfer %s (%d bytes) failed", id, size))
	}

	if e.surfaced {
		return
	}

	if t.callbacks.OnError != nil {
		t.cbMu.Lock()
		defer t.cbMu.Unlock()
		t.callbacks.OnError(e)
		return
	}
	DefaultErrorHandler()(e)
}
