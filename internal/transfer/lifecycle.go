package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjmerc/filesender-client/internal/metrics"
)

// Start re-validates the transfer and begins uploading in the background.
// Validation failures are passed to h and returned before any network call.
// ctx governs the network calls of the run; use Stop to end it.
func (t *Transfer) Start(ctx context.Context, h ErrorHandler) error {
	t.mu.Lock()

	if t.status != StatusNew {
		t.mu.Unlock()
		return ErrInvalidState
	}

	if verr := validateStart(&t.cfg, t.files, t.size, t.expires, t.now()); verr != nil {
		t.mu.Unlock()
		resolveHandler(h)(verr)
		return verr
	}

	t.status = StatusRunning
	t.startTime = t.now()
	t.startHandler = h
	t.lifeCtx, t.lifeCancel = context.WithCancel(context.WithoutCancel(ctx))

	if t.tracker != nil {
		key, ok := t.tracker.StartTransfer(len(t.files), t.size, func(ctx context.Context) {
			if err := t.Stop(ctx, nil); err != nil {
				slog.Debug("tracker stop ignored", "error", err)
			}
		})
		if !ok {
			t.status = StatusNew
			t.lifeCancel()
			t.mu.Unlock()
			return ErrStopped
		}
		t.trackingID = key
	}

	size := t.size
	t.launchLocked(ctx)
	t.mu.Unlock()

	metrics.TransfersTotal.WithLabelValues("started").Inc()
	metrics.TransferSizeBytes.Observe(float64(size))

	return nil
}

// launchLocked starts a run goroutine. t.mu must be held.
func (t *Transfer) launchLocked(ctx context.Context) {
	done := make(chan struct{})
	t.runDone = done
	t.runErr = nil

	go func() {
		defer close(done)
		err := t.execute(ctx)

		t.mu.Lock()
		t.runErr = err
		t.mu.Unlock()
	}()
}

// execute registers the transfer if needed and runs the upload strategy.
func (t *Transfer) execute(ctx context.Context) error {
	t.mu.Lock()
	registered, status, acked := t.registered, t.status, t.completeAcked
	t.mu.Unlock()

	if status == StatusDone && !acked {
		return t.acknowledgeComplete(ctx)
	}

	if !registered {
		if err := t.register(ctx); err != nil {
			return err
		}
	}

	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.strategy == nil {
		t.strategy = t.selectStrategyLocked()
	}
	strategy, lifeCtx := t.strategy, t.lifeCtx
	t.mu.Unlock()

	// Scheduled waits end with the transfer or with the caller's context.
	life, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(lifeCtx, cancel)
	defer stopAfter()

	slog.Debug("upload strategy selected", "transfer_id", t.ID(), "strategy", strategy.Name())
	return strategy.Run(ctx, life)
}

// register submits the transfer metadata and matches server file records.
func (t *Transfer) register(ctx context.Context) error {
	t.mu.Lock()
	reg := Registration{
		From:       t.from,
		Recipients: append([]string(nil), t.recipients...),
		Subject:    t.subject,
		Message:    t.message,
		Expires:    t.expires,
		Options:    make(map[string]any, len(t.options)),
		GuestToken: t.guestToken,
	}
	for k, v := range t.options {
		reg.Options[k] = v
	}
	for _, f := range t.files {
		reg.Files = append(reg.Files, f.descriptor())
	}
	t.mu.Unlock()

	var resp *RegisteredTransfer
	err := t.retry.Do(ctx, "post_transfer", func(ctx context.Context) error {
		if t.isStopped() {
			return ErrStopped
		}
		var err error
		resp, err = t.transport.PostTransfer(ctx, reg)
		return err
	})
	if errors.Is(err, ErrStopped) {
		return ErrStopped
	}
	if err != nil {
		terr := transportError(KindTransport, err, map[string]any{"operation": "post_transfer"})
		t.reportError(terr)
		return terr
	}

	t.mu.Lock()
	if t.status == StatusStopped {
		// Keep the id so the pending delete can clean up server-side.
		t.id = resp.ID
		t.mu.Unlock()
		return ErrStopped
	}

	if perr := matchServerFiles(t.files, resp.Files); perr != nil {
		t.mu.Unlock()
		metrics.ErrorsTotal.WithLabelValues(string(perr.Kind)).Inc()
		resolveHandler(t.startHandler)(perr)
		return perr
	}

	t.id = resp.ID
	t.registered = true
	t.mu.Unlock()

	slog.Info("transfer registered", "transfer_id", resp.ID, "path", resp.Path, "files", len(reg.Files))
	t.saveDraft(ctx)
	return nil
}

// matchServerFiles assigns server ids by cid, falling back to (name, size).
// The first unmatched file yields a file_not_in_response error.
func matchServerFiles(files []*File, records []ServerFile) *Error {
	for _, f := range files {
		var match *ServerFile
		for i := range records {
			r := &records[i]
			if r.CID != "" && r.CID == f.CID {
				match = r
				break
			}
		}
		if match == nil {
			for i := range records {
				r := &records[i]
				if r.Name == f.Name && r.Size == f.Size {
					match = r
					break
				}
			}
		}
		if match == nil || match.ID == "" {
			return newError(KindFileNotInResponse, map[string]any{"file": f.Name, "cid": f.CID})
		}
		f.ID = match.ID
		f.UID = match.UID
	}
	return nil
}

// Pause suspends uploading. Only valid while running.
func (t *Transfer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusRunning {
		return ErrInvalidState
	}

	t.pauseTime = t.now()
	t.status = StatusPaused
	if t.strategy != nil {
		t.strategy.Pause()
	}

	slog.Debug("transfer paused", "transfer_id", t.id)
	return nil
}

// Resume continues a paused transfer.
func (t *Transfer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPaused {
		return ErrInvalidState
	}

	t.pauseLength += t.now().Sub(t.pauseTime)
	t.status = StatusRunning
	if t.strategy != nil {
		t.strategy.Resume()
	}

	slog.Debug("transfer resumed", "transfer_id", t.id)
	return nil
}

// Stop halts the transfer immediately. After the configured grace delay
// and once the upload goroutine has exited, the server-side transfer is
// deleted and callback (if any) receives the outcome.
func (t *Transfer) Stop(ctx context.Context, callback func(error)) error {
	t.mu.Lock()

	if t.status != StatusRunning && t.status != StatusPaused {
		t.mu.Unlock()
		return ErrInvalidState
	}

	t.status = StatusStopped
	if t.strategy != nil {
		t.strategy.Stop()
	}
	t.lifeCancel()
	runDone := t.runDone
	grace := t.cfg.StopGraceDelay
	t.mu.Unlock()

	metrics.TransfersTotal.WithLabelValues("stopped").Inc()

	go func() {
		err := t.deleteAfter(ctx, grace, runDone)
		t.finish(ctx)
		if callback != nil {
			callback(err)
		}
	}()

	return nil
}

// deleteAfter waits for the grace delay and the run goroutine, then
// deletes the server-side transfer if one was registered.
func (t *Transfer) deleteAfter(ctx context.Context, grace time.Duration, runDone <-chan struct{}) error {
	if !sleep(ctx, grace) {
		return ctx.Err()
	}

	if runDone != nil {
		select {
		case <-runDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	id := t.ID()
	if id == "" {
		return nil
	}

	err := t.retry.Do(ctx, "delete_transfer", func(ctx context.Context) error {
		return t.transport.DeleteTransfer(ctx, id)
	})
	if err != nil {
		slog.Warn("failed to delete stopped transfer", "transfer_id", id, "error", err)
		return err
	}

	slog.Info("transfer deleted", "transfer_id", id)
	return nil
}

// Retry restarts a run that halted on an error, continuing from the
// current position. It is also valid after a failed completion
// acknowledgement.
func (t *Transfer) Retry(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case StatusRunning, StatusPaused:
	case StatusDone:
		if t.completeAcked {
			return ErrInvalidState
		}
	default:
		return ErrInvalidState
	}

	if t.runDone != nil {
		select {
		case <-t.runDone:
		default:
			return ErrInvalidState // still running
		}
	}

	slog.Info("retrying transfer", "transfer_id", t.id, "status", t.status)
	t.launchLocked(ctx)
	return nil
}

// Wait blocks until the current run ends and returns its outcome: nil
// when done, ErrStopped when stopped, or the error that halted it.
func (t *Transfer) Wait(ctx context.Context) error {
	t.mu.Lock()
	runDone := t.runDone
	t.mu.Unlock()

	if runDone == nil {
		return ErrNotStarted
	}

	select {
	case <-runDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runErr == nil && t.status == StatusStopped {
		return ErrStopped
	}
	return t.runErr
}

// finish releases the tracker slot and the local draft.
func (t *Transfer) finish(ctx context.Context) {
	t.mu.Lock()
	tracker, key := t.tracker, t.trackingID
	t.trackingID = ""
	t.mu.Unlock()

	if tracker != nil && key != "" {
		tracker.FinishTransfer(key)
	}
	t.deleteDraft(ctx)
}

// isStopped reports whether the transfer was stopped.
func (t *Transfer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusStopped
}

// errStoppedOr returns ErrStopped if the transfer was stopped, else err.
func (t *Transfer) errStoppedOr(err error) error {
	if t.isStopped() {
		return ErrStopped
	}
	return err
}
