package transfer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/metrics"
	"github.com/fjmerc/filesender-client/internal/utils"
)

var errLegacyUnavailable = errors.New("legacy upload frame not configured")

// legacyStrategy uploads each file whole through a LegacyFrame and waits
// for the result on Completions. When the server hands out a tracking
// key, progress is polled while a file is in flight.
type legacyStrategy struct {
	t *Transfer

	mu      sync.Mutex
	tracked *File
}

func (s *legacyStrategy) Name() string { return "legacy" }

// Pause takes effect between files; a submitted file cannot be suspended.
func (s *legacyStrategy) Pause()  {}
func (s *legacyStrategy) Resume() {}
func (s *legacyStrategy) Stop()   {}

func (s *legacyStrategy) Run(ctx, life context.Context) error {
	t := s.t

	if t.legacyFrame == nil || t.completions == nil {
		terr := transportError(KindLegacyUpload, errLegacyUnavailable, nil)
		t.reportError(terr)
		return terr
	}

	if err := t.flushCompletions(ctx); err != nil {
		return err
	}

	trackingKey := t.caps.TrackingKey()
	if trackingKey != "" {
		cancel, exited := every(life, t.cfg.LegacyProgressRefreshPeriod, func(pctx context.Context) {
			s.poll(pctx, trackingKey)
		})
		defer func() {
			cancel()
			<-exited
		}()
	}
	defer s.track(nil)

	for {
		if err := t.checkpoint(life); err != nil {
			return err
		}

		t.mu.Lock()
		if t.fileIndex >= len(t.files) {
			t.mu.Unlock()
			return t.reportComplete(ctx)
		}
		f := t.files[t.fileIndex]
		id, ref, src := t.id, f.ref(t.id), f.source
		t.mu.Unlock()

		if err := s.uploadFile(ctx, life, f, LegacySubmission{
			TransferID:  id,
			File:        ref,
			Source:      src,
			URL:         legacyURL(&t.cfg, ref, CallbackKey(id, ref.ID)),
			CallbackKey: CallbackKey(id, ref.ID),
			TrackingKey: trackingKey,
		}); err != nil {
			return err
		}

		if err := t.reportProgress(ctx, f, true); err != nil {
			return err
		}
	}
}

// uploadFile submits one file and waits for its result.
func (s *legacyStrategy) uploadFile(ctx, life context.Context, f *File, sub LegacySubmission) error {
	t := s.t

	results, err := t.completions.Register(sub.CallbackKey)
	if err != nil {
		terr := transportError(KindLegacyUpload, err, map[string]any{"file": sub.File.Name})
		t.reportError(terr)
		return terr
	}

	s.track(f)
	slog.Debug("submitting whole file",
		"transfer_id", sub.TransferID,
		"file_id", sub.File.ID,
		"size", sub.File.Size,
		"url", utils.MaskURLKey(sub.URL))

	if err := t.legacyFrame.Submit(life, sub); err != nil {
		t.completions.Cancel(sub.CallbackKey)
		if t.isStopped() {
			return ErrStopped
		}
		terr := transportError(KindLegacyUpload, err, map[string]any{"file": sub.File.Name})
		t.reportError(terr)
		return terr
	}

	var res LegacyResult
	select {
	case res = <-results:
	case <-life.Done():
		t.completions.Cancel(sub.CallbackKey)
		return t.errStoppedOr(life.Err())
	}
	s.track(nil)

	if res.IsError() {
		// The failure reaches the process-wide sink even when OnError is
		// set; the transfer stays running so Retry can resubmit.
		lerr := newError(KindLegacyUpload, map[string]any{"file": sub.File.Name, "message": res.Message, "uid": res.UID})
		DefaultErrorHandler()(lerr)
		lerr.surfaced = true
		t.reportError(lerr)
		return lerr
	}

	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	f.advance(f.Size)
	f.Complete = true
	t.fileIndex++
	t.mu.Unlock()

	metrics.BytesUploadedTotal.Add(float64(f.Size))
	return nil
}

func (s *legacyStrategy) track(f *File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = f
}

// poll fetches server-side progress for the file in flight. Progress only
// moves forward and is never reported as terminal.
func (s *legacyStrategy) poll(ctx context.Context, trackingKey string) {
	t := s.t

	s.mu.Lock()
	f := s.tracked
	s.mu.Unlock()
	if f == nil {
		return
	}

	p, err := t.transport.GetLegacyUploadProgress(ctx, trackingKey)
	if err != nil {
		slog.Debug("legacy upload progress unavailable", "error", err)
		return
	}
	if p == nil {
		return
	}

	s.mu.Lock()
	current := s.tracked
	s.mu.Unlock()

	// Never terminal before the frame reports the result.
	target := min(p.BytesProcessed, f.Size-1)

	t.mu.Lock()
	if current != f || f.Complete || t.status == StatusStopped || target <= f.Uploaded {
		t.mu.Unlock()
		return
	}
	f.advance(target)
	t.mu.Unlock()

	if err := t.reportProgress(ctx, f, false); err != nil {
		slog.Debug("legacy progress report skipped", "error", err)
	}
}

// legacyURL resolves the whole-file endpoint template for ref and appends
// the callback parameter.
func legacyURL(cfg *config.Config, ref FileRef, callbackKey string) string {
	u := strings.ReplaceAll(cfg.LegacyUploadEndpoint, "{file_id}", ref.ID)
	if cfg.ChunkUploadSecurity == config.ChunkUploadSecurityKey {
		u = strings.ReplaceAll(u, "{key}", url.QueryEscape(ref.UID))
	}

	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "iframe_callback=" + url.QueryEscape(callbackKey)
}
