package transfer

import (
	"context"
	"time"

	"github.com/fjmerc/filesender-client/internal/metrics"
	"github.com/fjmerc/filesender-client/internal/storage"
)

// sequentialStrategy uploads chunks one at a time, in file order and then
// offset order. Pause and stop are observed at the head of each iteration.
type sequentialStrategy struct {
	t *Transfer
}

func (s *sequentialStrategy) Name() string { return "sequential" }

func (s *sequentialStrategy) Pause()  {}
func (s *sequentialStrategy) Resume() {}
func (s *sequentialStrategy) Stop()   {}

func (s *sequentialStrategy) Run(ctx, life context.Context) error {
	t := s.t

	if err := t.flushCompletions(ctx); err != nil {
		return err
	}

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
		offset := f.Uploaded
		length := chunkLength(f.Size, offset, t.cfg.UploadChunkSize)
		ref, src := f.ref(t.id), f.source
		t.mu.Unlock()

		data, err := storage.ReadRange(src, offset, length)
		if err != nil {
			terr := transportError(KindSourceRead, err, map[string]any{"file": ref.Name, "offset": offset})
			t.reportError(terr)
			return terr
		}

		start := time.Now()
		err = t.retry.Do(ctx, "put_chunk", func(ctx context.Context) error {
			if err := t.checkpoint(life); err != nil {
				return err
			}
			return t.transport.PutChunk(ctx, ref, data, offset)
		})
		if err != nil {
			if t.isStopped() {
				return ErrStopped
			}
			terr := transportError(KindTransport, err, map[string]any{"operation": "put_chunk", "file": ref.Name, "offset": offset})
			t.reportError(terr)
			return terr
		}
		metrics.ChunkUploadDuration.Observe(time.Since(start).Seconds())

		t.mu.Lock()
		if t.status == StatusStopped {
			t.mu.Unlock()
			return ErrStopped
		}
		f.advance(offset + length)
		last := f.Uploaded >= f.Size
		if last {
			f.Complete = true
			t.fileIndex++
		}
		t.mu.Unlock()

		metrics.ChunksTotal.WithLabelValues(s.Name()).Inc()
		metrics.BytesUploadedTotal.Add(float64(length))

		if err := t.reportProgress(ctx, f, last); err != nil {
			return err
		}
	}
}
