package transfer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fjmerc/filesender-client/internal/metrics"
	"github.com/fjmerc/filesender-client/internal/storage"
)

// chunkJob is one chunk handed to a worker.
type chunkJob struct {
	file   *File
	ref    FileRef
	src    storage.Source
	offset int64
	length int64
}

// gate blocks workers while the transfer is paused.
type gate struct {
	mu   sync.Mutex
	open chan struct{}
}

func newGate() *gate {
	ch := make(chan struct{})
	close(ch)
	return &gate{open: ch}
}

// shut makes subsequent waits block until reopen.
func (g *gate) shut() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.open:
		g.open = make(chan struct{})
	default:
	}
}

func (g *gate) reopen() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.open:
	default:
		close(g.open)
	}
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.open
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parallelStrategy uploads chunks with a pool of workers. Chunks may be
// acknowledged out of order; a file is complete once all of its chunks are.
type parallelStrategy struct {
	t       *Transfer
	workers int
	gate    *gate

	// done holds acknowledged chunk offsets per file. Guarded by t.mu.
	done map[*File]map[int64]bool
}

func newParallelStrategy(t *Transfer, workers int) *parallelStrategy {
	if workers < 1 {
		workers = 1
	}
	return &parallelStrategy{
		t:       t,
		workers: workers,
		gate:    newGate(),
		done:    make(map[*File]map[int64]bool),
	}
}

func (s *parallelStrategy) Name() string { return "parallel" }

func (s *parallelStrategy) Pause()  { s.gate.shut() }
func (s *parallelStrategy) Resume() { s.gate.reopen() }

// Stop leaves the gate shut; waiting workers exit with the life context.
func (s *parallelStrategy) Stop() { s.gate.shut() }

func (s *parallelStrategy) Run(ctx, life context.Context) error {
	t := s.t

	if err := t.flushCompletions(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.status == StatusPaused {
		s.gate.shut()
	}
	jobs := s.pendingJobsLocked()
	t.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	// Waits end on stop, on done, or when a sibling worker fails.
	wctx, cancel := context.WithCancel(gctx)
	defer cancel()
	stopAfter := context.AfterFunc(life, cancel)
	defer stopAfter()

	queue := make(chan chunkJob)
	var uploaded atomic.Int64

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-wctx.Done():
				return nil
			}
		}
		return nil
	})

	for range s.workers {
		g.Go(func() error {
			for job := range queue {
				if err := s.gate.wait(wctx); err != nil {
					return t.errStoppedOr(err)
				}
				if t.isStopped() {
					return ErrStopped
				}
				if err := s.upload(gctx, life, job); err != nil {
					return err
				}
				uploaded.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if t.isStopped() {
		return ErrStopped
	}
	if int(uploaded.Load()) != len(jobs) {
		return t.errStoppedOr(context.Cause(wctx))
	}

	return t.reportComplete(ctx)
}

// pendingJobsLocked lists the chunks not yet acknowledged, in file order.
func (s *parallelStrategy) pendingJobsLocked() []chunkJob {
	t := s.t
	chunkSize := t.cfg.UploadChunkSize

	var jobs []chunkJob
	for _, f := range t.files {
		if f.Complete {
			continue
		}
		acked := s.done[f]
		for offset := int64(0); offset < f.Size; offset += chunkSize {
			if acked[offset] {
				continue
			}
			jobs = append(jobs, chunkJob{
				file:   f,
				ref:    f.ref(t.id),
				src:    f.source,
				offset: offset,
				length: chunkLength(f.Size, offset, chunkSize),
			})
		}
	}
	return jobs
}

// upload sends one chunk. Failures caused by a sibling cancelling the
// group are returned without being reported.
func (s *parallelStrategy) upload(ctx, life context.Context, job chunkJob) error {
	t := s.t

	data, err := storage.ReadRange(job.src, job.offset, job.length)
	if err != nil {
		terr := transportError(KindSourceRead, err, map[string]any{"file": job.ref.Name, "offset": job.offset})
		t.reportError(terr)
		return terr
	}

	start := time.Now()
	err = t.retry.Do(ctx, "put_chunk", func(ctx context.Context) error {
		if err := t.checkpoint(life); err != nil {
			return err
		}
		return t.transport.PutChunk(ctx, job.ref, data, job.offset)
	})
	if err != nil {
		if t.isStopped() {
			return ErrStopped
		}
		if ctx.Err() != nil {
			return err
		}
		terr := transportError(KindTransport, err, map[string]any{"operation": "put_chunk", "file": job.ref.Name, "offset": job.offset})
		t.reportError(terr)
		return terr
	}
	metrics.ChunkUploadDuration.Observe(time.Since(start).Seconds())

	t.mu.Lock()
	if t.status == StatusStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	acked := s.done[job.file]
	if acked == nil {
		acked = make(map[int64]bool)
		s.done[job.file] = acked
	}
	acked[job.offset] = true
	job.file.advance(job.file.Uploaded + job.length)

	complete := job.file.Uploaded >= job.file.Size
	if complete {
		job.file.Complete = true
		for t.fileIndex < len(t.files) && t.files[t.fileIndex].Complete {
			t.fileIndex++
		}
	}
	t.mu.Unlock()

	metrics.ChunksTotal.WithLabelValues(s.Name()).Inc()
	metrics.BytesUploadedTotal.Add(float64(job.length))

	return t.reportProgress(ctx, job.file, complete)
}
