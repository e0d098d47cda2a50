package transfer

import (
	"context"
)

// Strategy drives the upload of a registered transfer.
type Strategy interface {
	Name() string
	// Run uploads until every file is complete, the transfer is stopped,
	// or an error halts it. ctx governs network calls. life governs
	// scheduled waits and ends when the transfer is stopped or done.
	// Run may be called again after it returned an error.
	Run(ctx, life context.Context) error
	Pause()
	Resume()
	Stop()
}

// selectStrategyLocked picks the strategy from the capability flags.
func (t *Transfer) selectStrategyLocked() Strategy {
	switch {
	case t.caps.UseLegacy():
		return &legacyStrategy{t: t}
	case t.caps.UseParallel():
		return newParallelStrategy(t, t.cfg.TerasenderWorkerCount)
	default:
		return &sequentialStrategy{t: t}
	}
}

// checkpoint blocks while the transfer is paused, polling at the
// configured interval. It returns ErrStopped once stopped.
func (t *Transfer) checkpoint(life context.Context) error {
	for {
		t.mu.Lock()
		status, poll := t.status, t.cfg.PausePollInterval
		t.mu.Unlock()

		switch status {
		case StatusStopped:
			return ErrStopped
		case StatusPaused:
			if !sleep(life, poll) {
				return t.errStoppedOr(life.Err())
			}
		default:
			return nil
		}
	}
}

// chunkLength returns the size of the chunk starting at offset.
func chunkLength(size, offset, chunkSize int64) int64 {
	if remaining := size - offset; remaining < chunkSize {
		return remaining
	}
	return chunkSize
}
