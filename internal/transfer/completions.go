package transfer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownCompletion is returned when a result arrives for a key that
// has no pending submission.
var ErrUnknownCompletion = errors.New("no pending legacy submission")

// Completions correlates legacy whole-file submissions with their results.
// Each key is single-use: it is removed on delivery or cancellation.
type Completions struct {
	mu      sync.Mutex
	pending map[string]chan LegacyResult
}

// NewCompletions creates an empty registry.
func NewCompletions() *Completions {
	return &Completions{pending: make(map[string]chan LegacyResult)}
}

// CallbackKey returns the registry key for a transfer/file pair.
func CallbackKey(transferID, fileID string) string {
	return fmt.Sprintf("transfer_%s_%s", transferID, fileID)
}

// Register creates the completion channel for key.
func (c *Completions) Register(key string) (<-chan LegacyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[key]; exists {
		return nil, fmt.Errorf("legacy submission %s already pending", key)
	}

	ch := make(chan LegacyResult, 1)
	c.pending[key] = ch
	return ch, nil
}

// Deliver hands result to the submission registered under key.
func (c *Completions) Deliver(key string, result LegacyResult) error {
	c.mu.Lock()
	ch, ok := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCompletion, key)
	}

	ch <- result
	return nil
}

// Cancel drops a pending submission. Later deliveries fail.
func (c *Completions) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

// Pending returns the number of submissions awaiting a result.
func (c *Completions) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
