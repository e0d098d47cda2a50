package config

import "sync"

// Capabilities describes what the execution environment supports and
// selects the upload strategy. Flags are safe for concurrent use.
type Capabilities struct {
	mu sync.RWMutex

	supportsReader    bool   // Byte-range reads of sources (chunked upload)
	supportsWorkers   bool   // Concurrent workers (parallel chunked upload)
	terasenderEnabled bool   // Parallel uploader switched on by configuration
	trackingKey       string // Legacy upload progress tracking key ("" = none)
}

// NewCapabilities returns capabilities for a full-featured environment:
// chunked reads and workers available, parallel upload as configured.
func NewCapabilities(cfg *Config) *Capabilities {
	return &Capabilities{
		supportsReader:    true,
		supportsWorkers:   true,
		terasenderEnabled: cfg.TerasenderEnabled,
	}
}

// SupportsReader returns whether sources can be read in byte ranges.
func (c *Capabilities) SupportsReader() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsReader
}

// SupportsWorkers returns whether concurrent workers are available.
func (c *Capabilities) SupportsWorkers() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsWorkers
}

// IsTerasenderEnabled returns whether the parallel uploader is enabled.
func (c *Capabilities) IsTerasenderEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.terasenderEnabled
}

// TrackingKey returns the legacy upload progress tracking key.
func (c *Capabilities) TrackingKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trackingKey
}

// SetSupportsReader enables or disables chunked reads.
func (c *Capabilities) SetSupportsReader(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportsReader = enabled
}

// SetSupportsWorkers enables or disables concurrent workers.
func (c *Capabilities) SetSupportsWorkers(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportsWorkers = enabled
}

// SetTerasenderEnabled enables or disables the parallel uploader.
func (c *Capabilities) SetTerasenderEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terasenderEnabled = enabled
}

// SetTrackingKey sets the legacy upload progress tracking key.
func (c *Capabilities) SetTrackingKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackingKey = key
}

// UseParallel reports whether the parallel chunked uploader should run.
func (c *Capabilities) UseParallel() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsReader && c.terasenderEnabled && c.supportsWorkers
}

// UseLegacy reports whether whole-file legacy upload must be used.
func (c *Capabilities) UseLegacy() bool {
	return !c.SupportsReader()
}
