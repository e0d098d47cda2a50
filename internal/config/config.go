package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Chunk upload security modes.
const (
	// ChunkUploadSecurityKey embeds the per-file upload key in upload URLs.
	ChunkUploadSecurityKey = "key"
	// ChunkUploadSecurityNone relies on the session alone.
	ChunkUploadSecurityNone = "none"
)

// Retry policies.
const (
	RetryPolicyNone        = "none"
	RetryPolicyConstant    = "constant"
	RetryPolicyExponential = "exponential"
)

// Config holds all transfer engine configuration
type Config struct {
	MaxTransferFiles       int
	MaxTransferSize        int64
	MaxTransferRecipients  int
	BanExtension           string   // Raw comma-separated ban-list as configured
	BannedExtensions       []string // Parsed ban-list, without leading dots
	BanExtensionIgnoreCase bool
	UploadChunkSize        int64
	DefaultDaysValid       int

	LegacyUploadEndpoint        string // Templated with {file_id} and {key}
	ChunkUploadSecurity         string // "key" or "none"
	LegacyProgressRefreshPeriod time.Duration

	TerasenderEnabled     bool
	TerasenderWorkerCount int

	Log bool // Log per-file and per-transfer progress lines

	PausePollInterval time.Duration // Delay between paused-state checks
	StopGraceDelay    time.Duration // Delay before deleting a stopped transfer

	RetryPolicy      string
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	DraftDBPath string // Optional: SQLite file for local drafts ("" = disabled)
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		MaxTransferFiles:       getEnvInt("FILESENDER_MAX_TRANSFER_FILES", 30),
		MaxTransferSize:        getEnvInt64("FILESENDER_MAX_TRANSFER_SIZE", 107374182400), // 100GB default
		MaxTransferRecipients:  getEnvInt("FILESENDER_MAX_TRANSFER_RECIPIENTS", 50),
		BanExtension:           getEnv("FILESENDER_BAN_EXTENSION", "exe,bat"),
		BanExtensionIgnoreCase: getEnvBool("FILESENDER_BAN_EXTENSION_IGNORE_CASE", false),
		UploadChunkSize:        getEnvInt64("FILESENDER_UPLOAD_CHUNK_SIZE", 5242880), // 5MB default
		DefaultDaysValid:       getEnvInt("FILESENDER_DEFAULT_DAYS_VALID", 20),

		LegacyUploadEndpoint:        getEnv("FILESENDER_LEGACY_UPLOAD_ENDPOINT", "/rest.php/file/{file_id}/whole"),
		ChunkUploadSecurity:         getEnv("FILESENDER_CHUNK_UPLOAD_SECURITY", ChunkUploadSecurityKey),
		LegacyProgressRefreshPeriod: time.Duration(getEnvInt("FILESENDER_LEGACY_UPLOAD_PROGRESS_REFRESH_PERIOD", 5)) * time.Second,

		TerasenderEnabled:     getEnvBool("FILESENDER_TERASENDER_ENABLED", false),
		TerasenderWorkerCount: getEnvInt("FILESENDER_TERASENDER_WORKER_COUNT", 4),

		Log: getEnvBool("FILESENDER_LOG", false),

		PausePollInterval: time.Duration(getEnvInt("FILESENDER_PAUSE_POLL_MS", 500)) * time.Millisecond,
		StopGraceDelay:    time.Duration(getEnvInt("FILESENDER_STOP_GRACE_MS", 1000)) * time.Millisecond,

		RetryPolicy:      getEnv("FILESENDER_RETRY_POLICY", RetryPolicyNone),
		RetryMaxAttempts: getEnvInt("FILESENDER_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   time.Duration(getEnvInt("FILESENDER_RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,

		DraftDBPath: getEnv("FILESENDER_DRAFT_DB", ""),
	}
	cfg.BannedExtensions = ParseExtensionList(cfg.BanExtension)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures configuration values are sensible
func (c *Config) Validate() error {
	if c.MaxTransferFiles <= 0 {
		return fmt.Errorf("FILESENDER_MAX_TRANSFER_FILES must be positive, got %d", c.MaxTransferFiles)
	}

	if c.MaxTransferSize <= 0 {
		return fmt.Errorf("FILESENDER_MAX_TRANSFER_SIZE must be positive, got %d", c.MaxTransferSize)
	}

	if c.MaxTransferRecipients <= 0 {
		return fmt.Errorf("FILESENDER_MAX_TRANSFER_RECIPIENTS must be positive, got %d", c.MaxTransferRecipients)
	}

	if c.UploadChunkSize <= 0 {
		return fmt.Errorf("FILESENDER_UPLOAD_CHUNK_SIZE must be positive, got %d", c.UploadChunkSize)
	}

	if c.DefaultDaysValid <= 0 {
		return fmt.Errorf("FILESENDER_DEFAULT_DAYS_VALID must be positive, got %d", c.DefaultDaysValid)
	}

	if c.LegacyUploadEndpoint == "" {
		return fmt.Errorf("FILESENDER_LEGACY_UPLOAD_ENDPOINT cannot be empty")
	}

	if !strings.Contains(c.LegacyUploadEndpoint, "{file_id}") {
		return fmt.Errorf("FILESENDER_LEGACY_UPLOAD_ENDPOINT must contain the {file_id} placeholder")
	}

	if c.ChunkUploadSecurity != ChunkUploadSecurityKey && c.ChunkUploadSecurity != ChunkUploadSecurityNone {
		return fmt.Errorf("FILESENDER_CHUNK_UPLOAD_SECURITY must be %q or %q, got %q", ChunkUploadSecurityKey, ChunkUploadSecurityNone, c.ChunkUploadSecurity)
	}

	if c.LegacyProgressRefreshPeriod <= 0 {
		return fmt.Errorf("FILESENDER_LEGACY_UPLOAD_PROGRESS_REFRESH_PERIOD must be positive, got %s", c.LegacyProgressRefreshPeriod)
	}

	if c.TerasenderWorkerCount <= 0 {
		return fmt.Errorf("FILESENDER_TERASENDER_WORKER_COUNT must be positive, got %d", c.TerasenderWorkerCount)
	}

	if c.PausePollInterval <= 0 {
		return fmt.Errorf("FILESENDER_PAUSE_POLL_MS must be positive, got %s", c.PausePollInterval)
	}

	if c.StopGraceDelay < 0 {
		return fmt.Errorf("FILESENDER_STOP_GRACE_MS cannot be negative, got %s", c.StopGraceDelay)
	}

	switch c.RetryPolicy {
	case RetryPolicyNone:
	case RetryPolicyConstant, RetryPolicyExponential:
		if c.RetryMaxAttempts <= 0 {
			return fmt.Errorf("FILESENDER_RETRY_MAX_ATTEMPTS must be positive, got %d", c.RetryMaxAttempts)
		}
		if c.RetryBaseDelay <= 0 {
			return fmt.Errorf("FILESENDER_RETRY_BASE_DELAY_MS must be positive, got %s", c.RetryBaseDelay)
		}
	default:
		return fmt.Errorf("FILESENDER_RETRY_POLICY must be one of none, constant, exponential, got %q", c.RetryPolicy)
	}

	return nil
}

// ServerSettings carries limits published by the server. Zero values are ignored.
type ServerSettings struct {
	MaxTransferFiles      int
	MaxTransferSize       int64
	MaxTransferRecipients int
	BanExtension          string
	UploadChunkSize       int64
	DefaultDaysValid      int
	ChunkUploadSecurity   string
	TerasenderEnabled     *bool
}

// ApplyServer overlays server-published settings on the local configuration.
func (c *Config) ApplyServer(s ServerSettings) {
	if s.MaxTransferFiles > 0 {
		c.MaxTransferFiles = s.MaxTransferFiles
	}
	if s.MaxTransferSize > 0 {
		c.MaxTransferSize = s.MaxTransferSize
	}
	if s.MaxTransferRecipients > 0 {
		c.MaxTransferRecipients = s.MaxTransferRecipients
	}
	if s.BanExtension != "" {
		c.BanExtension = s.BanExtension
		c.BannedExtensions = ParseExtensionList(s.BanExtension)
	}
	if s.UploadChunkSize > 0 {
		c.UploadChunkSize = s.UploadChunkSize
	}
	if s.DefaultDaysValid > 0 {
		c.DefaultDaysValid = s.DefaultDaysValid
	}
	if s.ChunkUploadSecurity != "" {
		c.ChunkUploadSecurity = s.ChunkUploadSecurity
	}
	if s.TerasenderEnabled != nil {
		c.TerasenderEnabled = *s.TerasenderEnabled
	}
}

// ParseExtensionList splits a comma-separated ban-list. Whitespace and
// leading dots are removed; case is preserved.
func ParseExtensionList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimPrefix(strings.Join(strings.Fields(part), ""), ".")
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
