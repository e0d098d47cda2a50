// Package webhooks notifies external services about the outcome of transfers.
package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType represents the type of webhook event
type EventType string

const (
	EventTransferCompleted EventType = "transfer.completed"
	EventTransferFailed    EventType = "transfer.failed"
	EventTransferStopped   EventType = "transfer.stopped"
)

// AllEvents lists every event type, in emission order of a transfer's life.
var AllEvents = []EventType{EventTransferCompleted, EventTransferFailed, EventTransferStopped}

// WebhookFormat represents the format/protocol for webhook payloads
type WebhookFormat string

const (
	FormatJSON    WebhookFormat = "json"    // Default JSON event format
	FormatGotify  WebhookFormat = "gotify"  // Gotify notification format
	FormatNtfy    WebhookFormat = "ntfy"    // ntfy.sh notification format
	FormatDiscord WebhookFormat = "discord" // Discord webhook format
)

// ValidateFormat checks if a webhook format is valid
func ValidateFormat(format string) bool {
	switch WebhookFormat(format) {
	case FormatJSON, FormatGotify, FormatNtfy, FormatDiscord:
		return true
	default:
		return false
	}
}

// Config represents a webhook endpoint
type Config struct {
	URL          string        `json:"url"`
	Secret       string        `json:"secret"`
	ServiceToken string        `json:"service_token,omitempty"` // Authentication token for services (Gotify, ntfy)
	Events       []EventType   `json:"events"`                  // Empty subscribes to every event
	Format       WebhookFormat `json:"format"`
	MaxRetries   int           `json:"max_retries"`
	Timeout      time.Duration `json:"timeout"`
}

// Validate checks the endpoint configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("webhook URL must use http or https, got %q", c.URL)
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if !ValidateFormat(string(c.Format)) {
		return fmt.Errorf("unsupported webhook format %q (use json, gotify, ntfy or discord)", c.Format)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("webhook max retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}

// SubscribedTo checks if a config is subscribed to an event type
func (c *Config) SubscribedTo(eventType EventType) bool {
	if len(c.Events) == 0 {
		return true
	}
	for _, event := range c.Events {
		if event == eventType {
			return true
		}
	}
	return false
}

// ParseEvents parses a comma-separated list of event types.
func ParseEvents(value string) ([]EventType, error) {
	var events []EventType
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		known := false
		for _, e := range AllEvents {
			if string(e) == part {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown webhook event %q", part)
		}
		events = append(events, EventType(part))
	}
	return events, nil
}

// DeliveryStatus represents the status of a webhook delivery
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Event represents a webhook event to be delivered
type Event struct {
	Type      EventType    `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Transfer  TransferData `json:"transfer"`
}

// TransferData represents transfer metadata in webhook payloads
type TransferData struct {
	ID         string    `json:"id"`
	Files      []string  `json:"files"`
	Size       int64     `json:"size"`
	Uploaded   int64     `json:"uploaded"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject,omitempty"`
	Expires    time.Time `json:"expires"`
	Elapsed    float64   `json:"elapsed_seconds"`
	Error      *string   `json:"error,omitempty"` // For transfer.failed events
}

// ToJSON converts an Event to JSON string
func (e *Event) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
