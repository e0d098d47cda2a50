package webhooks

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"json", true},
		{"gotify", true},
		{"ntfy", true},
		{"discord", true},
		{"slack", false},
		{"", false},
		{"JSON", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := ValidateFormat(tt.format); got != tt.want {
				t.Errorf("ValidateFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults applied", Config{URL: "https://hooks.example.org/x"}, false},
		{"missing URL", Config{}, true},
		{"bad scheme", Config{URL: "ftp://hooks.example.org"}, true},
		{"bad format", Config{URL: "https://hooks.example.org", Format: "slack"}, true},
		{"negative retries", Config{URL: "https://hooks.example.org", MaxRetries: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (cfg.Format != FormatJSON || cfg.Timeout != 10*time.Second) {
				t.Errorf("defaults not applied: %+v", cfg)
			}
		})
	}
}

func TestConfig_SubscribedTo(t *testing.T) {
	all := &Config{}
	for _, e := range AllEvents {
		if !all.SubscribedTo(e) {
			t.Errorf("empty event list should subscribe to %s", e)
		}
	}

	some := &Config{Events: []EventType{EventTransferFailed}}
	if !some.SubscribedTo(EventTransferFailed) {
		t.Error("expected subscription to transfer.failed")
	}
	if some.SubscribedTo(EventTransferCompleted) {
		t.Error("unexpected subscription to transfer.completed")
	}
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents(" transfer.completed, transfer.failed ,")
	if err != nil {
		t.Fatalf("ParseEvents() error = %v", err)
	}
	if len(events) != 2 || events[0] != EventTransferCompleted || events[1] != EventTransferFailed {
		t.Errorf("ParseEvents() = %v", events)
	}

	if events, err := ParseEvents(""); err != nil || len(events) != 0 {
		t.Errorf("ParseEvents(\"\") = %v, %v", events, err)
	}

	if _, err := ParseEvents("file.uploaded"); err == nil {
		t.Error("ParseEvents() should reject unknown events")
	}
}

func TestEvent_ToJSON(t *testing.T) {
	msg := "transport_error"
	event := sampleEvent(EventTransferFailed)
	event.Transfer.Error = &msg

	payload, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["event"] != "transfer.failed" {
		t.Errorf("event = %v", decoded["event"])
	}
	transfer := decoded["transfer"].(map[string]any)
	if transfer["id"] != "42" || transfer["error"] != "transport_error" || transfer["elapsed_seconds"] != 1.5 {
		t.Errorf("transfer = %v", transfer)
	}
}
