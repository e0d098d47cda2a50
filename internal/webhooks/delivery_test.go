package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestComputeHMACSignature(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		secret   string
		expected string
	}{
		{
			name:     "basic signature",
			payload:  `{"event":"transfer.completed"}`,
			secret:   "test-secret",
			expected: computeExpectedHMAC(`{"event":"transfer.completed"}`, "test-secret"),
		},
		{
			name:     "empty payload",
			payload:  "",
			secret:   "test-secret",
			expected: computeExpectedHMAC("", "test-secret"),
		},
		{
			name:     "long secret",
			payload:  "test payload",
			secret:   "very-long-secret-key-12345678901234567890",
			expected: computeExpectedHMAC("test payload", "very-long-secret-key-12345678901234567890"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeHMACSignature(tt.payload, tt.secret)
			if result != tt.expected {
				t.Errorf("ComputeHMACSignature() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func computeExpectedHMAC(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func TestCalculateRetryDelay(t *testing.T) {
	tests := []struct {
		name         string
		attemptCount int
		expected     time.Duration
	}{
		{"first retry", 0, 1 * time.Second},
		{"second retry", 1, 2 * time.Second},
		{"third retry", 2, 4 * time.Second},
		{"sixth retry", 5, 32 * time.Second},
		{"max capped at 60s", 6, 60 * time.Second},
		{"negative input", -1, 1 * time.Second},
		{"overflow protection", 31, 60 * time.Second},
		{"large value", 100, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateRetryDelay(tt.attemptCount)
			if result != tt.expected {
				t.Errorf("CalculateRetryDelay(%d) = %v, want %v", tt.attemptCount, result, tt.expected)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name         string
		attemptCount int
		maxRetries   int
		expected     bool
	}{
		{"first attempt with retries", 1, 3, true},
		{"last retry allowed", 3, 3, true},
		{"retries exhausted", 4, 3, false},
		{"no retries configured", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ShouldRetry(tt.attemptCount, tt.maxRetries)
			if result != tt.expected {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.attemptCount, tt.maxRetries, result, tt.expected)
			}
		})
	}
}

func testConfig(url string) *Config {
	return &Config{URL: url, Secret: "test-secret", Format: FormatJSON, Timeout: 5 * time.Second}
}

func TestDeliverWebhook_Success(t *testing.T) {
	payload := `{"event":"test"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type: application/json, got %s", r.Header.Get("Content-Type"))
		}
		if got := r.Header.Get("X-Filesender-Signature"); got != computeExpectedHMAC(payload, "test-secret") {
			t.Errorf("X-Filesender-Signature = %q", got)
		}
		if r.Header.Get("X-Filesender-Signature-Algorithm") != "sha256" {
			t.Errorf("Expected X-Filesender-Signature-Algorithm: sha256, got %s", r.Header.Get("X-Filesender-Signature-Algorithm"))
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"received"}`))
	}))
	defer server.Close()

	result := DeliverWebhook(context.Background(), server.Client(), testConfig(server.URL), payload)

	if !result.Success {
		t.Errorf("Expected success, got failure: %v", result.Error)
	}
	if result.ResponseCode != 200 {
		t.Errorf("Expected response code 200, got %d", result.ResponseCode)
	}
	if result.ResponseBody != `{"status":"received"}` {
		t.Errorf("Expected response body {\"status\":\"received\"}, got %s", result.ResponseBody)
	}
}

func TestDeliverWebhook_Unsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Filesender-Signature") != "" {
			t.Error("payload signed without a secret")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Secret = ""

	if result := DeliverWebhook(context.Background(), server.Client(), cfg, "{}"); !result.Success {
		t.Errorf("Expected success, got %v", result.Error)
	}
}

func TestDeliverWebhook_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	result := DeliverWebhook(context.Background(), server.Client(), testConfig(server.URL), `{"event":"test"}`)

	if result.Success {
		t.Error("Expected failure, got success")
	}
	if result.ResponseCode != 500 {
		t.Errorf("Expected response code 500, got %d", result.ResponseCode)
	}
	if result.Error == nil {
		t.Error("Expected an error for a non-2xx status")
	}
}

func TestDeliverWebhook_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond

	result := DeliverWebhook(context.Background(), server.Client(), cfg, `{"event":"test"}`)

	if result.Success {
		t.Error("Expected timeout failure, got success")
	}
	if result.Error == nil {
		t.Error("Expected error for timeout")
	}
}

func TestDeliverWebhook_ResponseBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	result := DeliverWebhook(context.Background(), server.Client(), testConfig(server.URL), `{"event":"test"}`)

	if !result.Success {
		t.Errorf("Expected success, got failure: %v", result.Error)
	}
	if len(result.ResponseBody) > 1024 {
		t.Errorf("Response body not limited: got %d bytes", len(result.ResponseBody))
	}
}

func TestServiceTokens(t *testing.T) {
	tests := []struct {
		name      string
		format    WebhookFormat
		token     string
		wantQuery string
		wantAuth  string
	}{
		{"gotify token in query", FormatGotify, "abc&x=1", "abc&x=1", ""},
		{"ntfy bearer header", FormatNtfy, "tk_123", "", "Bearer tk_123"},
		{"ntfy rejects control characters", FormatNtfy, "bad\r\ntoken", "", ""},
		{"discord unchanged", FormatDiscord, "ignored", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				if got := r.URL.Query().Get("token"); got != tt.wantQuery {
					t.Errorf("token query = %q, want %q", got, tt.wantQuery)
				}
				if got := r.Header.Get("Authorization"); got != tt.wantAuth {
					t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
				}
			}))
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.Format = tt.format
			cfg.ServiceToken = tt.token

			DeliverWebhook(context.Background(), server.Client(), cfg, "{}")
		})
	}
}
