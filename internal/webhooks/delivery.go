package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode"
)

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	Success      bool
	ResponseCode int
	ResponseBody string
	Error        error
}

// ComputeHMACSignature computes HMAC-SHA256 signature for a payload
func ComputeHMACSignature(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// DeliverWebhook posts payload to the configured endpoint. The payload is
// signed when a secret is configured.
func DeliverWebhook(ctx context.Context, client *http.Client, config *Config, payload string) DeliveryResult {
	// Construct final URL based on config format (for Gotify token injection)
	finalURL := config.URL
	if config.ServiceToken != "" {
		finalURL = constructURLWithToken(config.URL, config.ServiceToken, config.Format)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, finalURL, bytes.NewBufferString(payload))
	if err != nil {
		slog.Error("failed to create webhook request", "url", config.URL, "error", err)
		return DeliveryResult{
			Success: false,
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FileSender-CLI-Webhook/1.0")
	if config.Secret != "" {
		req.Header.Set("X-Filesender-Signature", ComputeHMACSignature(payload, config.Secret))
		req.Header.Set("X-Filesender-Signature-Algorithm", "sha256")
	}

	// Add service-specific auth headers (for ntfy)
	if config.ServiceToken != "" {
		addAuthHeaders(req, config.ServiceToken, config.Format)
	}

	startTime := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("webhook delivery failed", "url", config.URL, "duration", duration, "error", err)
		return DeliveryResult{
			Success: false,
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	const maxResponseSize = 1024

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	responseBody := string(bodyBytes)
	if err != nil {
		responseBody = fmt.Sprintf("failed to read response: %v", err)
	}

	// Check if successful (2xx status codes)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	if success {
		slog.Debug("webhook delivered successfully",
			"url", config.URL,
			"status_code", resp.StatusCode,
			"duration", duration)
	} else {
		slog.Warn("webhook delivery received non-2xx status",
			"url", config.URL,
			"status_code", resp.StatusCode,
			"duration", duration,
			"response_body", responseBody)
	}

	result := DeliveryResult{
		Success:      success,
		ResponseCode: resp.StatusCode,
		ResponseBody: responseBody,
	}
	if !success {
		result.Error = fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return result
}

// CalculateRetryDelay calculates the delay before next retry using exponential backoff
func CalculateRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		return 1 * time.Second
	}

	// 1<<30 seconds is far beyond the cap on every platform
	if attemptCount > 30 {
		attemptCount = 30
	}

	// Exponential backoff: 1s, 2s, 4s, 8s, 16s, 32s, ...
	delay := time.Second * time.Duration(1<<uint(attemptCount))

	// Cap at 60 seconds maximum
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}

	return delay
}

// ShouldRetry determines if a delivery should be retried based on attempt count and max retries
func ShouldRetry(attemptCount, maxRetries int) bool {
	return attemptCount <= maxRetries
}

// constructURLWithToken constructs the final webhook URL with service token based on format
func constructURLWithToken(baseURL, token string, format WebhookFormat) string {
	switch format {
	case FormatGotify:
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			slog.Error("failed to parse webhook URL for token injection", "url", baseURL, "error", err)
			return baseURL
		}

		// url.Values encodes the token
		query := parsedURL.Query()
		query.Set("token", token)
		parsedURL.RawQuery = query.Encode()

		return parsedURL.String()
	default:
		return baseURL
	}
}

// validateToken checks if token contains forbidden control characters
func validateToken(token string) bool {
	for _, r := range token {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// addAuthHeaders adds service-specific authentication headers based on format
func addAuthHeaders(req *http.Request, token string, format WebhookFormat) {
	switch format {
	case FormatNtfy:
		if !validateToken(token) {
			slog.Error("invalid service token contains control characters",
				"format", format)
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case FormatGotify, FormatDiscord, FormatJSON:
		// Gotify takes the token in the query, Discord in the URL itself
	}
}
