package filesender

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RESTPrefix is the path of the REST endpoint below the base URL.
const RESTPrefix = "/rest.php"

// Client is the FileSender REST API client.
type Client struct {
	baseURL     string
	apiToken    string
	keySecurity bool
	httpClient  *http.Client

	// streamClient carries whole-file uploads, which may outlast Timeout.
	streamClient *http.Client

	configMu    sync.Mutex
	configCache *ServerInfo
}

// NewClient creates a new FileSender client with the given configuration.
//
// Example:
//
//	client, err := filesender.NewClient(filesender.ClientConfig{
//	    BaseURL:  "https://filesender.example.org",
//	    APIToken: "abc123...",
//	})
func NewClient(cfg ClientConfig) (*Client, error) {
	// Validate base URL
	if cfg.BaseURL == "" {
		return nil, &ValidationError{Field: "BaseURL", Message: "is required"}
	}

	parsedURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &ValidationError{Field: "BaseURL", Message: "must be a valid URL"}
	}

	// Validate URL scheme
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, &ValidationError{Field: "BaseURL", Message: "must use http or https protocol"}
	}

	// Validate URL has a host
	if parsedURL.Host == "" {
		return nil, &ValidationError{Field: "BaseURL", Message: "must include a host"}
	}

	// Set default timeout
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		}
	}

	if cfg.InsecureSkipVerify {
		// Log warning about disabled TLS verification to stderr
		fmt.Fprintln(os.Stderr, "[FileSender SDK] WARNING: TLS certificate verification is disabled. This is insecure.")
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiToken:    cfg.APIToken,
		keySecurity: cfg.ChunkUploadSecurity == "key",
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		streamClient: &http.Client{Transport: transport},
	}, nil
}

// String returns a string representation with the API token redacted.
func (c *Client) String() string {
	tokenDisplay := "none"
	if c.apiToken != "" {
		tokenDisplay = "***redacted***"
	}
	return fmt.Sprintf("FileSenderClient(baseURL=%q, apiToken=%s)", c.baseURL, tokenDisplay)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetChunkUploadSecurity switches per-file key authentication on chunk
// and completion calls. Servers publish the mode in their info.
func (c *Client) SetChunkUploadSecurity(mode string) {
	c.keySecurity = mode == "key"
}

// resolve turns a REST path or a server-relative URL into an absolute URL.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, RESTPrefix) {
		path = RESTPrefix + path
	}
	return c.baseURL + path
}

// request makes an HTTP request to the API.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, header http.Header) (*http.Response, error) {
	return c.send(ctx, c.httpClient, method, path, query, body, contentType, header)
}

// send makes an HTTP request through hc.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, query url.Values, body io.Reader, contentType string, header http.Header) (*http.Response, error) {
	reqURL := c.resolve(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: err}
	}

	return resp, nil
}

// doJSON sends payload as JSON (when non-nil) and decodes the response into target.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, target interface{}) (*http.Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = strings.NewReader(string(data))
		contentType = "application/json"
	}

	resp, err := c.request(ctx, method, path, query, body, contentType, nil)
	if err != nil {
		return nil, err
	}

	return resp, handleResponse(resp, target)
}

// handleResponse checks for errors and decodes JSON response.
func handleResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Try to decode error message
		var errResp struct {
			Message string `json:"message"`
			UID     string `json:"uid"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Message == "" {
			errResp.Message = resp.Status
		}
		apiErr := newAPIError(resp.StatusCode, errResp.Message)
		apiErr.UID = errResp.UID
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// GetConfig retrieves the server's public information and limits.
// The result is cached after the first successful call.
func (c *Client) GetConfig(ctx context.Context) (*ServerInfo, error) {
	c.configMu.Lock()
	defer c.configMu.Unlock()

	if c.configCache != nil {
		return c.configCache, nil
	}

	var info ServerInfo
	if _, err := c.doJSON(ctx, http.MethodGet, "/info", nil, nil, &info); err != nil {
		return nil, err
	}

	c.configCache = &info
	return c.configCache, nil
}

// guestQuery carries the guest voucher token, if any.
func guestQuery(guestToken string) url.Values {
	if guestToken == "" {
		return nil
	}
	return url.Values{"vid": {guestToken}}
}

// keyQuery authenticates a file operation with its per-file key.
func (c *Client) keyQuery(uid string) url.Values {
	if !c.keySecurity || uid == "" {
		return nil
	}
	return url.Values{"key": {uid}}
}
