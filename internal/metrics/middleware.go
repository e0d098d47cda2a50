package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentRoundTripper records outgoing request metrics around next.
// A nil next uses http.DefaultTransport.
func InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	counted := promhttp.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(r)

		// Record metrics
		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		method := r.Method
		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		return resp, err
	})

	return promhttp.InstrumentRoundTripperInFlight(HTTPRequestsInFlight, counted)
}

// normalizePath normalizes REST paths for metric labels to avoid cardinality explosion
// Replaces ids, offsets and tracking keys with placeholders
func normalizePath(path string) string {
	const prefix = "/rest.php"
	idx := strings.Index(path, prefix)
	if idx < 0 {
		return "/other"
	}

	parts := strings.Split(strings.Trim(path[idx+len(prefix):], "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "transfer":
		return "/rest.php/transfer"
	case len(parts) == 2 && parts[0] == "transfer":
		return "/rest.php/transfer/:id"
	case len(parts) == 1 && parts[0] == "info":
		return "/rest.php/info"
	case len(parts) == 2 && parts[0] == "file":
		return "/rest.php/file/:id"
	case len(parts) == 3 && parts[0] == "file" && parts[2] == "whole":
		return "/rest.php/file/:id/whole"
	case len(parts) == 4 && parts[0] == "file" && parts[2] == "chunk":
		return "/rest.php/file/:id/chunk/:offset"
	case len(parts) == 2 && parts[0] == "legacyuploadprogress":
		return "/rest.php/legacyuploadprogress/:key"
	default:
		return "/other"
	}
}
