package filesender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// TrackingField is the form field carrying the legacy progress key. It
// must precede the file part.
const TrackingField = "UPLOAD_IDENTIFIER"

// PutChunk uploads data at offset of the file. fileSize is the total size
// of the file; uid is its per-file key.
func (c *Client) PutChunk(ctx context.Context, fileID, uid string, data []byte, offset, fileSize int64) error {
	if err := validateID("fileID", fileID); err != nil {
		return err
	}
	if offset < 0 || offset+int64(len(data)) > fileSize {
		return &ValidationError{Field: "offset", Message: fmt.Sprintf("chunk [%d, %d) outside file of %d bytes", offset, offset+int64(len(data)), fileSize)}
	}

	header := http.Header{}
	header.Set("X-Filesender-File-Size", strconv.FormatInt(fileSize, 10))
	header.Set("X-Filesender-Chunk-Offset", strconv.FormatInt(offset, 10))
	header.Set("X-Filesender-Chunk-Size", strconv.Itoa(len(data)))

	path := fmt.Sprintf("/file/%s/chunk/%d", url.PathEscape(fileID), offset)
	resp, err := c.request(ctx, http.MethodPut, path, c.keyQuery(uid), bytes.NewReader(data), "application/octet-stream", header)
	if err != nil {
		return err
	}
	return handleResponse(resp, nil)
}

// FileComplete tells the server every chunk of the file was sent.
func (c *Client) FileComplete(ctx context.Context, fileID, uid string) error {
	if err := validateID("fileID", fileID); err != nil {
		return err
	}

	_, err := c.doJSON(ctx, http.MethodPut, "/file/"+url.PathEscape(fileID), c.keyQuery(uid), map[string]bool{"complete": true}, nil)
	return err
}

// GetLegacyUploadProgress returns the progress of the whole-file upload
// tracked under key, or nil when the server has no information.
func (c *Client) GetLegacyUploadProgress(ctx context.Context, key string) (*LegacyProgress, error) {
	if err := validateID("key", key); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	_, err := c.doJSON(ctx, http.MethodGet, "/legacyuploadprogress/"+url.PathEscape(key), nil, nil, &raw)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || bytes.Equal(bytes.TrimSpace(raw), []byte("false")) {
		return nil, nil
	}

	var p LegacyProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	return &p, nil
}

// UploadWhole posts a whole file as multipart form data to endpoint, a
// server-relative or absolute URL. The form carries trackingKey ahead of
// the file when set. Error-shaped payloads are returned as results, not
// errors. The client Timeout does not apply; ctx bounds the upload.
func (c *Client) UploadWhole(ctx context.Context, endpoint, filename string, content io.Reader, trackingKey string) (*WholeFileResult, error) {
	if filename == "" {
		return nil, &ValidationError{Field: "filename", Message: "cannot be empty"}
	}

	body, contentType := multipartBody(filename, content, trackingKey)
	defer body.Close()

	resp, err := c.send(ctx, c.streamClient, http.MethodPost, endpoint, nil, body, contentType, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result := decodeWholeFileResult(payload)
	if resp.StatusCode >= 400 && !result.IsError() {
		return nil, newAPIError(resp.StatusCode, resp.Status)
	}
	return &result, nil
}

// multipartBody streams the form through a pipe so large files are never
// buffered in memory.
func multipartBody(filename string, content io.Reader, trackingKey string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if trackingKey != "" {
				if err := writer.WriteField(TrackingField, trackingKey); err != nil {
					return err
				}
			}
			part, err := writer.CreateFormFile("file", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, content); err != nil {
				return err
			}
			return writer.Close()
		}()
		pw.CloseWithError(err)
	}()

	return pr, writer.FormDataContentType()
}

// decodeWholeFileResult extracts the JSON payload from a response body.
// The endpoint may wrap it in a callback script.
func decodeWholeFileResult(body []byte) WholeFileResult {
	var result WholeFileResult

	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return result
	}

	if err := json.Unmarshal(body[start:end+1], &result); err != nil {
		return WholeFileResult{}
	}
	return result
}
