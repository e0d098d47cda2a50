package filesender

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PostTransfer registers a transfer and returns the server records of
// its files.
//
// Example:
//
//	tr, err := client.PostTransfer(ctx, &filesender.TransferRequest{
//	    Files:      []filesender.FileSpec{{Name: "report.pdf", Size: 1024}},
//	    Recipients: []string{"alice@example.org"},
//	    Expires:    time.Now().Add(7 * 24 * time.Hour).Unix(),
//	})
func (c *Client) PostTransfer(ctx context.Context, req *TransferRequest) (*Transfer, error) {
	if req == nil || len(req.Files) == 0 {
		return nil, &ValidationError{Field: "files", Message: "at least one file is required"}
	}
	for _, f := range req.Files {
		if f.Name == "" || f.Size <= 0 {
			return nil, &ValidationError{Field: "files", Message: "every file needs a name and a positive size"}
		}
	}

	var tr Transfer
	resp, err := c.doJSON(ctx, http.MethodPost, "/transfer", guestQuery(req.GuestToken), req, &tr)
	if err != nil {
		return nil, err
	}

	tr.Path = resp.Header.Get("Location")
	if tr.Path == "" {
		tr.Path = "/transfer/" + string(tr.ID)
	}
	if tr.ID == "" {
		return nil, fmt.Errorf("server returned a transfer without id")
	}

	return &tr, nil
}

// GetTransfer retrieves a registered transfer.
func (c *Client) GetTransfer(ctx context.Context, transferID string) (*Transfer, error) {
	if err := validateID("transferID", transferID); err != nil {
		return nil, err
	}

	var tr Transfer
	if _, err := c.doJSON(ctx, http.MethodGet, "/transfer/"+url.PathEscape(transferID), nil, nil, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// TransferComplete marks every file of the transfer as received, which
// makes the server notify the recipients.
func (c *Client) TransferComplete(ctx context.Context, transferID, guestToken string) error {
	if err := validateID("transferID", transferID); err != nil {
		return err
	}

	_, err := c.doJSON(ctx, http.MethodPut, "/transfer/"+url.PathEscape(transferID), guestQuery(guestToken), map[string]bool{"complete": true}, nil)
	return err
}

// DeleteTransfer deletes a transfer and its uploaded data.
func (c *Client) DeleteTransfer(ctx context.Context, transferID string) error {
	if err := validateID("transferID", transferID); err != nil {
		return err
	}

	_, err := c.doJSON(ctx, http.MethodDelete, "/transfer/"+url.PathEscape(transferID), nil, nil, nil)
	return err
}

// validateID rejects empty ids and ids that would alter the request path.
func validateID(field, id string) error {
	if id == "" {
		return &ValidationError{Field: field, Message: "cannot be empty"}
	}
	for _, r := range id {
		if r == '/' || r == '?' || r == '#' {
			return &ValidationError{Field: field, Message: "contains invalid characters"}
		}
	}
	return nil
}
