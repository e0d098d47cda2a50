package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjmerc/filesender-client/internal/transfer"
)

// Transport operations recorded by MockTransport.
const (
	OpPostTransfer     = "post_transfer"
	OpPutChunk         = "put_chunk"
	OpFileComplete     = "file_complete"
	OpTransferComplete = "transfer_complete"
	OpDeleteTransfer   = "delete_transfer"
	OpLegacyProgress   = "legacy_progress"
)

// Call records one transport call.
type Call struct {
	Op         string
	TransferID string
	FileID     string
	Offset     int64
	Data       []byte
}

// MockTransport is a recording transfer.Transport. By default every call
// succeeds and registration assigns ids "f0", "f1", ... echoing the cids.
//
// Hook fields must be set BEFORE the transfer starts.
type MockTransport struct {
	mu    sync.Mutex
	calls []Call

	// TransferID is returned by the default registration.
	TransferID string

	PostTransferFunc     func(ctx context.Context, reg transfer.Registration) (*transfer.RegisteredTransfer, error)
	PutChunkFunc         func(ctx context.Context, file transfer.FileRef, data []byte, offset int64) error
	FileCompleteFunc     func(ctx context.Context, file transfer.FileRef) error
	TransferCompleteFunc func(ctx context.Context, transferID, guestToken string) error
	DeleteTransferFunc   func(ctx context.Context, transferID string) error
	LegacyProgressFunc   func(ctx context.Context, trackingKey string) (*transfer.LegacyProgress, error)
}

// NewMockTransport creates a MockTransport registering transfers as "100".
func NewMockTransport() *MockTransport {
	return &MockTransport{TransferID: "100"}
}

func (m *MockTransport) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// PostTransfer implements transfer.Transport.
func (m *MockTransport) PostTransfer(ctx context.Context, reg transfer.Registration) (*transfer.RegisteredTransfer, error) {
	m.record(Call{Op: OpPostTransfer})

	if m.PostTransferFunc != nil {
		return m.PostTransferFunc(ctx, reg)
	}
	return RegisterAll(m.TransferID, reg), nil
}

// RegisterAll builds a registration response matching every file by cid.
func RegisterAll(transferID string, reg transfer.Registration) *transfer.RegisteredTransfer {
	resp := &transfer.RegisteredTransfer{
		ID:   transferID,
		Path: "/transfer/" + transferID,
	}
	for i, f := range reg.Files {
		resp.Files = append(resp.Files, transfer.ServerFile{
			ID:   fmt.Sprintf("f%d", i),
			UID:  fmt.Sprintf("uid-%d", i),
			CID:  f.CID,
			Name: f.Name,
			Size: f.Size,
		})
	}
	return resp
}

// PutChunk implements transfer.Transport.
func (m *MockTransport) PutChunk(ctx context.Context, file transfer.FileRef, data []byte, offset int64) error {
	m.record(Call{
		Op:         OpPutChunk,
		TransferID: file.TransferID,
		FileID:     file.ID,
		Offset:     offset,
		Data:       append([]byte(nil), data...),
	})

	if m.PutChunkFunc != nil {
		return m.PutChunkFunc(ctx, file, data, offset)
	}
	return nil
}

// FileComplete implements transfer.Transport.
func (m *MockTransport) FileComplete(ctx context.Context, file transfer.FileRef) error {
	m.record(Call{Op: OpFileComplete, TransferID: file.TransferID, FileID: file.ID})

	if m.FileCompleteFunc != nil {
		return m.FileCompleteFunc(ctx, file)
	}
	return nil
}

// TransferComplete implements transfer.Transport.
func (m *MockTransport) TransferComplete(ctx context.Context, transferID, guestToken string) error {
	m.record(Call{Op: OpTransferComplete, TransferID: transferID})

	if m.TransferCompleteFunc != nil {
		return m.TransferCompleteFunc(ctx, transferID, guestToken)
	}
	return nil
}

// DeleteTransfer implements transfer.Transport.
func (m *MockTransport) DeleteTransfer(ctx context.Context, transferID string) error {
	m.record(Call{Op: OpDeleteTransfer, TransferID: transferID})

	if m.DeleteTransferFunc != nil {
		return m.DeleteTransferFunc(ctx, transferID)
	}
	return nil
}

// GetLegacyUploadProgress implements transfer.Transport.
func (m *MockTransport) GetLegacyUploadProgress(ctx context.Context, trackingKey string) (*transfer.LegacyProgress, error) {
	m.record(Call{Op: OpLegacyProgress})

	if m.LegacyProgressFunc != nil {
		return m.LegacyProgressFunc(ctx, trackingKey)
	}
	return nil, nil
}

// Calls returns a copy of all recorded calls in order.
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsOf returns the recorded calls of one operation.
func (m *MockTransport) CallsOf(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded calls of one operation.
func (m *MockTransport) Count(op string) int {
	return len(m.CallsOf(op))
}

// Ops returns the operation names of all recorded calls in order.
func (m *MockTransport) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make([]string, len(m.calls))
	for i, c := range m.calls {
		ops[i] = c.Op
	}
	return ops
}

// MockLegacyFrame is a transfer.LegacyFrame that delivers a result to
// Completions for every submission. When Hold is non-nil, each delivery
// waits for a value on Hold.
type MockLegacyFrame struct {
	mu          sync.Mutex
	submissions []transfer.LegacySubmission

	Completions *transfer.Completions
	Hold        chan struct{}
	SubmitError error
	// Result builds the delivered payload. Defaults to a success payload.
	Result func(sub transfer.LegacySubmission) transfer.LegacyResult
}

// NewMockLegacyFrame creates a frame delivering to completions.
func NewMockLegacyFrame(completions *transfer.Completions) *MockLegacyFrame {
	return &MockLegacyFrame{Completions: completions}
}

// Submit implements transfer.LegacyFrame.
func (f *MockLegacyFrame) Submit(ctx context.Context, sub transfer.LegacySubmission) error {
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()

	if f.SubmitError != nil {
		return f.SubmitError
	}

	result := transfer.LegacyResult{}
	if f.Result != nil {
		result = f.Result(sub)
	}

	go func() {
		if f.Hold != nil {
			<-f.Hold
		}
		_ = f.Completions.Deliver(sub.CallbackKey, result)
	}()
	return nil
}

// Submissions returns a copy of the recorded submissions.
func (f *MockLegacyFrame) Submissions() []transfer.LegacySubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transfer.LegacySubmission(nil), f.submissions...)
}
