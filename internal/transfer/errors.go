package transfer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Error classes. Every *Error matches exactly one of these with errors.Is.
var (
	// ErrValidation indicates a local quota or format rule was violated.
	ErrValidation = errors.New("validation error")
	// ErrProtocol indicates the server response is inconsistent with the client state.
	ErrProtocol = errors.New("protocol error")
	// ErrTransport indicates the transport client failed.
	ErrTransport = errors.New("transport error")
)

// State errors returned by lifecycle operations.
var (
	ErrNotStarted   = errors.New("transfer not started")
	ErrStopped      = errors.New("transfer stopped")
	ErrInvalidState = errors.New("invalid transfer state")
)

// Kind identifies a specific failure.
type Kind string

// Validation kinds.
const (
	KindNoFileGiven           Kind = "no_file_given"
	KindDuplicateFile         Kind = "duplicate_file"
	KindMaxFilesExceeded      Kind = "max_transfer_files_exceeded"
	KindInvalidFileName       Kind = "invalid_file_name"
	KindEmptyFile             Kind = "empty_file"
	KindBannedExtension       Kind = "banned_extension"
	KindMaxSizeExceeded       Kind = "max_transfer_size_exceeded"
	KindInvalidRecipient      Kind = "invalid_recipient"
	KindDuplicateRecipient    Kind = "duplicate_recipient"
	KindMaxRecipientsExceeded Kind = "max_transfer_recipients_exceeded"
	KindBadExpire             Kind = "bad_expire"
)

// Protocol kinds.
const (
	KindFileNotInResponse Kind = "file_not_in_response"
)

// Transport kinds.
const (
	KindTransport    Kind = "transport_error"
	KindLegacyUpload Kind = "legacy_upload_failed"
	KindSourceRead   Kind = "source_read_failed"
)

var protocolKinds = map[Kind]bool{
	KindFileNotInResponse: true,
}

var transportKinds = map[Kind]bool{
	KindTransport:    true,
	KindLegacyUpload: true,
	KindSourceRead:   true,
}

// Error is the structured {kind, details} error routed to error handlers.
type Error struct {
	Kind    Kind
	Details map[string]any
	// Err is the underlying cause for transport errors.
	Err error

	// surfaced is set when the error already reached the process-wide sink.
	surfaced bool
}

func newError(kind Kind, details map[string]any) *Error {
	return &Error{Kind: kind, Details: details}
}

func transportError(kind Kind, err error, details map[string]any) *Error {
	return &Error{Kind: kind, Details: details, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Class returns the error class sentinel for the kind.
func (e *Error) Class() error {
	switch {
	case protocolKinds[e.Kind]:
		return ErrProtocol
	case transportKinds[e.Kind]:
		return ErrTransport
	default:
		return ErrValidation
	}
}

// Is matches the class sentinels and other *Error values of the same kind.
func (e *Error) Is(target error) bool {
	if target == e.Class() {
		return true
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Unwrap returns the underlying transport cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorHandler receives structured errors.
type ErrorHandler func(*Error)

var (
	defaultHandlerMu sync.RWMutex
	defaultHandler   ErrorHandler = logErrorHandler
)

// SetDefaultErrorHandler replaces the process-wide error sink used when
// no handler is supplied. A nil handler restores the logging sink.
func SetDefaultErrorHandler(h ErrorHandler) {
	defaultHandlerMu.Lock()
	defer defaultHandlerMu.Unlock()
	if h == nil {
		h = logErrorHandler
	}
	defaultHandler = h
}

// DefaultErrorHandler returns the process-wide error sink.
func DefaultErrorHandler() ErrorHandler {
	defaultHandlerMu.RLock()
	defer defaultHandlerMu.RUnlock()
	return defaultHandler
}

func logErrorHandler(e *Error) {
	attrs := []any{"kind", string(e.Kind)}
	for k, v := range e.Details {
		attrs = append(attrs, k, v)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}
	slog.Error("transfer error", attrs...)
}

func resolveHandler(h ErrorHandler) ErrorHandler {
	if h != nil {
		return h
	}
	return DefaultErrorHandler()
}
