package transfer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Classes(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindBannedExtension, ErrValidation},
		{KindBadExpire, ErrValidation},
		{KindFileNotInResponse, ErrProtocol},
		{KindTransport, ErrTransport},
		{KindLegacyUpload, ErrTransport},
		{KindSourceRead, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := newError(tt.kind, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%s, %v) = false", tt.kind, tt.want)
			}
			for _, other := range []error{ErrValidation, ErrProtocol, ErrTransport} {
				if other != tt.want && errors.Is(err, other) {
					t.Errorf("%s also matches %v", tt.kind, other)
				}
			}
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := transportError(KindTransport, cause, map[string]any{"operation": "put_chunk", "offset": 4})

	msg := err.Error()
	if !strings.HasPrefix(msg, "transport_error (offset=4, operation=put_chunk)") {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.HasSuffix(msg, "connection reset") {
		t.Errorf("Error() = %q, want cause suffix", msg)
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	var got *Error
	SetDefaultErrorHandler(func(e *Error) { got = e })
	t.Cleanup(func() { SetDefaultErrorHandler(nil) })

	resolveHandler(nil)(newError(KindEmptyFile, nil))
	if got == nil || got.Kind != KindEmptyFile {
		t.Errorf("default handler got %v", got)
	}

	called := false
	resolveHandler(func(*Error) { called = true })(newError(KindEmptyFile, nil))
	if !called {
		t.Error("explicit handler not used")
	}
}
