package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fjmerc/filesender-client/internal/config"
)

type tempErr struct{ temp bool }

func (e tempErr) Error() string   { return fmt.Sprintf("temporary=%v", e.temp) }
func (e tempErr) Temporary() bool { return e.temp }

func TestNoRetry(t *testing.T) {
	calls := 0
	err := NoRetry{}.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	if err == nil || calls != 1 {
		t.Errorf("NoRetry ran %d times, err = %v", calls, err)
	}
}

func TestBackoffRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"succeeds after transient failures", 2, errors.New("reset"), 3, false},
		{"gives up after max attempts", 10, errors.New("reset"), 4, true},
		{"permanent error not retried", 10, tempErr{temp: false}, 1, true},
		{"temporary error retried", 1, tempErr{temp: true}, 2, false},
		{"context error not retried", 10, context.Canceled, 1, true},
		{"stop not retried", 10, ErrStopped, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := NewConstantRetry(3, time.Millisecond)
			err := p.Do(context.Background(), "test", func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if err != nil && !errors.Is(err, tt.err) {
				t.Errorf("Do() error = %v, want to wrap %v", err, tt.err)
			}
		})
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := testConfig()

	if _, ok := RetryPolicyFromConfig(cfg).(NoRetry); !ok {
		t.Error("default policy should be NoRetry")
	}

	cfg.RetryPolicy = config.RetryPolicyExponential
	cfg.RetryMaxAttempts = 2
	cfg.RetryBaseDelay = time.Millisecond
	if _, ok := RetryPolicyFromConfig(cfg).(*BackoffRetry); !ok {
		t.Error("exponential policy should be a BackoffRetry")
	}
}
