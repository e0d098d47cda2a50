package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fjmerc/filesender-client/internal/repository"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"serialization failure", &pgconn.PgError{Code: SerializationFailure}, true},
		{"deadlock", &pgconn.PgError{Code: DeadlockDetected}, true},
		{"unique violation", &pgconn.PgError{Code: UniqueViolation}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := withRetry(ctx, 3, func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: SerializationFailure}
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Errorf("withRetry() = %v after %d attempts, want nil after 2", err, attempts)
	}

	attempts = 0
	permanent := errors.New("syntax error")
	err = withRetry(ctx, 3, func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) || attempts != 1 {
		t.Errorf("withRetry() = %v after %d attempts, want permanent error after 1", err, attempts)
	}

	attempts = 0
	err = withRetry(ctx, 3, func() error {
		attempts++
		return &pgconn.PgError{Code: DeadlockDetected}
	})
	if err == nil || attempts != 3 {
		t.Errorf("withRetry() = %v after %d attempts, want error after 3", err, attempts)
	}
}

func TestNewDraftRepository_NilPool(t *testing.T) {
	if _, err := NewDraftRepository(nil); !errors.Is(err, repository.ErrNilDatabase) {
		t.Errorf("expected ErrNilDatabase, got %v", err)
	}
}

func TestNewPool_InvalidConnString(t *testing.T) {
	if _, err := NewPool(context.Background(), "postgres://%zz", 0); err == nil {
		t.Error("expected error for invalid connection string")
	}
}
