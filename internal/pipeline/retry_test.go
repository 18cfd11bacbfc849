package pipeline

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

var fastRetry = RetryConfig{
	MaxRetries:  3,
	InitialWait: time.Millisecond,
	MaxWait:     5 * time.Millisecond,
	Multiplier:  2.0,
}

func transientErr() error {
	return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
}

func TestRetryDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	got, err := RetryDo(context.Background(), fastRetry, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", transientErr()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryDo error: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q", got)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDo_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	wantErr := errors.New("bad request")
	_, err := RetryDo(context.Background(), fastRetry, func() (int, error) {
		attempts++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryDo_RateLimitNotRetried(t *testing.T) {
	attempts := 0
	_, err := RetryDo(context.Background(), fastRetry, func() (int, error) {
		attempts++
		return 0, &RateLimitError{StatusCode: 429}
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (backoff belongs to the enrichment worker)", attempts)
	}
}

func TestRetryDo_ExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := RetryDo(context.Background(), fastRetry, func() (int, error) {
		attempts++
		return 0, transientErr()
	})
	if err == nil {
		t.Fatal("expected the last error after exhausting retries")
	}
	if attempts != fastRetry.MaxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts, fastRetry.MaxRetries+1)
	}
}

func TestRetryDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	_, err := RetryDo(ctx, fastRetry, func() (int, error) {
		attempts++
		return 0, transientErr()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
}
