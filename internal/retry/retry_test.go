package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("websocket: close 1006 protocol error")

func TestDoSucceedsAfterRetryableFailures(t *testing.T) {
	const failures = 3
	calls := 0

	result, err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Microsecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls <= failures {
				return "", errTransient
			}
			return "captured", nil
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "captured" {
		t.Errorf("result = %q, want %q", result, "captured")
	}
	if calls != failures+1 {
		t.Errorf("calls = %d, want exactly %d", calls, failures+1)
	}
}

func TestDoExhaustsBudgetReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("connection reset by peer (final)")

	_, err := Do(context.Background(), Options{MaxRetries: 2, BaseDelay: time.Microsecond},
		func(ctx context.Context) (int, error) {
			calls++
			if calls == 3 {
				return 0, lastErr
			}
			return 0, errTransient
		})

	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("err = %v, want the last error unchanged", err)
	}
}

func TestDoNonRetryablePropagatesImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("no media found in post")

	_, err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Microsecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("err = %v, want %v", err, fatal)
	}
}

func TestDoContextCancellationStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, Options{MaxRetries: 10, BaseDelay: time.Hour},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	st := &state{}
	base := 100 * time.Millisecond
	want := []time.Duration{100, 200, 400, 800}
	for i, w := range want {
		st.attempt = i
		if got := st.backoff(base); got != w*time.Millisecond {
			t.Errorf("attempt %d: backoff = %v, want %v", i, got, w*time.Millisecond)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"protocol error", errors.New("Protocol Error: target crashed"), true},
		{"target closed", errors.New("rod: Target closed"), true},
		{"session closed", errors.New("cdp: session closed"), true},
		{"browser disconnected", errors.New("browser has disconnected"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain failure", errors.New("no media found in post"), false},
		{"invalid url", errors.New("invalid URL"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
