package navigate

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), true},
		{"timeout interface", errIdleTimeout, true},
		{"dns failure", errors.New("net::ERR_NAME_NOT_RESOLVED"), false},
		{"connection refused", errors.New("net::ERR_CONNECTION_REFUSED"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTimeout(tt.err); got != tt.want {
				t.Errorf("isTimeout(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTimeoutErrorReportsTimeout(t *testing.T) {
	var err interface {
		Error() string
		Timeout() bool
	} = errIdleTimeout

	if !err.Timeout() {
		t.Error("idle timeout error must report Timeout() = true")
	}
	if err.Error() == "" {
		t.Error("idle timeout error must have a message")
	}
}
