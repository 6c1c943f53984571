// Package retry wraps the per-request capture pipeline in bounded
// exponential backoff. Only transient browser/network failures are retried;
// everything else propagates immediately.
package retry

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// transientSignatures are substrings of error messages that indicate a
// failure worth retrying with a fresh browser session. The underlying CDP
// transport surfaces these as plain strings, so substring matching is the
// reliable classification here.
var transientSignatures = []string{
	"connection reset",
	"connection refused",
	"protocol error",
	"target closed",
	"session closed",
	"browser has disconnected",
	"browser disconnected",
	"websocket: close",
	"context deadline exceeded",
}

// IsTransient reports whether an error matches a known transient signature.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Options configures one retry run.
type Options struct {
	// MaxRetries is the number of retries after the first attempt;
	// total attempts = MaxRetries + 1.
	MaxRetries int

	// BaseDelay is the backoff unit; attempt n waits BaseDelay * 2^n.
	BaseDelay time.Duration

	// IsRetryable classifies errors. Defaults to IsTransient.
	IsRetryable func(error) bool
}

// state tracks one run's progress. It lives only for the duration of a
// single Do call.
type state struct {
	attempt int
	lastErr error
}

// backoff returns the delay before the next attempt.
func (s *state) backoff(base time.Duration) time.Duration {
	return base * (1 << s.attempt)
}

// Do runs fn until it succeeds, a non-retryable error occurs, or the budget
// is exhausted. fn receives the caller's context and must build all of its
// per-attempt state fresh; nothing is carried between attempts. After the
// budget is spent the last error is returned unchanged.
func Do[T any](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	isRetryable := opts.IsRetryable
	if isRetryable == nil {
		isRetryable = IsTransient
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	st := &state{}
	for {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		st.lastErr = err

		if !isRetryable(err) {
			return zero, err
		}
		if st.attempt >= opts.MaxRetries {
			log.Warn().
				Err(st.lastErr).
				Int("attempts", st.attempt+1).
				Msg("Retry budget exhausted")
			return zero, st.lastErr
		}

		delay := st.backoff(opts.BaseDelay)
		log.Debug().
			Err(err).
			Int("attempt", st.attempt+1).
			Dur("backoff", delay).
			Msg("Transient failure, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		st.attempt++
	}
}
