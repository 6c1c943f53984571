// Package navigate drives page loads with graceful settling. Hard
// navigation failures (DNS, connection refused) are fatal; timeouts and the
// settling steps (load event, network idle, web fonts) are best effort
// because many sites never fully quiesce.
package navigate

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/security"
)

// Options bounds the individual settling phases.
type Options struct {
	// NavTimeout bounds the navigation itself plus the load event.
	NavTimeout time.Duration
	// IdleTimeout bounds the network idle wait. Zero skips the wait.
	IdleTimeout time.Duration
	// FontTimeout bounds the web font wait. Zero skips the wait.
	FontTimeout time.Duration
}

// Goto navigates the page to rawURL and waits for it to settle. Only hard
// navigation failures can fail the call; a navigation timeout and every
// later phase degrade to a log so a slow site is captured in whatever state
// it reached.
func Goto(page *rod.Page, rawURL string, opts Options) error {
	logURL := security.RedactURL(rawURL)

	bounded := page.Timeout(opts.NavTimeout)
	if err := bounded.Navigate(rawURL); err != nil {
		if !isTimeout(err) {
			return err
		}
		log.Warn().Str("url", logURL).Err(err).Msg("Navigation timed out, capturing current state")
	}

	if err := bounded.WaitLoad(); err != nil {
		log.Debug().Str("url", logURL).Err(err).Msg("Load event wait ended early")
	}

	if opts.IdleTimeout > 0 {
		if err := waitIdle(page, opts.IdleTimeout); err != nil {
			log.Debug().Str("url", logURL).Err(err).Msg("Network idle wait ended early")
		}
	}

	if opts.FontTimeout > 0 {
		if err := waitFonts(page, opts.FontTimeout); err != nil {
			log.Debug().Str("url", logURL).Err(err).Msg("Font wait ended early")
		}
	}

	log.Debug().Str("url", logURL).Msg("Navigation settled")
	return nil
}

func waitIdle(page *rod.Page, timeout time.Duration) error {
	wait := page.Timeout(timeout).WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errIdleTimeout
	}
}

// waitFonts blocks until document.fonts.ready resolves so text renders with
// its final typeface instead of a fallback font.
func waitFonts(page *rod.Page, timeout time.Duration) error {
	_, err := page.Timeout(timeout).Eval(`() => document.fonts.ready.then(() => true)`)
	return err
}

// isTimeout classifies deadline-style errors. Rod surfaces its per-page
// timeouts as context.DeadlineExceeded; net errors carry Timeout().
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var errIdleTimeout = timeoutError("network idle timeout")

type timeoutError string

func (e timeoutError) Error() string { return string(e) }
func (e timeoutError) Timeout() bool { return true }
