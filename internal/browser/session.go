// Package browser manages per-request Chrome sessions via the DevTools
// protocol.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/metrics"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// Session owns one browser process for the lifetime of a single capture
// request. Every request gets a fresh process so challenged or wedged pages
// cannot poison later requests.
type Session struct {
	Browser *rod.Browser

	launcher *launcher.Launcher
	cfg      *config.Config
	closed   bool
}

// NewSession launches a browser and connects to it. The context bounds the
// launch only; the session outlives it until Close.
func NewSession(ctx context.Context, cfg *config.Config, headless bool) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := createLauncher(cfg, headless)

	type launchResult struct {
		url string
		err error
	}
	resultCh := make(chan launchResult, 1)
	go func() {
		url, err := l.Launch()
		resultCh <- launchResult{url, err}
	}()

	var controlURL string
	select {
	case res := <-resultCh:
		if res.err != nil {
			metrics.BrowserLaunches.WithLabelValues("launch_error").Inc()
			return nil, types.NewLaunchError("launch", "browser process failed to start", res.err)
		}
		controlURL = res.url
	case <-time.After(cfg.LaunchTimeout):
		l.Kill()
		metrics.BrowserLaunches.WithLabelValues("launch_timeout").Inc()
		return nil, types.NewLaunchError("launch", fmt.Sprintf("browser did not start within %s", cfg.LaunchTimeout), nil)
	case <-ctx.Done():
		l.Kill()
		return nil, ctx.Err()
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		metrics.BrowserLaunches.WithLabelValues("connect_error").Inc()
		return nil, types.NewLaunchError("connect", "could not attach to browser", err)
	}

	metrics.BrowserLaunches.WithLabelValues("ok").Inc()
	log.Debug().Str("url", controlURL).Bool("headless", headless).Msg("Browser session started")

	return &Session{Browser: browser, launcher: l, cfg: cfg}, nil
}

// createLauncher builds the Chrome launch flags. Flags that leak automation
// are stripped and background work is disabled to keep captures deterministic.
func createLauncher(cfg *config.Config, headless bool) *launcher.Launcher {
	l := launcher.New()

	if cfg.BrowserPath != "" {
		l = l.Bin(cfg.BrowserPath)
	}

	if headless {
		l = l.Set("headless", "new")
	} else {
		l = l.Delete("headless")
	}

	// Container-safe defaults
	l = l.Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage")

	// Hide automation markers
	l = l.Set("disable-blink-features", "AutomationControlled")
	l = l.Delete("enable-automation")

	// Software rendering keeps WebGL and canvas working without a GPU
	l = l.Set("use-gl", "swiftshader").
		Set("use-angle", "swiftshader").
		Set("enable-unsafe-swiftshader")

	l = l.Set("accept-lang", "en-US,en;q=0.9")

	l = l.Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("disable-search-engine-choice-screen")

	l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight))

	// Disable background work that could mutate the page mid-screenshot
	l = l.Set("disable-background-networking").
		Set("disable-default-apps").
		Set("disable-extensions").
		Set("disable-sync").
		Set("mute-audio").
		Set("disable-renderer-backgrounding").
		Set("disable-ipc-flooding-protection")

	l = l.Set("js-flags", "--max-old-space-size=256")

	return l
}

// Close tears the session down. Pages are closed in parallel first, then the
// browser gets cfg.BrowserCloseGrace to exit cleanly before the process is
// killed. Safe to call multiple times.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true

	if pages, err := s.Browser.Pages(); err == nil {
		eg := new(errgroup.Group)
		eg.SetLimit(4)
		for _, page := range pages {
			p := page
			eg.Go(func() error {
				if err := p.Close(); err != nil {
					log.Debug().Err(err).Msg("Error closing page during session teardown")
				}
				return nil
			})
		}
		_ = eg.Wait()
	}

	done := make(chan struct{})
	go func() {
		if err := s.Browser.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing browser")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.BrowserCloseGrace):
		log.Warn().
			Err(types.ErrBrowserCloseTimeout).
			Dur("grace", s.cfg.BrowserCloseGrace).
			Msg("Killing browser process")
	}

	// Kill is a no-op when the process already exited cleanly.
	s.launcher.Kill()
	log.Debug().Msg("Browser session closed")
}
