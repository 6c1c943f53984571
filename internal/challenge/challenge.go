// Package challenge detects and waits out bot interstitials (Cloudflare
// Turnstile and similar) before a page is captured.
package challenge

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/humanize"
	"github.com/pagepeek/pagepeek-go/internal/metrics"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
)

// Solver clears bot challenges on live pages. It never fails a capture: when
// a challenge cannot be cleared within the timeout the caller proceeds and
// screenshots whatever is on screen.
type Solver struct {
	selectors *selectors.Manager
	timing    *humanize.Timing
	timeout   time.Duration
}

// NewSolver creates a challenge solver bounded by timeout per page.
func NewSolver(mgr *selectors.Manager, timeout time.Duration) *Solver {
	return &Solver{
		selectors: mgr,
		timing:    humanize.NewTiming(),
		timeout:   timeout,
	}
}

// Check detects a challenge on the page and, when present, polls with
// jittered intervals until it clears or the timeout expires. detected
// reports whether a challenge was seen at all; cleared reports whether no
// challenge remains.
func (s *Solver) Check(ctx context.Context, page *rod.Page) (detected, cleared bool) {
	sel := s.selectors.Get().Challenge

	if !s.detect(page, &sel) {
		return false, true
	}

	log.Info().Msg("Bot challenge detected, waiting for clearance")
	metrics.ChallengesSolved.WithLabelValues("detected").Inc()

	deadline := time.Now().Add(s.timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for attempt := 0; ; attempt++ {
		if s.solved(page, &sel) || !s.detect(page, &sel) {
			log.Info().Int("attempts", attempt).Msg("Challenge cleared")
			metrics.ChallengesSolved.WithLabelValues("cleared").Inc()
			return true, true
		}

		s.tryClickWidget(page, &sel)

		if !humanize.Sleep(ctx, s.timing.PollInterval()) {
			break
		}
	}

	log.Warn().Dur("timeout", s.timeout).Msg("Challenge did not clear, capturing as is")
	metrics.ChallengesSolved.WithLabelValues("timeout").Inc()
	return true, false
}

// detect reports whether the page currently shows challenge markers.
func (s *Solver) detect(page *rod.Page, sel *selectors.ChallengeSelectors) bool {
	if title, err := pageTitle(page); err == nil {
		titleLower := strings.ToLower(title)
		for _, t := range sel.Titles {
			if strings.Contains(titleLower, t) {
				return true
			}
		}
	}

	if hasChallengeFrame(page, sel.FrameHost) {
		return true
	}

	for _, widget := range sel.WidgetSelectors {
		if has, _, _ := page.Has(widget); has {
			return true
		}
	}
	return false
}

// solved reports whether the challenge response token has been issued.
func (s *Solver) solved(page *rod.Page, sel *selectors.ChallengeSelectors) bool {
	if sel.ResponseSelector == "" {
		return false
	}
	el, err := page.Timeout(time.Second).Element(sel.ResponseSelector)
	if err != nil {
		return false
	}
	defer func() { _ = el.Release() }()

	value, err := el.Property("value")
	if err != nil {
		return false
	}
	return value.String() != ""
}

// tryClickWidget clicks the first visible challenge widget. Failures are
// expected because the widget usually lives inside a cross-origin frame.
func (s *Solver) tryClickWidget(page *rod.Page, sel *selectors.ChallengeSelectors) {
	for _, widget := range sel.WidgetSelectors {
		el, err := page.Timeout(time.Second).Element(widget)
		if err != nil {
			continue
		}
		time.Sleep(s.timing.ClickDelay())
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.Debug().Str("selector", widget).Err(err).Msg("Widget click failed")
		}
		_ = el.Release()
		return
	}
}

// hasChallengeFrame scans iframes for the challenge provider's host.
func hasChallengeFrame(page *rod.Page, host string) bool {
	if host == "" {
		return false
	}
	iframes, err := page.Timeout(2 * time.Second).Elements("iframe")
	if err != nil {
		return false
	}
	defer func() {
		for _, f := range iframes {
			_ = f.Release()
		}
	}()
	for _, f := range iframes {
		src, err := f.Attribute("src")
		if err != nil || src == nil {
			continue
		}
		if strings.Contains(*src, host) {
			return true
		}
	}
	return false
}

func pageTitle(page *rod.Page) (string, error) {
	info, err := page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// DetectInHTML reports whether raw HTML contains challenge markers. Used
// when a page snapshot is already in hand.
func DetectInHTML(html string, sel *selectors.ChallengeSelectors) bool {
	htmlLower := strings.ToLower(html)
	if sel.FrameHost != "" && strings.Contains(htmlLower, strings.ToLower(sel.FrameHost)) {
		return true
	}
	for _, t := range sel.Titles {
		if strings.Contains(htmlLower, "<title>"+t) || strings.Contains(htmlLower, t+"</title>") {
			return true
		}
	}
	return false
}
