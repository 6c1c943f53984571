package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/types"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// NewPage creates a stealth page with the session's viewport and user agent
// applied. The page belongs to the session and is closed with it.
func (s *Session) NewPage() (*rod.Page, error) {
	page, err := stealth.Page(s.Browser)
	if err != nil {
		return nil, types.NewLaunchError("page", "could not create page", err)
	}

	if err := applyFingerprint(page, s.cfg.ViewportWidth, s.cfg.ViewportHeight); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// applyFingerprint sets viewport, user agent and media preferences so pages
// render the same regardless of the host environment.
func applyFingerprint(page *rod.Page, width, height int) error {
	err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page)
	if err != nil {
		return types.NewLaunchError("page", "viewport override failed", err)
	}

	err = (proto.NetworkSetUserAgentOverride{
		UserAgent:      version.UserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	}).Call(page)
	if err != nil {
		return types.NewLaunchError("page", "user agent override failed", err)
	}

	// Reduced motion freezes CSS animations so screenshots are stable.
	err = (proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{
			{Name: "prefers-reduced-motion", Value: "reduce"},
		},
	}).Call(page)
	if err != nil {
		log.Debug().Err(err).Msg("Media feature emulation failed")
	}
	return nil
}

// LogPageEvents streams console messages and page errors to the log at debug
// level. Returns a function that stops the listener.
func LogPageEvents(page *rod.Page) func() {
	ctx, cancel := context.WithCancel(page.GetContext())
	listener := page.Context(ctx)
	go listener.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			if len(e.Args) == 0 {
				return
			}
			log.Debug().
				Str("type", string(e.Type)).
				Str("msg", e.Args[0].Value.String()).
				Msg("Page console")
		},
		func(e *proto.RuntimeExceptionThrown) {
			log.Debug().Str("error", e.ExceptionDetails.Text).Msg("Page exception")
		},
	)()
	return cancel
}
