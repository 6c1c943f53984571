package blocklist

import (
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// Enable installs a request interceptor on the page that fails any request
// whose host matches the engine. Returns a cleanup function for the router;
// safe to defer even when installation partially fails.
func (e *Engine) Enable(page *rod.Page) func() {
	router := page.HijackRequests()

	router.MustAdd("*", func(ctx *rod.Hijack) {
		reqURL := ctx.Request.URL()
		if reqURL != nil && e.Match(hostOf(reqURL)) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()

	log.Debug().Int("rules", e.Size()).Msg("Request blocking enabled on page")

	return func() {
		if err := router.Stop(); err != nil {
			log.Debug().Err(err).Msg("Failed to stop hijack router")
		}
	}
}

func hostOf(u *url.URL) string {
	return u.Hostname()
}
