package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/blocklist"
	"github.com/pagepeek/pagepeek-go/internal/browser"
	"github.com/pagepeek/pagepeek-go/internal/capture"
	"github.com/pagepeek/pagepeek-go/internal/challenge"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/navigate"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// GenericHandler renders any web page and captures it. It is the
// unconditional fallback for every other handler, so its capture path can
// degrade but cannot fail.
type GenericHandler struct {
	cfg       *config.Config
	solver    *challenge.Solver
	shooter   *capture.Shooter
	blocklist *blocklist.Engine
	tracker   *stats.Tracker
}

// NewGenericHandler wires the page capture path.
func NewGenericHandler(cfg *config.Config, solver *challenge.Solver, shooter *capture.Shooter, bl *blocklist.Engine, tracker *stats.Tracker) *GenericHandler {
	return &GenericHandler{cfg: cfg, solver: solver, shooter: shooter, blocklist: bl, tracker: tracker}
}

// Handle navigates to the request URL and captures the page. The rendered
// page is returned alongside the result so callers can keep interacting
// with it before the session closes.
func (h *GenericHandler) Handle(ctx context.Context, session *browser.Session, req *types.CaptureRequest) (*types.CaptureResult, *rod.Page, error) {
	page, err := session.NewPage()
	if err != nil {
		return nil, nil, err
	}

	if req.Verbose {
		stop := browser.LogPageEvents(page)
		defer stop()
	}

	if h.blocklist != nil {
		stop := h.blocklist.Enable(page)
		defer stop()
	}

	if err := navigate.Goto(page, req.URL, navigate.Options{
		NavTimeout:  h.cfg.NavTimeout,
		IdleTimeout: h.cfg.NavTimeout / 2,
		FontTimeout: h.cfg.FontTimeout,
	}); err != nil {
		return nil, nil, err
	}

	if detected, _ := h.solver.Check(ctx, page); detected && h.tracker != nil {
		h.tracker.RecordChallenge(req.URL)
	}

	metadata := extractMetadata(page, req.URL)
	shot := h.shooter.Page(page, req.FullPage)

	return &types.CaptureResult{
		Image:       shot.Image,
		ContentType: shot.ContentType,
		Metadata:    &metadata,
	}, page, nil
}

// extractMetadata pulls title, description and preview image out of the
// rendered document. Best effort; an empty struct is fine.
func extractMetadata(page *rod.Page, pageURL string) types.PageMetadata {
	var meta types.PageMetadata

	html, err := page.HTML()
	if err != nil {
		log.Debug().Err(err).Msg("Could not read page HTML for metadata")
		return meta
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && meta.Title == "" {
		meta.Title = strings.TrimSpace(og)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	} else if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(og)
	}

	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		meta.ImageURL = resolveRef(pageURL, img)
	}

	for _, sel := range []string{`link[rel="icon"]`, `link[rel="shortcut icon"]`, `link[rel="apple-touch-icon"]`} {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			meta.FaviconURL = resolveRef(pageURL, href)
			break
		}
	}
	return meta
}

func resolveRef(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
