// Package pipeline orchestrates one capture request end to end: browser
// session lifecycle, site classification, handler dispatch and outer
// retries. Each retry attempt runs against a fresh browser session.
package pipeline

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/blocklist"
	"github.com/pagepeek/pagepeek-go/internal/browser"
	"github.com/pagepeek/pagepeek-go/internal/capture"
	"github.com/pagepeek/pagepeek-go/internal/challenge"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/instagram"
	"github.com/pagepeek/pagepeek-go/internal/metrics"
	"github.com/pagepeek/pagepeek-go/internal/retry"
	"github.com/pagepeek/pagepeek-go/internal/security"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
	"github.com/pagepeek/pagepeek-go/internal/sites"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/internal/twitter"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// Pipeline owns every collaborator needed to serve a capture request.
type Pipeline struct {
	cfg        *config.Config
	classifier *sites.Classifier
	generic    *sites.GenericHandler
	video      *sites.VideoHandler
	image      *sites.ImageHandler
	twitter    *twitter.Client
	instagram  *instagram.Client
	carousel   *instagram.Carousel
	tracker    *stats.Tracker
}

// New wires the pipeline. The blocklist engine and selectors manager are
// constructed once at startup and shared read-only across requests.
func New(cfg *config.Config, mgr *selectors.Manager, bl *blocklist.Engine, tracker *stats.Tracker) *Pipeline {
	shooter := capture.NewShooter()
	solver := challenge.NewSolver(mgr, cfg.ChallengeTimeout)

	return &Pipeline{
		cfg:        cfg,
		classifier: sites.NewClassifier(sites.NewHeadProber(cfg.ProbeTimeout)),
		generic:    sites.NewGenericHandler(cfg, solver, shooter, bl, tracker),
		video:      sites.NewVideoHandler(cfg, shooter),
		image:      sites.NewImageHandler(cfg, shooter),
		twitter:    twitter.NewClient(cfg),
		instagram:  instagram.NewClient(cfg, mgr),
		carousel:   instagram.NewCarousel(mgr, cfg.CarouselMaxSteps),
		tracker:    tracker,
	}
}

// Capture runs the full request: validate, classify, dispatch, retry.
func (p *Pipeline) Capture(ctx context.Context, req *types.CaptureRequest) (*types.CaptureResult, error) {
	if err := security.ValidateTarget(req.URL, p.cfg.AllowPrivateIPs); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestMaxDuration)
	defer cancel()

	kind := p.classifier.Classify(ctx, req.URL)
	logURL := security.RedactURL(req.URL)
	log.Info().Str("url", logURL).Str("kind", kind.String()).Msg("Capture request started")

	start := time.Now()
	attempts := 0
	result, err := retry.Do(ctx, retry.Options{
		MaxRetries:  p.cfg.MaxRetries,
		BaseDelay:   p.cfg.RetryBaseDelay,
		IsRetryable: retry.IsTransient,
	}, func(ctx context.Context) (*types.CaptureResult, error) {
		attempts++
		return p.attempt(ctx, req, kind)
	})
	elapsed := time.Since(start)

	metrics.RetryAttempts.Observe(float64(attempts))
	if err != nil {
		metrics.ObserveRequest(kind.String(), "error", elapsed)
		p.tracker.RecordFailure(req.URL, elapsed, err.Error())
		log.Error().Str("url", logURL).Int("attempts", attempts).Err(err).Msg("Capture request failed")
		return nil, err
	}

	metrics.ObserveRequest(kind.String(), "ok", elapsed)
	p.tracker.RecordSuccess(req.URL, elapsed)
	log.Info().
		Str("url", logURL).
		Str("kind", kind.String()).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("Capture request complete")
	return result, nil
}

// attempt runs one try on a fresh browser session. Specialized handlers fall
// through to the generic page handler, which by contract always produces an
// image.
func (p *Pipeline) attempt(ctx context.Context, req *types.CaptureRequest, kind sites.Kind) (*types.CaptureResult, error) {
	session, err := browser.NewSession(ctx, p.cfg, req.Headless)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	switch kind {
	case sites.KindVideo:
		if result, err := p.video.Handle(ctx, session, req); err == nil {
			return result, nil
		} else {
			log.Debug().Err(err).Msg("Video handler fell through to generic")
		}
	case sites.KindImage:
		if result, err := p.image.Handle(ctx, session, req); err == nil {
			return result, nil
		} else {
			log.Debug().Err(err).Msg("Image handler fell through to generic")
		}
	case sites.KindTweet:
		return p.captureTweet(ctx, session, req)
	case sites.KindInstaPost:
		return p.captureInstaPost(ctx, session, req)
	}

	result, _, err := p.generic.Handle(ctx, session, req)
	return result, err
}

// captureTweet combines the page screenshot with media pulled from the
// syndication endpoint. Extraction failure degrades to a plain screenshot.
func (p *Pipeline) captureTweet(ctx context.Context, session *browser.Session, req *types.CaptureRequest) (*types.CaptureResult, error) {
	result, _, err := p.generic.Handle(ctx, session, req)
	if err != nil {
		return nil, err
	}

	post, err := p.twitter.Extract(ctx, req.URL)
	if err != nil {
		log.Debug().Err(err).Msg("Tweet media extraction failed, screenshot only")
		return result, nil
	}

	result.Media = post.Media
	if meta := ensureMetadata(result); meta.Description == "" {
		meta.Description = post.Text
	}
	if req.PreferredQuality != "" {
		if best := twitter.BestVideoURL(post.Media, req.PreferredQuality); best != "" {
			log.Debug().Str("quality", req.PreferredQuality).Str("url", best).Msg("Selected preferred video variant")
		}
	}
	return result, nil
}

// captureInstaPost prefers the embed endpoint; when it yields nothing and a
// specific carousel item was requested, the live page is paged through
// interactively.
func (p *Pipeline) captureInstaPost(ctx context.Context, session *browser.Session, req *types.CaptureRequest) (*types.CaptureResult, error) {
	result, page, err := p.generic.Handle(ctx, session, req)
	if err != nil {
		return nil, err
	}

	media, caption := p.instaMedia(ctx, page, req)
	if len(media) == 0 {
		return result, nil
	}

	if req.ImageIndex >= 0 {
		if req.ImageIndex >= len(media) {
			return nil, types.NewExtractionError("instagram", req.URL, "image index out of range", types.ErrNoMedia)
		}
		media = media[req.ImageIndex : req.ImageIndex+1]
		// Serve the selected image itself when it can be fetched.
		if media[0].Kind == types.MediaImage {
			if data, contentType, err := p.image.Fetch(ctx, media[0].URL); err == nil {
				result.Image = data
				result.ContentType = contentType
			}
		}
	} else if urls := galleryImageURLs(media); len(urls) > 0 {
		// Full-gallery requests settle every image fetch before responding
		// so dead CDN entries never reach the client.
		fetched := p.image.FetchAll(ctx, urls)
		media = dropUnreachableImages(media, fetched)
	}

	result.Media = media
	if meta := ensureMetadata(result); meta.Description == "" {
		meta.Description = caption
	}
	return result, nil
}

// ensureMetadata returns the result's metadata, allocating it when a
// specialized handler produced none.
func ensureMetadata(result *types.CaptureResult) *types.PageMetadata {
	if result.Metadata == nil {
		result.Metadata = &types.PageMetadata{}
	}
	return result.Metadata
}

// galleryImageURLs returns the URLs of image items in gallery order.
func galleryImageURLs(media []types.MediaItem) []string {
	var urls []string
	for _, item := range media {
		if item.Kind == types.MediaImage {
			urls = append(urls, item.URL)
		}
	}
	return urls
}

// dropUnreachableImages removes image items whose batch fetch failed.
// Non-image items pass through untouched.
func dropUnreachableImages(media []types.MediaItem, fetched []sites.FetchedImage) []types.MediaItem {
	failed := make(map[string]struct{})
	for _, f := range fetched {
		if f.Err != nil {
			failed[f.URL] = struct{}{}
		}
	}
	if len(failed) == 0 {
		return media
	}

	kept := media[:0:0]
	for _, item := range media {
		if item.Kind == types.MediaImage {
			if _, bad := failed[item.URL]; bad {
				log.Debug().Str("url", item.URL).Msg("Dropping unreachable gallery image")
				continue
			}
		}
		kept = append(kept, item)
	}
	return kept
}

func (p *Pipeline) instaMedia(ctx context.Context, page *rod.Page, req *types.CaptureRequest) ([]types.MediaItem, string) {
	post, err := p.instagram.Extract(ctx, req.URL)
	if err == nil {
		return post.Media, post.Caption
	}
	log.Debug().Err(err).Msg("Embed extraction failed")

	if req.ImageIndex < 0 || page == nil {
		return nil, ""
	}

	// The page is already rendered by the generic handler; page through the
	// live carousel instead.
	items, err := p.carousel.Collect(ctx, page)
	if err != nil {
		log.Debug().Err(err).Msg("Live carousel collection failed")
		return nil, ""
	}
	return items, ""
}
