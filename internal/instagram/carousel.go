package instagram

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
	"github.com/ysmood/gson"

	"github.com/pagepeek/pagepeek-go/internal/humanize"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// collectImagesJS gathers the post's currently visible content image URLs.
// Profile pictures are rendered first in the DOM, so the first URL collected
// across a session is reliably the author's avatar.
const collectImagesJS = `() => {
	const urls = [];
	for (const img of document.querySelectorAll('img')) {
		const src = img.currentSrc || img.src;
		if (src && src.startsWith('http') && img.naturalWidth > 100) {
			urls.push(src);
		}
	}
	return urls;
}`

// Carousel pages through a multi-item post on a live page, collecting image
// URLs as each item is revealed.
type Carousel struct {
	selectors *selectors.Manager
	timing    *humanize.Timing
	maxSteps  int
}

// NewCarousel creates a collector bounded at maxSteps click iterations.
func NewCarousel(mgr *selectors.Manager, maxSteps int) *Carousel {
	return &Carousel{
		selectors: mgr,
		timing:    humanize.NewTiming(),
		maxSteps:  maxSteps,
	}
}

// Collect clicks through the carousel and returns distinct content image
// URLs in reveal order. The first URL seen is dropped as the author avatar.
// Indexing of the result is zero-based.
func (c *Carousel) Collect(ctx context.Context, page *rod.Page) ([]types.MediaItem, error) {
	sel := c.selectors.Get().Instagram

	seen := make(map[string]bool)
	var ordered []string

	collect := func() {
		res, err := page.Timeout(5 * time.Second).Eval(collectImagesJS)
		if err != nil {
			log.Debug().Err(err).Msg("Carousel image collection eval failed")
			return
		}
		for _, u := range urlsFromEval(res.Value.Arr()) {
			if seen[u] {
				continue
			}
			seen[u] = true
			ordered = append(ordered, u)
		}
	}

	collect()
	for step := 0; step < c.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			break
		}
		if !c.clickNext(page, sel.NextButtonSelectors) {
			break
		}
		if !humanize.Sleep(ctx, c.timing.PollInterval()) {
			break
		}
		collect()
	}

	if len(ordered) <= 1 {
		return nil, types.ErrNoMedia
	}

	// Drop the avatar.
	items := make([]types.MediaItem, 0, len(ordered)-1)
	for _, u := range ordered[1:] {
		items = append(items, types.MediaItem{Kind: types.MediaImage, URL: u})
	}
	log.Debug().Int("images", len(items)).Msg("Carousel collection complete")
	return items, nil
}

// urlsFromEval converts an evaluated JS string array to Go strings.
func urlsFromEval(arr []gson.JSON) []string {
	urls := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := v.Str(); s != "" {
			urls = append(urls, s)
		}
	}
	return urls
}

// clickNext presses the first matching next affordance. Returns false when
// the carousel has no further items.
func (c *Carousel) clickNext(page *rod.Page, nextSelectors []string) bool {
	for _, selector := range nextSelectors {
		el, err := page.Timeout(time.Second).Element(selector)
		if err != nil {
			continue
		}
		time.Sleep(c.timing.ClickDelay())
		err = el.Click(proto.InputMouseButtonLeft, 1)
		_ = el.Release()
		if err != nil {
			log.Debug().Str("selector", selector).Err(err).Msg("Carousel next click failed")
			continue
		}
		return true
	}
	return false
}
