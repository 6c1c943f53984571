// Package capture turns a live page into image bytes. Screenshot strategies
// are tried in order of fidelity; the final strategy always succeeds, so a
// capture can degrade but never fail outright.
package capture

import (
	_ "embed"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/metrics"
)

// placeholderPNG is served when every live screenshot strategy fails, which
// usually means the renderer crashed or the target closed mid-capture.
//
//go:embed placeholder.png
var placeholderPNG []byte

// simplifiedJPEGQuality trades fidelity for a capture that survives heavy
// pages where a full render times out.
const simplifiedJPEGQuality = 60

const strategyTimeout = 20 * time.Second

// Result is the produced image plus which strategy produced it.
type Result struct {
	Image       []byte
	ContentType string
	Level       string
}

// strategy is one attempt at producing image bytes.
type strategy struct {
	name        string
	contentType string
	shoot       func() ([]byte, error)
}

// Shooter captures screenshots of pages and elements.
type Shooter struct{}

// NewShooter creates a screenshot shooter.
func NewShooter() *Shooter { return &Shooter{} }

// Page captures the page, full height or viewport only. Never returns an
// empty image: when all live strategies fail the placeholder is returned.
func (s *Shooter) Page(page *rod.Page, fullPage bool) *Result {
	return run(pageStrategies(page, fullPage))
}

// Element captures a single element, falling back to page-level capture when
// the element cannot be shot on its own.
func (s *Shooter) Element(el *rod.Element, page *rod.Page) *Result {
	strategies := []strategy{
		{
			name:        "element",
			contentType: "image/png",
			shoot: func() ([]byte, error) {
				return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
			},
		},
	}
	strategies = append(strategies, pageStrategies(page, false)...)
	return run(strategies)
}

func pageStrategies(page *rod.Page, fullPage bool) []strategy {
	bounded := func() *rod.Page { return page.Timeout(strategyTimeout) }
	return []strategy{
		{
			name:        "standard",
			contentType: "image/png",
			shoot: func() ([]byte, error) {
				return bounded().Screenshot(fullPage, &proto.PageCaptureScreenshot{
					Format: proto.PageCaptureScreenshotFormatPng,
				})
			},
		},
		{
			name:        "simplified",
			contentType: "image/jpeg",
			shoot: func() ([]byte, error) {
				// Viewport-only JPEG: cheaper for the renderer than a
				// stitched full-page PNG.
				return bounded().Screenshot(false, &proto.PageCaptureScreenshot{
					Format:  proto.PageCaptureScreenshotFormatJpeg,
					Quality: intPtr(simplifiedJPEGQuality),
				})
			},
		},
		{
			name:        "protocol",
			contentType: "image/png",
			shoot: func() ([]byte, error) {
				res, err := proto.PageCaptureScreenshot{
					Format:           proto.PageCaptureScreenshotFormatPng,
					OptimizeForSpeed: true,
				}.Call(bounded())
				if err != nil {
					return nil, err
				}
				return res.Data, nil
			},
		},
	}
}

// run tries each strategy in order and falls back to the placeholder.
func run(strategies []strategy) *Result {
	for _, st := range strategies {
		img, err := st.shoot()
		if err != nil {
			log.Debug().Str("strategy", st.name).Err(err).Msg("Screenshot strategy failed")
			continue
		}
		if len(img) == 0 {
			log.Debug().Str("strategy", st.name).Msg("Screenshot strategy returned no data")
			continue
		}
		if st.name != "standard" {
			log.Warn().Str("strategy", st.name).Msg("Capture degraded to fallback strategy")
		}
		metrics.CaptureLevel.WithLabelValues(st.name).Inc()
		return &Result{Image: img, ContentType: st.contentType, Level: st.name}
	}

	log.Error().Msg("All screenshot strategies failed, serving placeholder")
	metrics.CaptureLevel.WithLabelValues("placeholder").Inc()
	return &Result{Image: placeholderPNG, ContentType: "image/png", Level: "placeholder"}
}

func intPtr(v int) *int { return &v }
