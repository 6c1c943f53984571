package sites

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pagepeek/pagepeek-go/internal/browser"
	"github.com/pagepeek/pagepeek-go/internal/capture"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/types"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// maxImageBytes bounds a single fetched image.
const maxImageBytes = 32 << 20

// ImageHandler serves direct image URLs. The bytes are fetched server-side
// when possible; the browser render path exists only for hosts that refuse
// non-browser clients.
type ImageHandler struct {
	cfg        *config.Config
	shooter    *capture.Shooter
	httpClient *http.Client
}

// NewImageHandler wires the direct image path.
func NewImageHandler(cfg *config.Config, shooter *capture.Shooter) *ImageHandler {
	return &ImageHandler{
		cfg:        cfg,
		shooter:    shooter,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Handle returns the image at the request URL. Direct fetch first, browser
// render fallback second.
func (h *ImageHandler) Handle(ctx context.Context, session *browser.Session, req *types.CaptureRequest) (*types.CaptureResult, error) {
	data, contentType, err := h.Fetch(ctx, req.URL)
	if err == nil {
		return &types.CaptureResult{Image: data, ContentType: contentType}, nil
	}
	log.Debug().Str("url", req.URL).Err(err).Msg("Direct image fetch failed, rendering in browser")

	return h.renderInBrowser(session, req.URL)
}

// Fetch downloads image bytes directly, validating the response really is an
// image before reading the body.
func (h *ImageHandler) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", version.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: content type %q", types.ErrNotAnImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", types.ErrNotAnImage)
	}
	return data, contentType, nil
}

// FetchedImage is one result of a batch fetch.
type FetchedImage struct {
	URL         string
	Data        []byte
	ContentType string
	Err         error
}

// FetchAll downloads every URL concurrently. Failures are isolated per item;
// the returned slice keeps input order.
func (h *ImageHandler) FetchAll(ctx context.Context, urls []string) []FetchedImage {
	results := make([]FetchedImage, len(urls))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, u := range urls {
		i, u := i, u
		eg.Go(func() error {
			data, contentType, err := h.Fetch(ctx, u)
			results[i] = FetchedImage{URL: u, Data: data, ContentType: contentType, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// imagePageTemplate centers the image on a neutral background.
const imagePageTemplate = `<!DOCTYPE html>
<html><head><style>
  html, body { margin: 0; background: #fff; }
  img { display: block; max-width: 100%%; }
</style></head><body>
<img id="i" src="%s">
</body></html>`

func (h *ImageHandler) renderInBrowser(session *browser.Session, rawURL string) (*types.CaptureResult, error) {
	page, err := session.NewPage()
	if err != nil {
		return nil, err
	}

	if err := page.SetDocumentContent(fmt.Sprintf(imagePageTemplate, rawURL)); err != nil {
		return nil, err
	}

	el, err := page.Timeout(h.cfg.FetchTimeout).Element("#i")
	if err != nil {
		return nil, err
	}
	defer func() { _ = el.Release() }()

	if err := el.WaitLoad(); err != nil {
		log.Debug().Err(err).Msg("Image element load wait ended early")
	}

	shot := h.shooter.Element(el, page)
	return &types.CaptureResult{Image: shot.Image, ContentType: shot.ContentType}, nil
}
