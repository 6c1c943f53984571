// Package instagram extracts media from posts via the captioned embed
// endpoint. Extraction is structured-first: the embedded JSON blob is
// preferred, HTML scraping is the fallback when the blob is missing or
// malformed.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/challenge"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
	"github.com/pagepeek/pagepeek-go/internal/types"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// maxEmbedBytes bounds the embed HTML read.
const maxEmbedBytes = 4 << 20

// jsonBlobMarker locates the structured post data inside the embed HTML.
const jsonBlobMarker = `{"shortcode_media"`

// Client fetches and parses post embed pages.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	selectors  *selectors.Manager
}

// NewClient creates an embed client from service configuration.
func NewClient(cfg *config.Config, mgr *selectors.Manager) *Client {
	return &Client{
		baseURL:    cfg.EmbedBaseURL,
		userAgent:  version.UserAgent,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		selectors:  mgr,
	}
}

// Post is the extracted result.
type Post struct {
	Caption string
	Media   []types.MediaItem
}

// Extract resolves a post URL to its media items via the embed endpoint.
func (c *Client) Extract(ctx context.Context, rawURL string) (*Post, error) {
	shortcode, err := ExtractShortcode(rawURL)
	if err != nil {
		return nil, types.NewExtractionError("instagram", rawURL, "no shortcode in URL", err)
	}

	embedHTML, err := c.fetchEmbed(ctx, shortcode)
	if err != nil {
		return nil, types.NewExtractionError("instagram", rawURL, "embed fetch failed", err)
	}

	post, err := c.Parse(embedHTML)
	if err != nil {
		return nil, types.NewExtractionError("instagram", rawURL, "embed parse failed", err)
	}
	return post, nil
}

func (c *Client) fetchEmbed(ctx context.Context, shortcode string) (string, error) {
	endpoint := fmt.Sprintf("%s/p/%s/embed/captioned/", c.baseURL, shortcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("embed endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbedBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Parse extracts media from embed HTML. The JSON blob path is tried first,
// then the srcset scrape.
func (c *Client) Parse(embedHTML string) (*Post, error) {
	if post, err := c.parseJSONBlob(embedHTML); err == nil {
		return post, nil
	} else {
		log.Debug().Err(err).Msg("Embed JSON blob unavailable, scraping HTML")
	}

	post, err := c.scrapeHTML(embedHTML)
	if err != nil {
		chSel := c.selectors.Get().Challenge
		if challenge.DetectInHTML(embedHTML, &chSel) {
			return nil, fmt.Errorf("%w: embed endpoint served a bot challenge", types.ErrEmbedParse)
		}
		return nil, fmt.Errorf("%w: %w", types.ErrExtractionFailed, err)
	}
	return post, nil
}

// parseJSONBlob decodes the structured post data embedded in the page.
func (c *Client) parseJSONBlob(embedHTML string) (*Post, error) {
	idx := strings.Index(embedHTML, jsonBlobMarker)
	if idx < 0 {
		return nil, types.ErrEmbedParse
	}

	var wrapper struct {
		ShortcodeMedia mediaNode `json:"shortcode_media"`
	}
	// Decode stops at the end of the first JSON value, trailing page
	// content is fine.
	dec := json.NewDecoder(strings.NewReader(embedHTML[idx:]))
	if err := dec.Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("decoding embed blob: %w", err)
	}

	root := &wrapper.ShortcodeMedia
	if root.Typename == "" {
		return nil, types.ErrEmbedParse
	}

	items := flatten(root)
	if len(items) == 0 {
		return nil, types.ErrNoMedia
	}

	log.Debug().Str("typename", root.Typename).Int("media", len(items)).Msg("Parsed embed JSON blob")
	return &Post{Caption: cleanCaption(root.caption()), Media: items}, nil
}

// scrapeHTML recovers media from the rendered embed markup when the JSON
// blob is missing. Videos get three URL patterns tried in order before
// degrading to the thumbnail.
func (c *Client) scrapeHTML(embedHTML string) (*Post, error) {
	sel := c.selectors.Get().Instagram

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(embedHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing embed html: %w", err)
	}

	imageURL := findContainerImage(doc, sel.ImageContainerClasses)
	if imageURL == "" {
		return nil, types.ErrNoMedia
	}

	caption := cleanCaption(doc.Find(".Caption").First().Text())

	if hasVideoMarker(embedHTML, sel.VideoMarkers) {
		for _, re := range sel.VideoURLRegexps() {
			if m := re.FindStringSubmatch(embedHTML); len(m) > 1 {
				// URLs inside JSON script blocks carry escaped slashes.
				videoURL := html.UnescapeString(strings.ReplaceAll(m[1], `\/`, "/"))
				return &Post{
					Caption: caption,
					Media: []types.MediaItem{{
						Kind:      types.MediaVideo,
						URL:       videoURL,
						Thumbnail: imageURL,
					}},
				}, nil
			}
		}
		// Video post with no recoverable file URL: thumbnail only.
		log.Debug().Msg("Video markers present but no file URL found")
	}

	return &Post{
		Caption: caption,
		Media:   []types.MediaItem{{Kind: types.MediaImage, URL: imageURL}},
	}, nil
}

// findContainerImage locates the post image and prefers the widest srcset
// source over the bare src.
func findContainerImage(doc *goquery.Document, containerClasses []string) string {
	for _, class := range containerClasses {
		// "EmbeddedMediaImage" targets the img itself, "EmbedFrame img"
		// targets an img inside a container.
		selector := "img." + class
		if fields := strings.Fields(class); len(fields) > 1 {
			selector = "." + fields[0] + " " + strings.Join(fields[1:], " ")
		}
		img := doc.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		if srcset, ok := img.Attr("srcset"); ok {
			if u := widestSrcsetSource(srcset); u != "" {
				return u
			}
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}

var srcsetWidthPattern = regexp.MustCompile(`^(\d+)w$`)

// widestSrcsetSource parses a srcset attribute and returns the URL with the
// largest width descriptor.
func widestSrcsetSource(srcset string) string {
	bestURL := ""
	bestWidth := -1
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) == 0 {
			continue
		}
		width := 0
		if len(fields) > 1 {
			if m := srcsetWidthPattern.FindStringSubmatch(fields[1]); len(m) > 1 {
				width, _ = strconv.Atoi(m[1])
			}
		}
		if width > bestWidth {
			bestWidth = width
			bestURL = fields[0]
		}
	}
	return bestURL
}

func hasVideoMarker(embedHTML string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(embedHTML, marker) {
			return true
		}
	}
	return false
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// cleanCaption decodes HTML entities and strips markup from caption text.
func cleanCaption(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := tagPattern.ReplaceAllString(raw, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
