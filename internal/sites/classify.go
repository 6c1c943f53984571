// Package sites classifies request URLs and renders each class of target.
// Classification runs once per request; handlers are dispatched on the
// resulting kind and fall through to the generic page handler on failure.
package sites

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/instagram"
	"github.com/pagepeek/pagepeek-go/internal/twitter"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// Kind is the classification of a request URL.
type Kind int

const (
	KindGeneric Kind = iota
	KindVideo
	KindImage
	KindTweet
	KindInstaPost
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	case KindTweet:
		return "tweet"
	case KindInstaPost:
		return "instagram"
	default:
		return "generic"
	}
}

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".m4v": true, ".mkv": true, ".avi": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true, ".avif": true,
}

// Prober reports the content type of a URL. Injectable for tests; the
// default issues a HEAD request with a short timeout.
type Prober func(ctx context.Context, rawURL string) (string, error)

// Classifier resolves a URL to a Kind.
type Classifier struct {
	probe Prober
}

// NewClassifier creates a classifier using the given content-type prober.
// A nil prober disables probing and unknown extensions classify as generic.
func NewClassifier(probe Prober) *Classifier {
	return &Classifier{probe: probe}
}

// NewHeadProber returns the default HEAD-request prober.
func NewHeadProber(timeout time.Duration) Prober {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, rawURL string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", version.UserAgent)
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		_ = resp.Body.Close()
		return resp.Header.Get("Content-Type"), nil
	}
}

// Classify resolves the URL's kind. Extension checks short-circuit before
// the network probe; platform patterns run before the generic fallback.
func (c *Classifier) Classify(ctx context.Context, rawURL string) Kind {
	if ext := urlExtension(rawURL); ext != "" {
		if videoExtensions[ext] {
			return KindVideo
		}
		if imageExtensions[ext] {
			return KindImage
		}
	}

	if twitter.IsStatusURL(rawURL) {
		return KindTweet
	}
	if instagram.IsPostURL(rawURL) {
		return KindInstaPost
	}

	if c.probe != nil {
		contentType, err := c.probe(ctx, rawURL)
		if err != nil {
			log.Debug().Str("url", rawURL).Err(err).Msg("Content-type probe failed")
			return KindGeneric
		}
		switch {
		case strings.HasPrefix(contentType, "video/"):
			return KindVideo
		case strings.HasPrefix(contentType, "image/"):
			return KindImage
		}
	}
	return KindGeneric
}

func urlExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}
