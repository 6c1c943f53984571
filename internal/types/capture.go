// Package types provides shared types, interfaces, and errors for the application.
package types

import (
	"fmt"
	"net/url"
	"strings"
)

// Request validation limits.
const (
	MaxURLLength    = 8192
	MaxImageIndex   = 50
	DefaultQuality  = "high"
	MaxQualityLabel = 16
)

// CaptureRequest describes one capture operation. It is immutable once
// constructed via NewCaptureRequest.
type CaptureRequest struct {
	// URL is the validated, scheme-normalized target.
	URL string

	// FullPage captures the entire scrollable page instead of the viewport.
	FullPage bool

	// Headless controls whether the browser runs without a display.
	Headless bool

	// Verbose enables per-request debug logging.
	Verbose bool

	// ImageIndex selects a single carousel/gallery item. Zero-based;
	// negative means "all items".
	ImageIndex int

	// PreferredQuality is the quality label used when selecting among
	// video variants ("high", "medium", "low").
	PreferredQuality string
}

// NewCaptureRequest validates and normalizes the raw URL and returns an
// immutable request. A missing scheme defaults to https.
func NewCaptureRequest(rawURL string) (CaptureRequest, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return CaptureRequest{}, err
	}
	return CaptureRequest{
		URL:              normalized,
		Headless:         true,
		ImageIndex:       -1,
		PreferredQuality: DefaultQuality,
	}, nil
}

// NormalizeURL validates a raw URL and normalizes its scheme.
// Scheme-less input is treated as https.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", ErrURLRequired
	}
	if len(trimmed) > MaxURLLength {
		return "", fmt.Errorf("%w: exceeds maximum length of %d", ErrInvalidURL, MaxURLLength)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	u.Scheme = scheme
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u.String(), nil
}

// MediaKind tags the variant of a MediaItem.
type MediaKind string

// Media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaGIF   MediaKind = "gif"
)

// MediaItem is a direct media URL recovered by the extraction subsystem.
// It is independent of the CaptureResult's primary image.
type MediaItem struct {
	Kind      MediaKind `json:"kind"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Quality   string    `json:"quality,omitempty"`
	Bitrate   int       `json:"bitrate,omitempty"`
	AltText   string    `json:"altText,omitempty"`
}

// PageMetadata holds best-effort structured metadata scraped from a page.
// All fields may be empty.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	FaviconURL  string `json:"faviconUrl,omitempty"`
}

// Empty reports whether no metadata field is populated.
func (m *PageMetadata) Empty() bool {
	return m == nil || (m.Title == "" && m.Description == "" && m.ImageURL == "" && m.FaviconURL == "")
}

// CaptureResult is the outcome of a successful capture. Image is always
// non-empty; Metadata and Media are best-effort and may be absent.
type CaptureResult struct {
	Image       []byte        `json:"-"`
	ContentType string        `json:"contentType"`
	Metadata    *PageMetadata `json:"metadata,omitempty"`
	Media       []MediaItem   `json:"media,omitempty"`
}

// Valid reports whether the result satisfies the non-empty image contract.
func (r *CaptureResult) Valid() bool {
	return r != nil && len(r.Image) > 0
}
