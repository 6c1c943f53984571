// Package twitter extracts media from individual posts via the public
// syndication endpoint, the same unauthenticated API the official embed
// widget uses.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/types"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// Client fetches post data from the syndication endpoint.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a syndication client from service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   cfg.SyndicationBaseURL,
		token:     cfg.SyndicationToken,
		userAgent: version.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}
}

// tweetEnvelope is the subset of the syndication response we consume. The
// same video can appear in up to three shapes; all are collected and
// deduplicated downstream.
type tweetEnvelope struct {
	Text string `json:"text"`
	User struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Photos []struct {
		URL                string `json:"url"`
		Width              int    `json:"width"`
		Height             int    `json:"height"`
		AccessibilityLabel string `json:"accessibilityLabel"`
	} `json:"photos"`
	Video struct {
		Poster   string `json:"poster"`
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
	} `json:"video"`
	MediaDetails []struct {
		Type          string `json:"type"`
		MediaURLHTTPS string `json:"media_url_https"`
		ExtAltText    string `json:"ext_alt_text"`
		VideoInfo     struct {
			Variants []struct {
				Bitrate     int    `json:"bitrate"`
				ContentType string `json:"content_type"`
				URL         string `json:"url"`
			} `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
	ExtendedEntities struct {
		Media []struct {
			Type          string `json:"type"`
			MediaURLHTTPS string `json:"media_url_https"`
			ExtAltText    string `json:"ext_alt_text"`
			VideoInfo     struct {
				Variants []struct {
					Bitrate     int    `json:"bitrate"`
					ContentType string `json:"content_type"`
					URL         string `json:"url"`
				} `json:"variants"`
			} `json:"video_info"`
		} `json:"media"`
	} `json:"extended_entities"`
}

// Post is the extracted result: author text plus all media items.
type Post struct {
	Text   string
	Author string
	Media  []types.MediaItem
}

// Extract resolves a status URL to its media items. Returns
// types.ErrNoMedia when the post carries no photos or videos.
func (c *Client) Extract(ctx context.Context, rawURL string) (*Post, error) {
	id, err := ExtractTweetID(rawURL)
	if err != nil {
		return nil, types.NewExtractionError("twitter", rawURL, "no post ID in URL", err)
	}

	envelope, err := c.fetch(ctx, id)
	if err != nil {
		return nil, types.NewExtractionError("twitter", rawURL, "syndication fetch failed", err)
	}

	media := parseMedia(envelope)
	if len(media) == 0 {
		return nil, types.NewExtractionError("twitter", rawURL, "post has no media", types.ErrNoMedia)
	}

	log.Debug().Str("id", id).Int("media", len(media)).Msg("Extracted post media")
	return &Post{
		Text:   html.UnescapeString(envelope.Text),
		Author: envelope.User.ScreenName,
		Media:  media,
	}, nil
}

func (c *Client) fetch(ctx context.Context, id string) (*tweetEnvelope, error) {
	endpoint := fmt.Sprintf("%s/tweet-result?id=%s&token=%s", c.baseURL, id, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("syndication endpoint returned status %d", resp.StatusCode)
	}

	var envelope tweetEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding syndication response: %w", err)
	}

	log.Debug().Str("id", id).Dur("elapsed", time.Since(start)).Msg("Syndication fetch complete")
	return &envelope, nil
}

// parseMedia flattens the envelope into media items. Photos come first in
// document order, then video variants sorted by bitrate descending.
func parseMedia(envelope *tweetEnvelope) []types.MediaItem {
	var items []types.MediaItem
	seen := make(map[string]bool)

	for _, photo := range envelope.Photos {
		if photo.URL == "" || seen[photo.URL] {
			continue
		}
		seen[photo.URL] = true
		items = append(items, types.MediaItem{
			Kind:    types.MediaImage,
			URL:     photo.URL,
			AltText: photo.AccessibilityLabel,
		})
	}

	var variants []variant

	for _, md := range envelope.MediaDetails {
		switch md.Type {
		case "video", "animated_gif":
			kind := types.MediaVideo
			if md.Type == "animated_gif" {
				kind = types.MediaGIF
			}
			for _, v := range md.VideoInfo.Variants {
				if v.ContentType == "video/mp4" {
					variants = append(variants, variant{
						url:       v.URL,
						bitrate:   v.Bitrate,
						thumbnail: md.MediaURLHTTPS,
						kind:      kind,
					})
				}
			}
		case "photo":
			if md.MediaURLHTTPS == "" || seen[md.MediaURLHTTPS] {
				continue
			}
			seen[md.MediaURLHTTPS] = true
			items = append(items, types.MediaItem{
				Kind:    types.MediaImage,
				URL:     md.MediaURLHTTPS,
				AltText: md.ExtAltText,
			})
		}
	}

	for _, em := range envelope.ExtendedEntities.Media {
		if em.Type != "video" && em.Type != "animated_gif" {
			continue
		}
		kind := types.MediaVideo
		if em.Type == "animated_gif" {
			kind = types.MediaGIF
		}
		for _, v := range em.VideoInfo.Variants {
			if v.ContentType == "video/mp4" {
				variants = append(variants, variant{
					url:       v.URL,
					bitrate:   v.Bitrate,
					thumbnail: em.MediaURLHTTPS,
					kind:      kind,
				})
			}
		}
	}

	// The bare video object has no bitrates, keep it only when nothing
	// better was found.
	if len(variants) == 0 && envelope.Video.Poster != "" {
		for _, v := range envelope.Video.Variants {
			if v.Type == "video/mp4" {
				variants = append(variants, variant{
					url:       v.Src,
					thumbnail: envelope.Video.Poster,
					kind:      types.MediaVideo,
				})
			}
		}
	}

	return append(items, labelVariants(dedupeVariants(variants))...)
}
