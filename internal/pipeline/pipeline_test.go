package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pagepeek/pagepeek-go/internal/blocklist"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/security"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
	"github.com/pagepeek/pagepeek-go/internal/sites"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	mgr, err := selectors.NewManager("", false)
	if err != nil {
		t.Fatalf("load selectors: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	cfg := config.Load()
	bl := blocklist.New(context.Background(), nil)
	return New(cfg, mgr, bl, stats.NewTracker())
}

func TestNewWiresAllHandlers(t *testing.T) {
	p := newTestPipeline(t)
	if p.classifier == nil || p.generic == nil || p.video == nil || p.image == nil {
		t.Fatal("handlers must be wired")
	}
	if p.twitter == nil || p.instagram == nil || p.carousel == nil {
		t.Fatal("extraction clients must be wired")
	}
}

func TestCaptureRejectsBlockedTargets(t *testing.T) {
	p := newTestPipeline(t)

	for _, target := range []string{
		"http://127.0.0.1/admin",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/",
	} {
		req, err := types.NewCaptureRequest(target)
		if err != nil {
			t.Fatalf("NewCaptureRequest(%q): %v", target, err)
		}
		_, err = p.Capture(context.Background(), &req)
		if err == nil {
			t.Errorf("Capture(%q) must be rejected", target)
			continue
		}
		if !errors.Is(err, security.ErrInvalidTarget) &&
			!errors.Is(err, security.ErrPrivateIPBlocked) &&
			!errors.Is(err, security.ErrMetadataBlocked) {
			t.Errorf("Capture(%q) err = %v, want a target validation error", target, err)
		}
	}
}

func TestEnsureMetadata(t *testing.T) {
	result := &types.CaptureResult{}
	meta := ensureMetadata(result)
	if meta == nil || result.Metadata == nil {
		t.Fatal("metadata must be allocated on demand")
	}
	meta.Description = "caption"
	if result.Metadata.Description != "caption" {
		t.Error("returned metadata must alias the result's")
	}

	existing := &types.PageMetadata{Title: "kept"}
	result = &types.CaptureResult{Metadata: existing}
	if ensureMetadata(result) != existing {
		t.Error("existing metadata must not be replaced")
	}
}

func TestDropUnreachableImages(t *testing.T) {
	media := []types.MediaItem{
		{Kind: types.MediaImage, URL: "https://cdn.test/a.jpg"},
		{Kind: types.MediaVideo, URL: "https://cdn.test/v.mp4"},
		{Kind: types.MediaImage, URL: "https://cdn.test/b.jpg"},
		{Kind: types.MediaImage, URL: "https://cdn.test/c.jpg"},
	}
	if got := galleryImageURLs(media); len(got) != 3 || got[1] != "https://cdn.test/b.jpg" {
		t.Fatalf("galleryImageURLs = %v", got)
	}

	fetched := []sites.FetchedImage{
		{URL: "https://cdn.test/a.jpg", Data: []byte{1}},
		{URL: "https://cdn.test/b.jpg", Err: errors.New("503 from cdn")},
		{URL: "https://cdn.test/c.jpg", Data: []byte{2}},
	}
	kept := dropUnreachableImages(media, fetched)
	if len(kept) != 3 {
		t.Fatalf("kept = %+v, want 3 items", kept)
	}
	for _, item := range kept {
		if item.URL == "https://cdn.test/b.jpg" {
			t.Error("failed fetch must drop the image item")
		}
	}
	if kept[1].Kind != types.MediaVideo {
		t.Error("non-image items must pass through in order")
	}

	allOK := []sites.FetchedImage{{URL: "https://cdn.test/a.jpg", Data: []byte{1}}}
	if got := dropUnreachableImages(media, allOK); len(got) != len(media) {
		t.Error("no failures must keep the slice intact")
	}
}
