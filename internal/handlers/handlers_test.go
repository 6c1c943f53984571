package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// fakePipeline returns a canned result or error.
type fakePipeline struct {
	result  *types.CaptureResult
	err     error
	lastReq *types.CaptureRequest
}

func (f *fakePipeline) Capture(ctx context.Context, req *types.CaptureRequest) (*types.CaptureResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestHandler(p CapturePipeline) *Handler {
	return New(p, stats.NewTracker(), config.Load())
}

func TestHandleCaptureSuccess(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4E, 0x47}
	fake := &fakePipeline{result: &types.CaptureResult{
		Image:       image,
		ContentType: "image/png",
		Metadata:    &types.PageMetadata{Title: "Example"},
		Media:       []types.MediaItem{{Kind: types.MediaVideo, URL: "https://v.test/clip.mp4", Quality: "high"}},
	}}
	h := newTestHandler(fake)

	req := httptest.NewRequest(http.MethodGet,
		"/capture?url=https://example.com&fullpage=true&img_index=2&verbose=1", nil)
	rec := httptest.NewRecorder()
	h.HandleCapture(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status      string            `json:"status"`
		Image       string            `json:"image"`
		ContentType string            `json:"contentType"`
		Media       []types.MediaItem `json:"media"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.ContentType != "image/png" {
		t.Errorf("body = %+v", body)
	}
	decoded, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil || len(decoded) != len(image) {
		t.Errorf("image did not round-trip: %v", err)
	}
	if len(body.Media) != 1 || body.Media[0].Quality != "high" {
		t.Errorf("media = %+v", body.Media)
	}

	if fake.lastReq == nil {
		t.Fatal("pipeline was not invoked")
	}
	if !fake.lastReq.FullPage || !fake.lastReq.Verbose {
		t.Errorf("flags not parsed: %+v", fake.lastReq)
	}
	if fake.lastReq.ImageIndex != 2 {
		t.Errorf("imageIndex = %d", fake.lastReq.ImageIndex)
	}
	if fake.lastReq.URL != "https://example.com" {
		t.Errorf("url = %q", fake.lastReq.URL)
	}
}

func TestHandleCaptureNoMetadata(t *testing.T) {
	fake := &fakePipeline{result: &types.CaptureResult{
		Image:       []byte{0x89, 0x50},
		ContentType: "image/png",
	}}
	h := newTestHandler(fake)

	req := httptest.NewRequest(http.MethodGet, "/capture?url=https://cdn.test/clip.mp4", nil)
	rec := httptest.NewRecorder()
	h.HandleCapture(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["metadata"]; ok {
		t.Error("metadata must be omitted when the handler produced none")
	}
}

func TestHandleCaptureMissingURL(t *testing.T) {
	h := newTestHandler(&fakePipeline{})

	rec := httptest.NewRecorder()
	h.HandleCapture(rec, httptest.NewRequest(http.MethodGet, "/capture", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCaptureBadImgIndex(t *testing.T) {
	h := newTestHandler(&fakePipeline{})

	rec := httptest.NewRecorder()
	h.HandleCapture(rec, httptest.NewRequest(http.MethodGet,
		"/capture?url=https://example.com&img_index=pony", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCapturePipelineError(t *testing.T) {
	h := newTestHandler(&fakePipeline{err: errors.New("browser failed to start")})

	rec := httptest.NewRecorder()
	h.HandleCapture(rec, httptest.NewRequest(http.MethodGet, "/capture?url=https://example.com", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "error" || body["message"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleCaptureInputErrorIs400(t *testing.T) {
	h := newTestHandler(&fakePipeline{err: types.ErrInvalidURL})

	rec := httptest.NewRecorder()
	h.HandleCapture(rec, httptest.NewRequest(http.MethodGet, "/capture?url=https://example.com", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.RecordSuccess("https://example.com/", 100*time.Millisecond)
	tracker.RecordFailure("https://example.org/", time.Second, "timeout")

	h := New(&fakePipeline{}, tracker, config.Load())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Requests != 2 || body.Successes != 1 || body.Failures != 1 {
		t.Errorf("body = %+v", body)
	}
	if body.Hosts != nil {
		t.Error("host detail must be opt-in")
	}

	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health?verbose=1", nil))
	var verbose healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &verbose); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(verbose.Hosts) != 2 {
		t.Errorf("hosts = %v", verbose.Hosts)
	}
}

func TestRouterRoutes(t *testing.T) {
	cfg := config.Load()
	cfg.RateLimitEnabled = false
	h := New(&fakePipeline{result: &types.CaptureResult{Image: []byte{1}, ContentType: "image/png"}},
		stats.NewTracker(), cfg)
	router := NewRouter(h, cfg)

	tests := []struct {
		path string
		want int
	}{
		{"/capture?url=https://example.com", http.StatusOK},
		{"/health", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}
