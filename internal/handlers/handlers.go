// Package handlers implements the HTTP API: GET /capture and GET /health.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/security"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/internal/types"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

// CapturePipeline is the core the HTTP layer drives. Satisfied by
// *pipeline.Pipeline.
type CapturePipeline interface {
	Capture(ctx context.Context, req *types.CaptureRequest) (*types.CaptureResult, error)
}

// Handler serves the capture API.
type Handler struct {
	pipeline CapturePipeline
	tracker  *stats.Tracker
	cfg      *config.Config
	started  time.Time
}

// New creates the API handler.
func New(p CapturePipeline, tracker *stats.Tracker, cfg *config.Config) *Handler {
	return &Handler{
		pipeline: p,
		tracker:  tracker,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// captureResponse is the success body for /capture.
type captureResponse struct {
	Status      string              `json:"status"`
	Image       string              `json:"image"`
	ContentType string              `json:"contentType"`
	Metadata    *types.PageMetadata `json:"metadata,omitempty"`
	Media       []types.MediaItem   `json:"media,omitempty"`
	StartTime   int64               `json:"startTimestamp"`
	EndTime     int64               `json:"endTimestamp"`
	Version     string              `json:"version"`
}

// HandleCapture serves GET /capture.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	req, err := parseCaptureRequest(r)
	if err != nil {
		h.writeErrorWithStatus(w, http.StatusBadRequest, err.Error(), startTime)
		return
	}

	result, err := h.pipeline.Capture(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusBadRequest
		}
		h.writeErrorWithStatus(w, status, err.Error(), startTime)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, captureResponse{
		Status:      "ok",
		Image:       base64.StdEncoding.EncodeToString(result.Image),
		ContentType: result.ContentType,
		Metadata:    result.Metadata,
		Media:       result.Media,
		StartTime:   startTime.UnixMilli(),
		EndTime:     time.Now().UnixMilli(),
		Version:     version.Full(),
	})
}

// parseCaptureRequest builds a validated capture request from query
// parameters. Boolean parameters accept 1/t/true (any case).
func parseCaptureRequest(r *http.Request) (*types.CaptureRequest, error) {
	q := r.URL.Query()

	req, err := types.NewCaptureRequest(q.Get("url"))
	if err != nil {
		return nil, err
	}

	if v := q.Get("fullpage"); v != "" {
		req.FullPage = parseBool(v)
	}
	if v := q.Get("headless"); v != "" {
		req.Headless = parseBool(v)
	}
	if v := q.Get("verbose"); v != "" {
		req.Verbose = parseBool(v)
	}
	if v := q.Get("img_index"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < -1 {
			return nil, types.ErrInvalidRequest
		}
		req.ImageIndex = idx
	}
	if v := q.Get("quality"); v != "" {
		req.PreferredQuality = v
	}
	return &req, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// isInputError separates caller mistakes from pipeline failures for status
// code selection.
func isInputError(err error) bool {
	return errors.Is(err, types.ErrInvalidRequest) ||
		errors.Is(err, types.ErrInvalidURL) ||
		errors.Is(err, types.ErrURLRequired) ||
		errors.Is(err, security.ErrInvalidTarget) ||
		errors.Is(err, security.ErrBlockedScheme) ||
		errors.Is(err, security.ErrPrivateIPBlocked) ||
		errors.Is(err, security.ErrMetadataBlocked)
}

// healthResponse is the body for /health.
type healthResponse struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	UptimeSec int64                     `json:"uptimeSec"`
	Requests  int64                     `json:"requests"`
	Successes int64                     `json:"successes"`
	Failures  int64                     `json:"failures"`
	Hosts     map[string]stats.HostStats `json:"hosts,omitempty"`
}

// HandleHealth serves GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	requests, successes, failures := h.tracker.Totals()

	resp := healthResponse{
		Status:    "ok",
		Version:   version.Full(),
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Requests:  requests,
		Successes: successes,
		Failures:  failures,
	}
	if r.URL.Query().Get("verbose") != "" {
		resp.Hosts = h.tracker.Snapshot()
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// HandleNotFound serves unknown paths.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeErrorWithStatus(w, http.StatusNotFound, "Not found", time.Now())
}

type errorBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	StartTime int64  `json:"startTimestamp"`
	EndTime   int64  `json:"endTimestamp"`
	Version   string `json:"version"`
}

func (h *Handler) writeErrorWithStatus(w http.ResponseWriter, statusCode int, message string, startTime time.Time) {
	h.writeJSONResponse(w, statusCode, errorBody{
		Status:    "error",
		Message:   message,
		StartTime: startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Version:   version.Full(),
	})
}

func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
