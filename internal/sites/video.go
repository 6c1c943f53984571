package sites

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/browser"
	"github.com/pagepeek/pagepeek-go/internal/capture"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/types"
)

// videoFramePage renders the video into a canvas so a decoded frame can be
// captured as a still image.
const videoFramePage = `<!DOCTYPE html>
<html><head><style>
  html, body { margin: 0; background: #000; }
  canvas { display: block; }
  video { display: none; }
</style></head><body>
<video id="v" crossorigin="anonymous" muted playsinline preload="auto"></video>
<canvas id="c"></canvas>
</body></html>`

// waitFrameJS resolves true once a non-black decoded frame has been drawn to
// the canvas, false when the video errors out.
const waitFrameJS = `(src) => new Promise((resolve) => {
	const video = document.getElementById('v');
	const canvas = document.getElementById('c');
	const ctx = canvas.getContext('2d');

	const drawAndCheck = () => {
		canvas.width = video.videoWidth || 1280;
		canvas.height = video.videoHeight || 720;
		ctx.drawImage(video, 0, 0, canvas.width, canvas.height);
		const data = ctx.getImageData(0, 0, canvas.width, canvas.height).data;
		const stride = 4 * 97;
		for (let i = 0; i < data.length; i += stride) {
			if (data[i] > 16 || data[i + 1] > 16 || data[i + 2] > 16) {
				return true;
			}
		}
		return false;
	};

	let polls = 0;
	const poll = () => {
		if (video.readyState >= 2 && drawAndCheck()) {
			resolve(true);
			return;
		}
		if (++polls > 100) {
			resolve(false);
			return;
		}
		setTimeout(poll, 100);
	};

	video.addEventListener('error', () => resolve(false));
	video.src = src;
	video.currentTime = 0.1;
	video.play().catch(() => {});
	poll();
})`

// VideoHandler captures a representative frame from a direct video URL.
type VideoHandler struct {
	cfg     *config.Config
	shooter *capture.Shooter
}

// NewVideoHandler wires the synthetic-page video capture path.
func NewVideoHandler(cfg *config.Config, shooter *capture.Shooter) *VideoHandler {
	return &VideoHandler{cfg: cfg, shooter: shooter}
}

// Handle loads the video in a synthetic page and screenshots its first
// decoded non-black frame. Returns types.ErrNoVideoFrame when no usable
// frame appears in time, which the caller treats as a fallthrough signal.
func (h *VideoHandler) Handle(ctx context.Context, session *browser.Session, req *types.CaptureRequest) (*types.CaptureResult, error) {
	page, err := session.NewPage()
	if err != nil {
		return nil, err
	}

	if err := page.SetDocumentContent(videoFramePage); err != nil {
		return nil, fmt.Errorf("preparing video frame page: %w", err)
	}

	got, err := waitForFrame(page, req.URL, h.cfg)
	if err != nil {
		log.Debug().Str("url", req.URL).Err(err).Msg("Video frame wait failed")
		return nil, types.ErrNoVideoFrame
	}
	if !got {
		return nil, types.ErrNoVideoFrame
	}

	canvas, err := page.Element("#c")
	if err != nil {
		return nil, types.ErrNoVideoFrame
	}
	defer func() { _ = canvas.Release() }()

	shot := h.shooter.Element(canvas, page)
	return &types.CaptureResult{
		Image:       shot.Image,
		ContentType: shot.ContentType,
		Media: []types.MediaItem{{
			Kind: types.MediaVideo,
			URL:  req.URL,
		}},
	}, nil
}

func waitForFrame(page *rod.Page, videoURL string, cfg *config.Config) (bool, error) {
	res, err := page.Timeout(cfg.VideoFrameTimeout).Eval(waitFrameJS, videoURL)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}
