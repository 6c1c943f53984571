package types

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "plain https url unchanged",
			input: "https://example.com/page",
			want:  "https://example.com/page",
		},
		{
			name:  "scheme-less defaults to https",
			input: "example.com/page",
			want:  "https://example.com/page",
		},
		{
			name:  "http preserved",
			input: "http://example.com",
			want:  "http://example.com",
		},
		{
			name:  "uppercase scheme normalized",
			input: "HTTPS://example.com",
			want:  "https://example.com",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  https://example.com  ",
			want:  "https://example.com",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrURLRequired,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: ErrURLRequired,
		},
		{
			name:    "unsupported scheme",
			input:   "ftp://example.com/file",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "javascript scheme rejected",
			input:   "javascript://alert(1)",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "missing host",
			input:   "https:///path",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "oversized url rejected",
			input:   "https://example.com/" + strings.Repeat("a", MaxURLLength),
			wantErr: ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizeURL(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeURL(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewCaptureRequestDefaults(t *testing.T) {
	req, err := NewCaptureRequest("example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Headless {
		t.Error("expected Headless to default to true")
	}
	if req.ImageIndex != -1 {
		t.Errorf("ImageIndex = %d, want -1 (all items)", req.ImageIndex)
	}
	if req.PreferredQuality != DefaultQuality {
		t.Errorf("PreferredQuality = %q, want %q", req.PreferredQuality, DefaultQuality)
	}
}

func TestCaptureResultValid(t *testing.T) {
	var nilResult *CaptureResult
	if nilResult.Valid() {
		t.Error("nil result must not be valid")
	}
	if (&CaptureResult{}).Valid() {
		t.Error("empty image must not be valid")
	}
	if !(&CaptureResult{Image: []byte{0x89}}).Valid() {
		t.Error("non-empty image must be valid")
	}
}

func TestLaunchErrorUnwrap(t *testing.T) {
	cause := errors.New("exec: chrome not found")
	err := NewLaunchError("launch", "browser process failed to start", cause)
	if !errors.Is(err, ErrBrowserLaunch) {
		t.Error("launch-stage error should match ErrBrowserLaunch")
	}
	if !errors.Is(err, cause) {
		t.Error("launch error should match its concrete cause")
	}

	tests := []struct {
		stage    string
		sentinel error
	}{
		{"launch", ErrBrowserLaunch},
		{"connect", ErrBrowserConnect},
		{"page", ErrPageCreate},
	}
	for _, tt := range tests {
		err := NewLaunchError(tt.stage, "stage failed", nil)
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("stage %q should match %v", tt.stage, tt.sentinel)
		}
	}

	timeoutErr := NewLaunchError("launch", "browser did not start in time", nil)
	if timeoutErr.Error() == "" {
		t.Error("nil-cause launch error must still have a message")
	}
}

func TestExtractionErrorUnwrap(t *testing.T) {
	err := NewExtractionError("twitter", "https://x.com/a/status/1", "empty envelope", ErrNoMedia)
	if !errors.Is(err, ErrNoMedia) {
		t.Error("ExtractionError should unwrap to its cause")
	}
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatal("errors.As should find ExtractionError")
	}
	if extractErr.Pipeline != "twitter" {
		t.Errorf("Pipeline = %q, want %q", extractErr.Pipeline, "twitter")
	}
}
