package selectors

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaultsLoad(t *testing.T) {
	s, err := loadEmbedded()
	if err != nil {
		t.Fatalf("loadEmbedded: %v", err)
	}
	if s.Challenge.FrameHost != "challenges.cloudflare.com" {
		t.Errorf("FrameHost = %q", s.Challenge.FrameHost)
	}
	if s.Challenge.ResponseSelector == "" {
		t.Error("ResponseSelector must not be empty")
	}
	if len(s.Challenge.WidgetSelectors) == 0 {
		t.Error("expected widget selectors")
	}
	if len(s.Instagram.VideoURLRegexps()) != len(s.Instagram.VideoURLPatterns) {
		t.Errorf("compiled %d regexps for %d patterns",
			len(s.Instagram.VideoURLRegexps()), len(s.Instagram.VideoURLPatterns))
	}
	if len(s.Instagram.VideoURLPatterns) != 3 {
		t.Errorf("expected 3 ordered video URL patterns, got %d", len(s.Instagram.VideoURLPatterns))
	}
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	_, err := parse([]byte("challenge:\n  frame_host: \"\"\n"))
	if err == nil {
		t.Fatal("expected error for missing frame_host")
	}
}

func TestParseRejectsBadRegex(t *testing.T) {
	data := []byte(`
challenge:
  frame_host: "challenges.cloudflare.com"
  response_selector: "input"
instagram:
  video_url_patterns:
    - "(["
`)
	if _, err := parse(data); err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}

func TestManagerWithoutOverride(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if m.Get().Challenge.FrameHost == "" {
		t.Error("manager should serve embedded defaults")
	}
	if m.ReloadCount() != 0 {
		t.Errorf("ReloadCount = %d, want 0", m.ReloadCount())
	}
}

func TestManagerOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	override := []byte(`
challenge:
  frame_host: "challenges.example.net"
  response_selector: "input[name=resp]"
`)
	if err := os.WriteFile(path, override, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if got := m.Get().Challenge.FrameHost; got != "challenges.example.net" {
		t.Errorf("FrameHost = %q, want override value", got)
	}
	if m.ReloadCount() != 1 {
		t.Errorf("ReloadCount = %d, want 1", m.ReloadCount())
	}
}

func TestManagerBrokenOverrideKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if got := m.Get().Challenge.FrameHost; got != "challenges.cloudflare.com" {
		t.Errorf("broken override must keep embedded defaults, got %q", got)
	}
}

func TestManagerCloseIdempotent(t *testing.T) {
	m, err := NewManager("", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
