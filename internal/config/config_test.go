package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8290 {
		t.Errorf("Port = %d, want 8290", cfg.Port)
	}
	if !cfg.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.NavTimeout != 20*time.Second {
		t.Errorf("NavTimeout = %v, want 20s", cfg.NavTimeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.SyndicationBaseURL != "https://cdn.syndication.twimg.com" {
		t.Errorf("SyndicationBaseURL = %q", cfg.SyndicationBaseURL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HEADLESS", "false")
	t.Setenv("NAV_TIMEOUT", "45s")
	t.Setenv("FONT_TIMEOUT", "2") // plain integer means seconds
	t.Setenv("BLOCKLIST_URLS", "https://a.example/list.txt, https://b.example/list.txt,")

	cfg := Load()

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Headless {
		t.Error("Headless should be false")
	}
	if cfg.NavTimeout != 45*time.Second {
		t.Errorf("NavTimeout = %v, want 45s", cfg.NavTimeout)
	}
	if cfg.FontTimeout != 2*time.Second {
		t.Errorf("FontTimeout = %v, want 2s", cfg.FontTimeout)
	}
	if len(cfg.BlocklistURLs) != 2 {
		t.Fatalf("BlocklistURLs = %v, want 2 entries", cfg.BlocklistURLs)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("HEADLESS", "maybe")
	t.Setenv("NAV_TIMEOUT", "soonish")

	cfg := Load()

	if cfg.Port != 8290 {
		t.Errorf("Port = %d, want default 8290", cfg.Port)
	}
	if !cfg.Headless {
		t.Error("Headless should fall back to default true")
	}
	if cfg.NavTimeout != 20*time.Second {
		t.Errorf("NavTimeout = %v, want default 20s", cfg.NavTimeout)
	}
}

func TestValidateClampsOutOfRange(t *testing.T) {
	cfg := Load()
	cfg.MaxRetries = 100
	cfg.RetryBaseDelay = -time.Second
	cfg.CarouselMaxSteps = 0
	cfg.ViewportWidth = 10
	cfg.RateLimitRPM = -5

	cfg.Validate()

	if cfg.MaxRetries != maxRetries {
		t.Errorf("MaxRetries = %d, want clamped to %d", cfg.MaxRetries, maxRetries)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 500ms", cfg.RetryBaseDelay)
	}
	if cfg.CarouselMaxSteps != 12 {
		t.Errorf("CarouselMaxSteps = %d, want 12", cfg.CarouselMaxSteps)
	}
	if cfg.ViewportWidth != 1280 {
		t.Errorf("ViewportWidth = %d, want 1280", cfg.ViewportWidth)
	}
	if cfg.RateLimitRPM != 60 {
		t.Errorf("RateLimitRPM = %d, want 60", cfg.RateLimitRPM)
	}
}

func TestValidateKeepsInRangeValues(t *testing.T) {
	cfg := Load()
	cfg.MaxRetries = 5
	cfg.NavTimeout = time.Minute

	cfg.Validate()

	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.NavTimeout != time.Minute {
		t.Errorf("NavTimeout = %v, want 1m", cfg.NavTimeout)
	}
}
