// Package selectors provides site pattern loading and management. Challenge
// detection selectors and platform scraping patterns live in an embedded YAML
// file that can be overridden (and hot-reloaded) at runtime.
package selectors

import (
	"embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsFS embed.FS

// ChallengeSelectors contains patterns for detecting and tracking an
// interstitial bot challenge.
type ChallengeSelectors struct {
	FrameHost        string   `yaml:"frame_host"`
	WidgetSelectors  []string `yaml:"widget_selectors"`
	ResponseSelector string   `yaml:"response_selector"`
	Titles           []string `yaml:"titles"`
}

// InstagramSelectors contains patterns for the embed-page scraping pipeline.
type InstagramSelectors struct {
	ImageContainerClasses []string `yaml:"image_container_classes"`
	VideoMarkers          []string `yaml:"video_markers"`
	VideoURLPatterns      []string `yaml:"video_url_patterns"`
	NextButtonSelectors   []string `yaml:"next_button_selectors"`

	// compiled from VideoURLPatterns at load time
	videoURLRegexps []*regexp.Regexp
}

// VideoURLRegexps returns the compiled video URL patterns in declaration order.
func (s *InstagramSelectors) VideoURLRegexps() []*regexp.Regexp {
	return s.videoURLRegexps
}

// Selectors is the full pattern set.
type Selectors struct {
	Challenge ChallengeSelectors `yaml:"challenge"`
	Instagram InstagramSelectors `yaml:"instagram"`
}

// parse decodes YAML bytes into a validated, compiled Selectors value.
func parse(data []byte) (*Selectors, error) {
	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse selectors: %w", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// compile validates required fields and compiles regex patterns.
func (s *Selectors) compile() error {
	if s.Challenge.FrameHost == "" {
		return fmt.Errorf("challenge.frame_host is required")
	}
	if s.Challenge.ResponseSelector == "" {
		return fmt.Errorf("challenge.response_selector is required")
	}
	s.Instagram.videoURLRegexps = s.Instagram.videoURLRegexps[:0]
	for _, pattern := range s.Instagram.VideoURLPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid video URL pattern %q: %w", pattern, err)
		}
		s.Instagram.videoURLRegexps = append(s.Instagram.videoURLRegexps, re)
	}
	return nil
}

// loadEmbedded parses the compiled-in default selectors.
func loadEmbedded() (*Selectors, error) {
	data, err := defaultSelectorsFS.ReadFile("selectors.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded selectors: %w", err)
	}
	return parse(data)
}
