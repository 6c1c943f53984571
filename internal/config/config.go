// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxRetries          = 10
	maxNavTimeout       = 5 * time.Minute
	maxLaunchTimeout    = 2 * time.Minute
	maxCarouselSteps    = 50
	maxRateLimitRPM     = 10000
	maxViewportDim      = 7680
	minViewportDim      = 320
	maxBlocklistSources = 16
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup.
type Config struct {
	// Server settings
	Host string
	Port int

	// Browser settings
	Headless       bool
	BrowserPath    string
	ViewportWidth  int
	ViewportHeight int
	LaunchTimeout  time.Duration

	// Timeouts
	NavTimeout         time.Duration // navigation + network quiescence wait
	FontTimeout        time.Duration // font readiness wait
	ChallengeTimeout   time.Duration // bot-challenge clearance polling
	ProbeTimeout       time.Duration // content-type HEAD probe
	BrowserCloseGrace  time.Duration // browser close before falling back to kill
	VideoFrameTimeout  time.Duration // wait for a decoded video frame
	FetchTimeout       time.Duration // server-side media fetches
	RequestMaxDuration time.Duration // whole-pipeline bound per inbound request

	// Retry settings
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Media extraction
	SyndicationBaseURL string // Platform A read-only endpoint
	SyndicationToken   string
	EmbedBaseURL       string // Platform B embed endpoint
	CarouselMaxSteps   int

	// Blocklist engine
	BlocklistEnabled bool
	BlocklistURLs    []string

	// Logging
	LogLevel string

	// Metrics
	PrometheusEnabled bool
	PrometheusPort    int

	// Security
	RateLimitEnabled bool
	RateLimitRPM     int
	TrustProxy       bool
	AllowPrivateIPs  bool     // allow captures of private / loopback hosts
	CORSOrigins      []string // allowed CORS origins, empty rejects cross-origin

	// Selectors settings
	SelectorsPath      string // Path to external selectors.yaml override file
	SelectorsHotReload bool   // Enable file watching for hot-reload of selectors
}

// Load loads configuration from environment variables.
// Returns a Config with values from environment or sensible defaults.
func Load() *Config {
	return &Config{
		// Server - default to localhost for security (prevents accidental exposure)
		// Set HOST=0.0.0.0 explicitly to bind to all interfaces
		Host: getEnvString("HOST", "127.0.0.1"),
		Port: getEnvInt("PORT", 8290),

		// Browser
		Headless:       getEnvBool("HEADLESS", true),
		BrowserPath:    getEnvString("BROWSER_PATH", ""),
		ViewportWidth:  getEnvInt("VIEWPORT_WIDTH", 1280),
		ViewportHeight: getEnvInt("VIEWPORT_HEIGHT", 800),
		LaunchTimeout:  getEnvDuration("LAUNCH_TIMEOUT", 30*time.Second),

		// Timeouts
		NavTimeout:         getEnvDuration("NAV_TIMEOUT", 20*time.Second),
		FontTimeout:        getEnvDuration("FONT_TIMEOUT", 3*time.Second),
		ChallengeTimeout:   getEnvDuration("CHALLENGE_TIMEOUT", 15*time.Second),
		ProbeTimeout:       getEnvDuration("PROBE_TIMEOUT", 4*time.Second),
		BrowserCloseGrace:  getEnvDuration("BROWSER_CLOSE_GRACE", 5*time.Second),
		VideoFrameTimeout:  getEnvDuration("VIDEO_FRAME_TIMEOUT", 10*time.Second),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		RequestMaxDuration: getEnvDuration("REQUEST_MAX_DURATION", 120*time.Second),

		// Retry
		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),

		// Media extraction
		SyndicationBaseURL: getEnvString("SYNDICATION_BASE_URL", "https://cdn.syndication.twimg.com"),
		SyndicationToken:   getEnvString("SYNDICATION_TOKEN", "0"),
		EmbedBaseURL:       getEnvString("EMBED_BASE_URL", "https://www.instagram.com"),
		CarouselMaxSteps:   getEnvInt("CAROUSEL_MAX_STEPS", 12),

		// Blocklist
		BlocklistEnabled: getEnvBool("BLOCKLIST_ENABLED", true),
		BlocklistURLs:    getEnvStringSlice("BLOCKLIST_URLS", nil),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		// Metrics - disabled by default
		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),
		PrometheusPort:    getEnvInt("PROMETHEUS_PORT", 9290),

		// Security
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 60),
		TrustProxy:       getEnvBool("TRUST_PROXY", false),
		AllowPrivateIPs:  getEnvBool("ALLOW_PRIVATE_IPS", false),
		CORSOrigins:      getEnvStringSlice("CORS_ORIGINS", nil),

		// Selectors
		SelectorsPath:      getEnvString("SELECTORS_PATH", ""),
		SelectorsHotReload: getEnvBool("SELECTORS_HOT_RELOAD", false),
	}
}

// Validate checks configuration bounds and clamps out-of-range values,
// logging a warning for each adjustment. It never fails: a misconfigured
// value degrades to the nearest safe bound.
func (c *Config) Validate() {
	if c.MaxRetries < 0 {
		log.Warn().Int("max_retries", c.MaxRetries).Msg("MAX_RETRIES negative, using 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries > maxRetries {
		log.Warn().Int("max_retries", c.MaxRetries).Int("max", maxRetries).Msg("MAX_RETRIES too large, clamping")
		c.MaxRetries = maxRetries
	}
	if c.RetryBaseDelay <= 0 {
		log.Warn().Dur("retry_base_delay", c.RetryBaseDelay).Msg("RETRY_BASE_DELAY must be positive, using 500ms")
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.NavTimeout <= 0 || c.NavTimeout > maxNavTimeout {
		log.Warn().Dur("nav_timeout", c.NavTimeout).Msg("NAV_TIMEOUT out of range, using 20s")
		c.NavTimeout = 20 * time.Second
	}
	if c.LaunchTimeout <= 0 || c.LaunchTimeout > maxLaunchTimeout {
		log.Warn().Dur("launch_timeout", c.LaunchTimeout).Msg("LAUNCH_TIMEOUT out of range, using 30s")
		c.LaunchTimeout = 30 * time.Second
	}
	if c.CarouselMaxSteps <= 0 || c.CarouselMaxSteps > maxCarouselSteps {
		log.Warn().Int("carousel_max_steps", c.CarouselMaxSteps).Msg("CAROUSEL_MAX_STEPS out of range, using 12")
		c.CarouselMaxSteps = 12
	}
	if c.RateLimitRPM <= 0 || c.RateLimitRPM > maxRateLimitRPM {
		log.Warn().Int("rate_limit_rpm", c.RateLimitRPM).Msg("RATE_LIMIT_RPM out of range, using 60")
		c.RateLimitRPM = 60
	}
	if c.ViewportWidth < minViewportDim || c.ViewportWidth > maxViewportDim {
		log.Warn().Int("viewport_width", c.ViewportWidth).Msg("VIEWPORT_WIDTH out of range, using 1280")
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight < minViewportDim || c.ViewportHeight > maxViewportDim {
		log.Warn().Int("viewport_height", c.ViewportHeight).Msg("VIEWPORT_HEIGHT out of range, using 800")
		c.ViewportHeight = 800
	}
	if len(c.BlocklistURLs) > maxBlocklistSources {
		log.Warn().Int("count", len(c.BlocklistURLs)).Int("max", maxBlocklistSources).Msg("Too many blocklist sources, truncating")
		c.BlocklistURLs = c.BlocklistURLs[:maxBlocklistSources]
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as int or a default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer in environment, using default")
		return defaultValue
	}
	return parsed
}

// getEnvBool returns the environment variable parsed as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean in environment, using default")
		return defaultValue
	}
	return parsed
}

// getEnvDuration returns the environment variable parsed as a duration or a
// default. Plain integers are interpreted as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration in environment, using default")
		return defaultValue
	}
	return parsed
}

// getEnvStringSlice returns a comma-separated environment variable as a
// slice, or the default. Empty entries are dropped.
func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
