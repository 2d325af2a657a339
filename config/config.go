package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	WebDriver WebDriverConfig
	Fetch     FetchConfig
	Search    SearchConfig
	Log       LogConfig
}

// BrowserConfig controls browser launch behavior shared by both transports.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	// Default: false — a visible window is harder to fingerprint.
	Headless bool

	// BrowserBin overrides the Chrome/Chromium binary path.
	BrowserBin string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// UserAgent overrides the spoofed user agent string.
	UserAgent string

	// ProfileDir selects the Chrome user data directory.
	// "auto" discovers the OS default profile; empty means auto when
	// headed and ephemeral when headless; any other value is a path.
	ProfileDir string

	// LockFallback treats a locked profile as a transport failure,
	// letting auto mode fall over to the next transport. When false
	// (default) a locked profile surfaces immediately.
	LockFallback bool

	// BlockedResourceTypes lists resource types the DevTools transport
	// aborts during load. default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// WebDriverConfig controls the WebDriver transport.
type WebDriverConfig struct {
	// DriverPath is the chromedriver binary. default: "chromedriver" (PATH lookup)
	DriverPath string

	// Port pins the chromedriver port. 0 picks a free port.
	Port int

	// RemoteURL points at an already-running WebDriver endpoint.
	// When set, no chromedriver process is started.
	RemoteURL string
}

// FetchConfig controls fetch operation limits.
type FetchConfig struct {
	// DefaultTimeout is the per-request navigation timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the caller.
	MaxTimeout time.Duration // default: 120s

	// DefaultWait is the post-load JavaScript rendering pause.
	DefaultWait time.Duration // default: 2s

	// MaxContentLength is the default truncation ceiling.
	MaxContentLength int // default: 50000
}

// SearchConfig controls search pagination.
type SearchConfig struct {
	// MaxPages bounds how many results pages one search navigates.
	MaxPages int // default: 3

	// PageDelay is the minimum spacing between page navigations.
	PageDelay time.Duration // default: 1s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     envBoolOr("FORAGE_HEADLESS", false),
			BrowserBin:   os.Getenv("FORAGE_BROWSER_BIN"),
			NoSandbox:    envBoolOr("FORAGE_NO_SANDBOX", false),
			UserAgent:    os.Getenv("FORAGE_USER_AGENT"),
			ProfileDir:   os.Getenv("FORAGE_PROFILE"),
			LockFallback: envBoolOr("FORAGE_LOCK_FALLBACK", false),
			BlockedResourceTypes: envSliceOr("FORAGE_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		WebDriver: WebDriverConfig{
			DriverPath: envOr("FORAGE_CHROMEDRIVER", "chromedriver"),
			Port:       envIntOr("FORAGE_WEBDRIVER_PORT", 0),
			RemoteURL:  os.Getenv("FORAGE_WEBDRIVER_URL"),
		},
		Fetch: FetchConfig{
			DefaultTimeout:   envDurationOr("FORAGE_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:       envDurationOr("FORAGE_MAX_TIMEOUT", 120*time.Second),
			DefaultWait:      envDurationOr("FORAGE_DEFAULT_WAIT", 2*time.Second),
			MaxContentLength: envIntOr("FORAGE_MAX_CONTENT_LENGTH", 50000),
		},
		Search: SearchConfig{
			MaxPages:  envIntOr("FORAGE_SEARCH_MAX_PAGES", 3),
			PageDelay: envDurationOr("FORAGE_SEARCH_PAGE_DELAY", time.Second),
		},
		Log: LogConfig{
			Level:  envOr("FORAGE_LOG_LEVEL", "info"),
			Format: envOr("FORAGE_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
