package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
// It is immutable once a run starts.
type Config struct {
	Run       RunConfig
	Browser   BrowserConfig
	Timing    TimingConfig
	Selectors SelectorConfig
	Log       LogConfig
	Webhook   WebhookConfig
}

// RunConfig describes what one run exports and where.
type RunConfig struct {
	// WorkspaceURL is the workspace page listing the items. Required.
	WorkspaceURL string

	// DownloadDir is where the browser saves exported files.
	DownloadDir string // default: ~/Downloads

	// MaxItems caps the number of attempted items. 0 means unbounded.
	MaxItems int

	// Delay is the pause between two items. Skipped after the last one.
	Delay time.Duration // default: 2s

	// AbortOnNavigationError makes a failed page load fatal instead of
	// continuing with whatever page state exists.
	AbortOnNavigationError bool // default: false

	// ReportPath, when set, receives the JSON run report.
	ReportPath string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: false (visible)

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserDataDir points Chromium at a persistent profile so an existing
	// login can be reused between runs.
	UserDataDir string

	// ControlURL attaches to an already running browser instead of
	// launching one. The external browser is left running on exit.
	ControlURL string

	// Stealth injects the anti-detection script before navigation.
	Stealth bool // default: false

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool // default: false

	// BlockedResourceTypes lists resource types to block.
	BlockedResourceTypes []string // default: none
}

// TimingConfig holds every fixed wait and bounded timeout of the workflow.
type TimingConfig struct {
	NavigationTimeout time.Duration // default: 30s
	NavigationSettle  time.Duration // default: 3s

	ScrollStep   int           // default: 1000 px
	ScrollSettle time.Duration // default: 1s
	MaxScrolls   int           // default: 50

	ScrollIntoViewDelay time.Duration // default: 500ms
	MenuOpenDelay       time.Duration // default: 1s
	StageDelay          time.Duration // default: 500ms

	DownloadOptionTimeout time.Duration // default: 5s
	FormatOptionTimeout   time.Duration // default: 5s
	ConfirmTimeout        time.Duration // default: 10s

	ProcessingDelay       time.Duration // default: 2s
	DownloadRegisterDelay time.Duration // default: 2s
}

// SelectorConfig locates the page affordances. The target markup changes
// over time, so every selector can be overridden from the environment.
type SelectorConfig struct {
	// ItemMenu is a CSS selector matching the per-item menu buttons.
	ItemMenu string

	// DownloadOption, FormatOption and ConfirmButton are XPath expressions
	// matching on an element's own text.
	DownloadOption string
	FormatOption   string
	ConfirmButton  string

	// TotalCount is a CSS selector scanned for the "N songs" counter.
	TotalCount string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
	File   string // default: "wavgrab.log"; empty disables the file sink
}

// WebhookConfig controls the run completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Run: RunConfig{
			WorkspaceURL:           os.Getenv("WAVGRAB_WORKSPACE_URL"),
			DownloadDir:            envOr("WAVGRAB_DOWNLOAD_DIR", DefaultDownloadDir()),
			MaxItems:               envIntOr("WAVGRAB_MAX_ITEMS", 0),
			Delay:                  envDurationOr("WAVGRAB_DELAY", 2*time.Second),
			AbortOnNavigationError: envBoolOr("WAVGRAB_ABORT_ON_NAV_ERROR", false),
			ReportPath:             os.Getenv("WAVGRAB_REPORT"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("WAVGRAB_HEADLESS", false),
			NoSandbox:            envBoolOr("WAVGRAB_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("WAVGRAB_BROWSER_BIN"),
			UserDataDir:          os.Getenv("WAVGRAB_USER_DATA_DIR"),
			ControlURL:           os.Getenv("WAVGRAB_CONTROL_URL"),
			Stealth:              envBoolOr("WAVGRAB_STEALTH", false),
			BlockAds:             envBoolOr("WAVGRAB_BLOCK_ADS", false),
			BlockedResourceTypes: envSliceOr("WAVGRAB_BLOCKED_RESOURCES", nil),
		},
		Timing: TimingConfig{
			NavigationTimeout:     envDurationOr("WAVGRAB_NAV_TIMEOUT", 30*time.Second),
			NavigationSettle:      envDurationOr("WAVGRAB_NAV_SETTLE", 3*time.Second),
			ScrollStep:            envIntOr("WAVGRAB_SCROLL_STEP", 1000),
			ScrollSettle:          envDurationOr("WAVGRAB_SCROLL_SETTLE", time.Second),
			MaxScrolls:            envIntOr("WAVGRAB_MAX_SCROLLS", 50),
			ScrollIntoViewDelay:   envDurationOr("WAVGRAB_SCROLL_INTO_VIEW_DELAY", 500*time.Millisecond),
			MenuOpenDelay:         envDurationOr("WAVGRAB_MENU_OPEN_DELAY", time.Second),
			StageDelay:            envDurationOr("WAVGRAB_STAGE_DELAY", 500*time.Millisecond),
			DownloadOptionTimeout: envDurationOr("WAVGRAB_DOWNLOAD_OPTION_TIMEOUT", 5*time.Second),
			FormatOptionTimeout:   envDurationOr("WAVGRAB_FORMAT_OPTION_TIMEOUT", 5*time.Second),
			ConfirmTimeout:        envDurationOr("WAVGRAB_CONFIRM_TIMEOUT", 10*time.Second),
			ProcessingDelay:       envDurationOr("WAVGRAB_PROCESSING_DELAY", 2*time.Second),
			DownloadRegisterDelay: envDurationOr("WAVGRAB_DOWNLOAD_REGISTER_DELAY", 2*time.Second),
		},
		Selectors: SelectorConfig{
			ItemMenu:       envOr("WAVGRAB_SEL_ITEM_MENU", `button[aria-label*="menu"], button[class*="menu"]`),
			DownloadOption: envOr("WAVGRAB_SEL_DOWNLOAD", `//div[contains(text(), 'Download')]`),
			FormatOption:   envOr("WAVGRAB_SEL_FORMAT", `//div[contains(text(), 'WAV Audio')]`),
			ConfirmButton:  envOr("WAVGRAB_SEL_CONFIRM", `//button[contains(text(), 'Download File')]`),
			TotalCount:     envOr("WAVGRAB_SEL_TOTAL_COUNT", "span, div, p"),
		},
		Log: LogConfig{
			Level:  envOr("WAVGRAB_LOG_LEVEL", "info"),
			Format: envOr("WAVGRAB_LOG_FORMAT", "text"),
			File:   envOr("WAVGRAB_LOG_FILE", "wavgrab.log"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("WAVGRAB_WEBHOOK_URL"),
			Secret: os.Getenv("WAVGRAB_WEBHOOK_SECRET"),
		},
	}
}

// Validate checks the configuration before a run starts.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Run.WorkspaceURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("workspace url %q must be an absolute http(s) URL", c.Run.WorkspaceURL)
	}
	if c.Run.DownloadDir == "" {
		return fmt.Errorf("download directory must not be empty")
	}
	if c.Run.MaxItems < 0 {
		return fmt.Errorf("max items must be >= 0, got %d", c.Run.MaxItems)
	}
	if c.Run.Delay < 0 {
		return fmt.Errorf("delay must be >= 0, got %s", c.Run.Delay)
	}
	if c.Timing.MaxScrolls < 1 {
		return fmt.Errorf("max scrolls must be >= 1, got %d", c.Timing.MaxScrolls)
	}
	if c.Timing.ScrollStep < 1 {
		return fmt.Errorf("scroll step must be >= 1, got %d", c.Timing.ScrollStep)
	}
	for name, sel := range map[string]string{
		"item menu":   c.Selectors.ItemMenu,
		"total count": c.Selectors.TotalCount,
	} {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("%s selector %q: %w", name, sel, err)
		}
	}
	for name, xp := range map[string]string{
		"download option": c.Selectors.DownloadOption,
		"format option":   c.Selectors.FormatOption,
		"confirm button":  c.Selectors.ConfirmButton,
	} {
		if !strings.HasPrefix(xp, "/") && !strings.HasPrefix(xp, "(") {
			return fmt.Errorf("%s selector %q must be an XPath expression", name, xp)
		}
	}
	if c.Webhook.URL != "" {
		if u, err := url.Parse(c.Webhook.URL); err != nil || u.Host == "" {
			return fmt.Errorf("webhook url %q is invalid", c.Webhook.URL)
		}
	}
	return nil
}

// DefaultDownloadDir returns the platform download folder (~/Downloads),
// falling back to the working directory when the home cannot be resolved.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
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
