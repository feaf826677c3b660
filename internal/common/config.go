package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Browser     BrowserConfig     `toml:"browser"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Storage     StorageConfig     `toml:"storage"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Logging     LoggingConfig     `toml:"logging"`
}

// Duration is a time.Duration that decodes from duration strings such as "3s"
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BrowserConfig configures the chromedp-driven browser session
type BrowserConfig struct {
	UserDataDir        string   `toml:"user_data_dir"` // Chrome profile holding an authenticated session
	UserAgent          string   `toml:"user_agent"`
	Headless           bool     `toml:"headless"`
	DisableGPU         bool     `toml:"disable_gpu"`
	NoSandbox          bool     `toml:"no_sandbox"`
	DownloadDir        string   `toml:"download_dir" validate:"required"` // Where retrieved attachments land
	WindowWidth        int      `toml:"window_width" validate:"gt=0"`
	WindowHeight       int      `toml:"window_height" validate:"gt=0"`
	JavaScriptWaitTime Duration `toml:"javascript_wait_time" validate:"gte=0"` // Settle time after opening the work item
	StartupTimeout     Duration `toml:"startup_timeout" validate:"gt=0"`
	PollInterval       Duration `toml:"poll_interval" validate:"gt=0"` // Browsing context count polling
}

// ExtractionConfig holds retry budgets, waits and date conventions for the extractors
type ExtractionConfig struct {
	HoverMaxAttempts   int             `toml:"hover_max_attempts" validate:"gte=1"`
	HoverBackoff       Duration        `toml:"hover_backoff" validate:"gte=0"`
	ContextTimeout     Duration        `toml:"context_timeout" validate:"gt=0"` // Wait for a development link's window
	MaxExpandRounds    int             `toml:"max_expand_rounds" validate:"gte=1"`
	FileNameParam      string          `toml:"file_name_param" validate:"required"`
	StrictDates        bool            `toml:"strict_dates"` // Fail on tooltip date drift instead of warning
	TooltipDateTokens  int             `toml:"tooltip_date_tokens" validate:"gte=1"`
	TooltipDateLayouts []string        `toml:"tooltip_date_layouts" validate:"min=1,dive,required"`
	AttachedDateLayout string          `toml:"attached_date_layout" validate:"required"`
	StampLayout        string          `toml:"stamp_layout" validate:"required"`
	Selectors          SelectorsConfig `toml:"selectors"`
}

// RetrievalConfig throttles attachment downloads
type RetrievalConfig struct {
	Enabled   bool     `toml:"enabled"`
	RateLimit Duration `toml:"rate_limit" validate:"gte=0"` // Minimum gap between downloads, 0 disables throttling
	Burst     int      `toml:"burst" validate:"gte=1"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the download ledger
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// DiagnosticsConfig controls raw HTML snapshots written while extracting
type DiagnosticsConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	Dir        string   `toml:"dir"`
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Browser: BrowserConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:           false, // Authenticated profiles are usually interactive
			DisableGPU:         false,
			NoSandbox:          false,
			DownloadDir:        "./data/downloads",
			WindowWidth:        1920,
			WindowHeight:       1080,
			JavaScriptWaitTime: Duration(3 * time.Second),
			StartupTimeout:     Duration(30 * time.Second),
			PollInterval:       Duration(250 * time.Millisecond),
		},
		Extraction: ExtractionConfig{
			HoverMaxAttempts:  5,
			HoverBackoff:      Duration(3 * time.Second),
			ContextTimeout:    Duration(30 * time.Second),
			MaxExpandRounds:   10,
			FileNameParam:     "fileName",
			StrictDates:       true,
			TooltipDateTokens: 4,
			TooltipDateLayouts: []string{
				"2 January 2006 15:04",
				"2 January 2006 15:04:05",
				"2 Jan 2006 15:04",
				"January 2, 2006 15:04",
			},
			AttachedDateLayout: "02/01/2006 15:04",
			StampLayout:        "2006-01-02T15:04",
			Selectors:          DefaultSelectors(),
		},
		Retrieval: RetrievalConfig{
			Enabled:   true,
			RateLimit: Duration(500 * time.Millisecond),
			Burst:     1,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/ledger",
			},
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: true,
			Dir:     "./logs",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			Dir:        "./logs",
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. The result is validated before it is returned.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies QUARRY_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("QUARRY_ENV"); env != "" {
		config.Environment = env
	}

	// Browser
	if dir := os.Getenv("QUARRY_USER_DATA_DIR"); dir != "" {
		config.Browser.UserDataDir = dir
	}
	if headless := os.Getenv("QUARRY_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}
	if dir := os.Getenv("QUARRY_DOWNLOAD_DIR"); dir != "" {
		config.Browser.DownloadDir = dir
	}

	// Extraction
	if attempts := os.Getenv("QUARRY_HOVER_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			config.Extraction.HoverMaxAttempts = n
		}
	}
	if backoff := os.Getenv("QUARRY_HOVER_BACKOFF"); backoff != "" {
		if d, err := time.ParseDuration(backoff); err == nil {
			config.Extraction.HoverBackoff = Duration(d)
		}
	}
	if timeout := os.Getenv("QUARRY_CONTEXT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Extraction.ContextTimeout = Duration(d)
		}
	}
	if strict := os.Getenv("QUARRY_STRICT_DATES"); strict != "" {
		if b, err := strconv.ParseBool(strict); err == nil {
			config.Extraction.StrictDates = b
		}
	}

	// Storage
	if path := os.Getenv("QUARRY_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	// Logging
	if level := os.Getenv("QUARRY_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("QUARRY_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Each tooltip layout must cover exactly the trailing token window
	for _, layout := range c.Extraction.TooltipDateLayouts {
		if n := len(strings.Fields(layout)); n != c.Extraction.TooltipDateTokens {
			return fmt.Errorf("invalid configuration: tooltip layout %q has %d tokens, expected %d",
				layout, n, c.Extraction.TooltipDateTokens)
		}
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
