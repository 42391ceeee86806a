// Package config loads flowguard run configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/flowguard/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. FLOWGUARD_BASE_URL.
const EnvPrefix = "FLOWGUARD_"

// Transport names.
const (
	TransportHTTP       = "http"
	TransportPlaywright = "playwright"
)

// Config represents the configuration for one flowguard run
type Config struct {
	// BaseURL is the root of the web application driven in the browser
	BaseURL string `yaml:"base_url" json:"base_url" env:"BASE_URL"`

	// APIBaseURL is the root of the backend API
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url" env:"API_BASE_URL"`

	// Transport selects the gateway transport: http or playwright
	Transport string `yaml:"transport" json:"transport" env:"TRANSPORT"`

	Headless bool `yaml:"headless" json:"headless" env:"HEADLESS"`

	// Parallel bounds how many scenarios run at once
	Parallel int `yaml:"parallel" json:"parallel" env:"PARALLEL"`

	// IdentityPrefix is prepended to scenario seeds so concurrent runs
	// against one backend never share identities
	IdentityPrefix string `yaml:"identity_prefix" json:"identity_prefix" env:"IDENTITY_PREFIX"`

	Timeouts  TimeoutConfig  `yaml:"timeouts" json:"timeouts" envPrefix:"TIMEOUTS_"`
	Overlay   OverlayConfig  `yaml:"overlay" json:"overlay" envPrefix:"OVERLAY_"`
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts" envPrefix:"ARTIFACTS_"`
	Logging   LoggingConfig  `yaml:"logging" json:"logging" envPrefix:"LOGGING_"`
}

// TimeoutConfig holds every time bound of a run.
type TimeoutConfig struct {
	Scenario   time.Duration `yaml:"scenario" json:"scenario" env:"SCENARIO"`
	Teardown   time.Duration `yaml:"teardown" json:"teardown" env:"TEARDOWN"`
	Request    time.Duration `yaml:"request" json:"request" env:"REQUEST"`
	Navigation time.Duration `yaml:"navigation" json:"navigation" env:"NAVIGATION"`
	Action     time.Duration `yaml:"action" json:"action" env:"ACTION"`

	// Overlay bounds: per visibility check, per dismissal, per pass, and
	// the delay before a pass scans
	OverlayCheck   time.Duration `yaml:"overlay_check" json:"overlay_check" env:"OVERLAY_CHECK"`
	OverlayDismiss time.Duration `yaml:"overlay_dismiss" json:"overlay_dismiss" env:"OVERLAY_DISMISS"`
	OverlayBudget  time.Duration `yaml:"overlay_budget" json:"overlay_budget" env:"OVERLAY_BUDGET"`
	OverlaySettle  time.Duration `yaml:"overlay_settle" json:"overlay_settle" env:"OVERLAY_SETTLE"`
}

// OverlayConfig configures obstruction handling.
type OverlayConfig struct {
	// InterstitialMarkers are glob patterns over the page location that
	// identify a full-page interstitial
	InterstitialMarkers []string `yaml:"interstitial_markers" json:"interstitial_markers" env:"INTERSTITIAL_MARKERS" envSeparator:","`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	OutputDir string `yaml:"output_dir" json:"output_dir" env:"OUTPUT_DIR"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json" env:"JSON"`
	Markdown bool `yaml:"markdown" json:"markdown" env:"MARKDOWN"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity" env:"VERBOSITY"`
}

// DefaultConfig returns a configuration that runs every suite against the
// public practice site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://automationexercise.com",
		APIBaseURL: "https://automationexercise.com/api/",
		Transport:  TransportHTTP,
		Headless:   true,
		Parallel:   4,
		Timeouts: TimeoutConfig{
			Scenario:       2 * time.Minute,
			Teardown:       30 * time.Second,
			Request:        10 * time.Second,
			Navigation:     30 * time.Second,
			Action:         10 * time.Second,
			OverlayCheck:   2 * time.Second,
			OverlayDismiss: 3 * time.Second,
			OverlayBudget:  10 * time.Second,
			OverlaySettle:  500 * time.Millisecond,
		},
		Overlay: OverlayConfig{
			InterstitialMarkers: []string{"*#google_vignette*"},
		},
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".flowguard/artifacts",
			JSON:      true,
			Markdown:  true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path
// (skipped when path is empty) and FLOWGUARD_ environment variables, in
// that order, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validateURL("api_base_url", c.APIBaseURL); err != nil {
		return err
	}

	if c.Transport != TransportHTTP && c.Transport != TransportPlaywright {
		return fmt.Errorf("invalid transport: %s (must be 'http' or 'playwright')", c.Transport)
	}

	if c.Parallel <= 0 {
		return fmt.Errorf("parallel must be positive, got %d", c.Parallel)
	}

	if err := c.Timeouts.validate(); err != nil {
		return err
	}

	for _, marker := range c.Overlay.InterstitialMarkers {
		if _, err := glob.Compile(marker); err != nil {
			return fmt.Errorf("invalid interstitial marker %q: %w", marker, err)
		}
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return errors.New("artifacts.output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, err := logging.ParseLevel(c.Logging.Verbosity); err != nil {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (t TimeoutConfig) validate() error {
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"scenario", t.Scenario},
		{"teardown", t.Teardown},
		{"request", t.Request},
		{"navigation", t.Navigation},
		{"action", t.Action},
		{"overlay_check", t.OverlayCheck},
		{"overlay_dismiss", t.OverlayDismiss},
		{"overlay_budget", t.OverlayBudget},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %s", p.name, p.value)
		}
	}
	// A zero settle delay scans immediately
	if t.OverlaySettle < 0 {
		return fmt.Errorf("timeouts.overlay_settle cannot be negative")
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", field, raw)
	}
	return nil
}
