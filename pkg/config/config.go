// Package config holds the run configuration for the verification pipeline.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults mirror the original verification scenario: the built matchbox web
// page and its friends-list component.
const (
	DefaultTarget   = "matchbox_web/dist/test.html"
	DefaultSelector = "matchbox-friends-list"
	DefaultOutput   = "verification/verification.png"

	DefaultWaitTimeout   = 10 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultSettleTimeout = 5 * time.Second
	DefaultRunTimeout    = 60 * time.Second
)

// Config carries everything a single verification run needs.
type Config struct {
	// Target is the page to load: a URL, a local file path, or (when
	// ServeDir is set) a path resolved against the served directory.
	Target string
	// ServeDir, when non-empty, names a directory of built assets served
	// over an ephemeral loopback listener for the duration of the run.
	// Pages using module scripts often refuse to boot from file:// URLs.
	ServeDir string
	// Selector names the custom element whose visibility is verified.
	Selector string
	// OutputPath is where the success screenshot is written.
	OutputPath string

	// WaitTimeout bounds the wait for the element to become visible.
	WaitTimeout time.Duration
	// PollInterval is the fixed interval between visibility probes.
	PollInterval time.Duration
	// SettleTimeout bounds the post-navigation wait for the page's own
	// startup scripts to finish mutating the DOM.
	SettleTimeout time.Duration
	// RunTimeout is the external deadline for the whole run.
	RunTimeout time.Duration

	Headless   bool
	BrowserBin string
}

// FromEnv builds a Config from SMOKECHECK_* environment variables, falling
// back to the defaults above. There is no configuration file.
func FromEnv() Config {
	return Config{
		Target:        getEnvOrDefault("SMOKECHECK_TARGET", DefaultTarget),
		ServeDir:      os.Getenv("SMOKECHECK_SERVE_DIR"),
		Selector:      getEnvOrDefault("SMOKECHECK_SELECTOR", DefaultSelector),
		OutputPath:    getEnvOrDefault("SMOKECHECK_OUTPUT", DefaultOutput),
		WaitTimeout:   getDurationOrDefault("SMOKECHECK_WAIT_TIMEOUT", DefaultWaitTimeout),
		PollInterval:  getDurationOrDefault("SMOKECHECK_POLL_INTERVAL", DefaultPollInterval),
		SettleTimeout: getDurationOrDefault("SMOKECHECK_SETTLE_TIMEOUT", DefaultSettleTimeout),
		RunTimeout:    getDurationOrDefault("SMOKECHECK_RUN_TIMEOUT", DefaultRunTimeout),
		Headless:      getEnvOrDefault("SMOKECHECK_HEADLESS", "true") != "false",
		BrowserBin:    os.Getenv("CHROME_BIN"),
	}
}

// Validate rejects configurations that would waste a browser launch.
func (c Config) Validate() error {
	if c.Target == "" {
		return errors.New("navigation target must not be empty")
	}
	if c.Selector == "" {
		return errors.New("target selector must not be empty")
	}
	if c.OutputPath == "" {
		return errors.New("output path must not be empty")
	}
	if c.WaitTimeout <= 0 {
		return errors.New("wait timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// NavigationURL resolves Target into something the browser can load: URLs
// pass through, everything else is treated as a local file path. Callers
// using ServeDir resolve against the server's base URL instead.
func (c Config) NavigationURL() (string, error) {
	if strings.Contains(c.Target, "://") {
		return c.Target, nil
	}
	abs, err := filepath.Abs(c.Target)
	if err != nil {
		return "", err
	}
	return "file://" + abs, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
