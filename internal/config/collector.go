package config

import (
	"fmt"
	"time"
)

// Collector modes.
const (
	CollectorCommand = "command"
	CollectorBrowser = "browser"
)

// CollectorConfig configures screenshot collection.
type CollectorConfig struct {
	Mode           string `yaml:"mode"` // command, browser
	Command        string `yaml:"command"`
	Timeout        string `yaml:"timeout"`
	ScreenshotsDir string `yaml:"screenshots_dir"`

	// Browser mode only.
	Routes            []RouteConfig `yaml:"routes,omitempty"`
	Headless          bool          `yaml:"headless"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	FullPage          bool          `yaml:"full_page"`
	NavigationTimeout string        `yaml:"navigation_timeout"`
	SettleDelay       string        `yaml:"settle_delay"`
}

// RouteConfig names one page the browser collector captures.
type RouteConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// DefaultCollectorConfig returns the subprocess collector defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Mode:              CollectorCommand,
		Command:           "npm run visual-collect",
		Timeout:           "300s",
		ScreenshotsDir:    "screenshots/captures",
		Routes:            []RouteConfig{{Name: "home", Path: "/"}},
		Headless:          true,
		ViewportWidth:     1440,
		ViewportHeight:    900,
		FullPage:          true,
		NavigationTimeout: "30s",
		SettleDelay:       "500ms",
	}
}

// GetTimeout returns the collection timeout.
func (c CollectorConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 300*time.Second)
}

// GetNavigationTimeout returns the per-route navigation timeout.
func (c CollectorConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 30*time.Second)
}

// GetSettleDelay returns the pause between load and capture.
func (c CollectorConfig) GetSettleDelay() time.Duration {
	return parseDuration(c.SettleDelay, 500*time.Millisecond)
}

func (c CollectorConfig) validate() error {
	switch c.Mode {
	case CollectorCommand:
		if c.Command == "" {
			return fmt.Errorf("collector.command is required in command mode")
		}
	case CollectorBrowser:
		if len(c.Routes) == 0 {
			return fmt.Errorf("collector.routes is required in browser mode")
		}
	default:
		return fmt.Errorf("invalid collector mode: %s (valid: %s, %s)", c.Mode, CollectorCommand, CollectorBrowser)
	}
	if c.ScreenshotsDir == "" {
		return fmt.Errorf("collector.screenshots_dir is required")
	}
	return nil
}
