package collect

import (
	"context"
	"fmt"

	"visionfix/internal/browser"
	"visionfix/internal/logging"
)

// Capturer is the part of browser.Session the collector needs.
type Capturer interface {
	Start(ctx context.Context) error
	CaptureRoutes(ctx context.Context, routes []browser.Route, dir string) ([]string, error)
	Shutdown() error
}

// BrowserCollector captures configured routes with an in-process browser.
type BrowserCollector struct {
	newSession     func() Capturer
	routes         []browser.Route
	screenshotsDir string
}

// NewBrowserCollector creates a collector that starts a fresh browser
// session per collection.
func NewBrowserCollector(cfg browser.Config, routes []browser.Route, screenshotsDir string) *BrowserCollector {
	return &BrowserCollector{
		newSession:     func() Capturer { return browser.NewSession(cfg) },
		routes:         routes,
		screenshotsDir: screenshotsDir,
	}
}

// Name implements Collector.
func (c *BrowserCollector) Name() string { return "browser" }

// Collect implements Collector.
func (c *BrowserCollector) Collect(ctx context.Context) ([]Artifact, error) {
	if err := ClearArtifacts(c.screenshotsDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}

	session := c.newSession()
	if err := session.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer func() {
		if err := session.Shutdown(); err != nil {
			logging.CollectWarn("Browser shutdown: %v", err)
		}
	}()

	paths, err := session.CaptureRoutes(ctx, c.routes, c.screenshotsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	if len(paths) == 0 {
		return nil, ErrNoArtifacts
	}

	artifacts := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		artifacts = append(artifacts, NewArtifact(p))
	}
	logging.Collect("Captured %d/%d routes", len(artifacts), len(c.routes))
	return artifacts, nil
}
