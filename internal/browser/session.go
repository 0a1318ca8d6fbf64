// Package browser drives a headless Chrome through go-rod to capture
// screenshots of the application under test.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"visionfix/internal/config"
	"visionfix/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// ErrNotStarted is returned when capturing before Start.
var ErrNotStarted = errors.New("browser session not started")

// Route is one page to capture.
type Route struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Config holds capture settings.
type Config struct {
	BaseURL           string        `json:"base_url"`
	ControlURL        string        `json:"control_url,omitempty"` // attach instead of launching
	Headless          bool          `json:"headless"`
	ViewportWidth     int           `json:"viewport_width"`
	ViewportHeight    int           `json:"viewport_height"`
	FullPage          bool          `json:"full_page"`
	URLOverlay        bool          `json:"url_overlay"`
	NavigationTimeout time.Duration `json:"navigation_timeout"`
	SettleDelay       time.Duration `json:"settle_delay"`
}

// DefaultConfig returns capture defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		ViewportWidth:     1440,
		ViewportHeight:    900,
		FullPage:          true,
		URLOverlay:        true,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       500 * time.Millisecond,
	}
}

// ConfigFrom builds a capture config from the collector section.
func ConfigFrom(baseURL string, c config.CollectorConfig) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Headless = c.Headless
	cfg.FullPage = c.FullPage
	if c.ViewportWidth > 0 {
		cfg.ViewportWidth = c.ViewportWidth
	}
	if c.ViewportHeight > 0 {
		cfg.ViewportHeight = c.ViewportHeight
	}
	cfg.NavigationTimeout = c.GetNavigationTimeout()
	cfg.SettleDelay = c.GetSettleDelay()
	return cfg
}

// RoutesFrom converts configured routes.
func RoutesFrom(in []config.RouteConfig) []Route {
	out := make([]Route, 0, len(in))
	for _, r := range in {
		out = append(out, Route{Name: r.Name, Path: r.Path})
	}
	return out
}

// Session owns one Chrome instance for the length of a collection run.
type Session struct {
	ID string

	cfg        Config
	mu         sync.Mutex
	browser    *rod.Browser
	launcher   *launcher.Launcher
	controlURL string
	startedAt  time.Time
}

// NewSession creates an unstarted session.
func NewSession(cfg Config) *Session {
	return &Session{ID: uuid.NewString(), cfg: cfg}
}

// Start connects to the configured Chrome or launches one.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection for session %s, reconnecting", s.ID)
		s.closeLocked()
	}

	controlURL := s.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.killLauncherLocked()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = b
	s.controlURL = controlURL
	s.startedAt = time.Now()
	logging.Browser("Browser session %s connected (headless=%v)", s.ID, s.cfg.Headless)
	return nil
}

// ControlURL returns the DevTools websocket URL.
func (s *Session) ControlURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlURL
}

// Capture navigates to one route and writes <dir>/<name>.png.
func (s *Session) Capture(ctx context.Context, route Route, dir string) (string, error) {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return "", ErrNotStarted
	}

	target := RouteURL(s.cfg.BaseURL, route.Path)
	timer := logging.StartTimer(logging.CategoryBrowser, "capture "+route.Name)
	defer timer.Stop()

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserWarn("Failed to set viewport: %v", err)
	}

	nav := page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if err := nav.Navigate(target); err != nil {
		return "", fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", target, err)
	}

	if s.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.SettleDelay):
		}
	}

	if s.cfg.URLOverlay {
		if _, err := page.Context(ctx).Eval(overlayScript, target); err != nil {
			logging.BrowserDebug("URL overlay failed on %s: %v", target, err)
		}
	}

	img, err := page.Context(ctx).Screenshot(s.cfg.FullPage, nil)
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", target, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(dir, ScreenshotName(route))
	if err := os.WriteFile(path, img, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	logging.BrowserDebug("Captured %s -> %s (%d bytes)", target, path, len(img))
	return path, nil
}

// CaptureRoutes captures every route in order. A failed route is logged and
// skipped; the error is returned only when nothing was captured.
func (s *Session) CaptureRoutes(ctx context.Context, routes []Route, dir string) ([]string, error) {
	paths := make([]string, 0, len(routes))
	var lastErr error
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		p, err := s.Capture(ctx, route, dir)
		if err != nil {
			logging.BrowserError("Capture of route %q failed: %v", route.Name, err)
			lastErr = err
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return paths, nil
}

// Shutdown closes the browser and any Chrome process this session launched.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.closeLocked()
	if !s.startedAt.IsZero() {
		logging.BrowserDebug("Browser session %s closed after %s", s.ID, time.Since(s.startedAt).Round(time.Millisecond))
	}
	return err
}

func (s *Session) closeLocked() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.killLauncherLocked()
	s.controlURL = ""
	return err
}

func (s *Session) killLauncherLocked() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
}

// RouteURL joins the base URL and a route path.
func RouteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ScreenshotName returns the file name a route is captured to.
func ScreenshotName(route Route) string {
	name := strings.Trim(unsafeName.ReplaceAllString(route.Name, "-"), "-.")
	if name == "" {
		name = strings.Trim(unsafeName.ReplaceAllString(route.Path, "-"), "-.")
	}
	if name == "" {
		name = "root"
	}
	return name + ".png"
}

// overlayScript pins the current URL to the top of the page so the vision
// model can compare URL state against what the UI shows.
const overlayScript = `(url) => {
	const bar = document.createElement('div');
	bar.textContent = url;
	bar.style.cssText = 'position:fixed;top:0;left:0;right:0;z-index:2147483647;' +
		'background:#222;color:#fff;font:12px monospace;padding:4px 8px;';
	document.body.appendChild(bar);
}`
