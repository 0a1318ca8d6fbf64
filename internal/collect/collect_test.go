package collect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"visionfix/internal/browser"
	"visionfix/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArtifact(t *testing.T) {
	a := NewArtifact(filepath.Join("screenshots", "captures", "01-home.png"))
	assert.Equal(t, "01-home", a.Name)
	assert.Equal(t, filepath.Join("screenshots", "captures", "01-home.png"), a.Path)
}

func TestClearAndListArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "captures")
	require.NoError(t, ClearArtifacts(dir))
	assert.DirExists(t, dir)

	for _, name := range []string{"b.png", "a.png", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.png"), 0755))

	list, err := ListArtifacts(dir)
	require.NoError(t, err)
	assert.Equal(t, []Artifact{
		{Path: filepath.Join(dir, "a.png"), Name: "a"},
		{Path: filepath.Join(dir, "b.png"), Name: "b"},
	}, list)

	require.NoError(t, os.Remove(filepath.Join(dir, "dir.png")))
	require.NoError(t, ClearArtifacts(dir))
	list, err = ListArtifacts(dir)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.FileExists(t, filepath.Join(dir, "c.jpg"))
}

type fakeCapturer struct {
	startErr   error
	captureErr error
	write      []string
	started    bool
	shutdown   bool
}

func (f *fakeCapturer) Start(ctx context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeCapturer) CaptureRoutes(ctx context.Context, routes []browser.Route, dir string) ([]string, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	var out []string
	for _, name := range f.write {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("png"), 0644); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCapturer) Shutdown() error {
	f.shutdown = true
	return nil
}

func newFakeBrowserCollector(t *testing.T, f *fakeCapturer) (*BrowserCollector, string) {
	dir := filepath.Join(t.TempDir(), "captures")
	c := NewBrowserCollector(browser.DefaultConfig(), []browser.Route{{Name: "home", Path: "/"}}, dir)
	c.newSession = func() Capturer { return f }
	return c, dir
}

func TestBrowserCollector_Success(t *testing.T) {
	f := &fakeCapturer{write: []string{"home.png"}}
	c, dir := newFakeBrowserCollector(t, f)

	artifacts, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Artifact{{Path: filepath.Join(dir, "home.png"), Name: "home"}}, artifacts)
	assert.True(t, f.started)
	assert.True(t, f.shutdown)
	assert.Equal(t, "browser", c.Name())
}

func TestBrowserCollector_Failures(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		f := &fakeCapturer{startErr: errors.New("no chrome")}
		c, _ := newFakeBrowserCollector(t, f)
		_, err := c.Collect(context.Background())
		assert.ErrorIs(t, err, ErrCollectionFailed)
		assert.False(t, f.shutdown)
	})
	t.Run("capture", func(t *testing.T) {
		f := &fakeCapturer{captureErr: errors.New("navigation timeout")}
		c, _ := newFakeBrowserCollector(t, f)
		_, err := c.Collect(context.Background())
		assert.ErrorIs(t, err, ErrCollectionFailed)
		assert.True(t, f.shutdown)
	})
	t.Run("empty", func(t *testing.T) {
		f := &fakeCapturer{}
		c, _ := newFakeBrowserCollector(t, f)
		_, err := c.Collect(context.Background())
		assert.ErrorIs(t, err, ErrNoArtifacts)
	})
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProjectDir = t.TempDir()

	c, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CommandCollector{}, c)

	cfg.Collector.Mode = config.CollectorBrowser
	c, err = NewFromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &BrowserCollector{}, c)

	cfg.Collector.Mode = "carrier-pigeon"
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}
