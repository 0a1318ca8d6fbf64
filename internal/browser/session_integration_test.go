//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"visionfix/internal/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CaptureRoutes_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", r.URL.Path)
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.NavigationTimeout = 10 * time.Second
	cfg.SettleDelay = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s := browser.NewSession(cfg)
	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Shutdown() }()
	assert.NotEmpty(t, s.ControlURL())

	dir := t.TempDir()
	paths, err := s.CaptureRoutes(ctx, []browser.Route{
		{Name: "home", Path: "/"},
		{Name: "list", Path: "/list"},
	}, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "home.png"), filepath.Join(dir, "list.png")}, paths)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), data[:4])
	}
}
