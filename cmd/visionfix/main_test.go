package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"visionfix/internal/config"
	"visionfix/internal/ledger"
	"visionfix/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	testVisionModel = "qwen3-vl:235b-a22b-instruct-q4_K_M"
	testCoderModel  = "qwen3-coder:30b-a3b-q8_0"
)

// fakeOllama answers /api/tags with both models and /api/generate with reply.
func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"` + testVisionModel + `"},{"name":"` + testCoderModel + `"}]}`))
		case "/api/generate":
			body, _ := json.Marshal(map[string]any{"model": testVisionModel, "response": reply, "done": true})
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeApp(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// isolate points every environment override at test servers.
func isolate(t *testing.T, appURL, inferenceURL string) {
	t.Helper()
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VISIONFIX_PROJECT_DIR", "")
	t.Setenv("VISIONFIX_MAX_CYCLES", "")
	t.Setenv("VISIONFIX_VISION_MODEL", "")
	t.Setenv("VISIONFIX_CODER_MODEL", "")
	t.Setenv("VISIONFIX_BASE_URL", appURL)
	t.Setenv("VISIONFIX_INFERENCE_HOST", inferenceURL)
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	project := t.TempDir()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--project", project, "--max-cycles", "9", "--no-metrics"}))

	opts := &cliOptions{projectDir: project, maxCycles: 9, noMetrics: true}
	cfg := config.DefaultConfig()
	opts.applyFlags(cmd, cfg)

	assert.Equal(t, project, cfg.ProjectDir)
	assert.Equal(t, 9, cfg.Pipeline.MaxCycles)
	assert.Equal(t, 3, cfg.Pipeline.MaxFixAttempts, "unchanged flag must keep the config value")
	assert.Equal(t, config.CollectorCommand, cfg.Collector.Mode)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	project := t.TempDir()

	_, _, err := execute(t, "check", "--project", project, "--max-cycles", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_cycles")
}

func TestCheckWritesConfig(t *testing.T) {
	app := fakeApp(t)
	ollama := fakeOllama(t, "")
	isolate(t, app.URL, ollama.URL)

	project := t.TempDir()
	target := filepath.Join(project, "out", "visionfix.yaml")

	out, _, err := execute(t, "check", "--project", project, "--max-attempts", "7", "--write-config", target)
	require.NoError(t, err)
	assert.Contains(t, out, "application")
	assert.Contains(t, out, "available")

	saved, err := config.Load(target)
	require.NoError(t, err)
	assert.Equal(t, 7, saved.Pipeline.MaxFixAttempts)
	assert.Equal(t, app.URL, saved.App.BaseURL)
}

func TestCheckFailsWhenAppUnreachable(t *testing.T) {
	ollama := fakeOllama(t, "")
	app := fakeApp(t)
	deadURL := app.URL
	app.Close()
	isolate(t, deadURL, ollama.URL)

	out, _, err := execute(t, "check", "--project", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrPrerequisites))
	assert.Contains(t, out, "FAIL")
}

func TestAnalyzePrintsDefects(t *testing.T) {
	reply := `Here is the result:
{"status": "fail", "bugs": [{"id": "BUG-001", "severity": "high", "component": "Header",
"description": "Logo overlaps nav", "expected": "Spacing", "actual": "Overlap", "suggested_fix": "Add margin"}]}`
	ollama := fakeOllama(t, reply)
	isolate(t, "http://127.0.0.1:1", ollama.URL)

	project := t.TempDir()
	shot := filepath.Join(project, "home.png")
	require.NoError(t, os.WriteFile(shot, pngHeader, 0644))

	out, _, err := execute(t, "analyze", "--project", project, shot)
	require.NoError(t, err)

	var defects []ledger.Defect
	require.NoError(t, json.Unmarshal([]byte(out), &defects))
	require.Len(t, defects, 1)
	assert.Equal(t, "BUG-001", defects[0].ID)
	assert.Equal(t, "Header", defects[0].Component)
	assert.Equal(t, shot, defects[0].Screenshot)
}

func TestAnalyzeFailsWhenEveryImageFails(t *testing.T) {
	ollama := fakeOllama(t, "no json here")
	isolate(t, "http://127.0.0.1:1", ollama.URL)

	project := t.TempDir()
	shot := filepath.Join(project, "home.png")
	require.NoError(t, os.WriteFile(shot, pngHeader, 0644))

	out, _, err := execute(t, "analyze", "--project", project, shot, filepath.Join(project, "missing.png"))
	require.Error(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestRunAllClear(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("collector script needs sh")
	}
	app := fakeApp(t)
	ollama := fakeOllama(t, `{"status": "pass", "bugs": [], "observations": ["looks fine"]}`)
	isolate(t, app.URL, ollama.URL)

	project := t.TempDir()
	script := "mkdir -p screenshots/captures && printf '\\211PNG\\r\\n\\032\\n' > screenshots/captures/home.png\n"
	require.NoError(t, os.WriteFile(filepath.Join(project, "collect.sh"), []byte(script), 0644))
	cfgYAML := "collector:\n  mode: command\n  command: sh collect.sh\n  timeout: 30s\n  screenshots_dir: screenshots/captures\n"
	require.NoError(t, os.WriteFile(filepath.Join(project, config.DefaultPath), []byte(cfgYAML), 0644))

	out, _, err := execute(t, "run", "--project", project, "--max-cycles", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "PIPELINE COMPLETE")
	assert.Contains(t, out, "all_clear")

	reports, err := filepath.Glob(filepath.Join(project, "reports", "*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	snapshots, err := filepath.Glob(filepath.Join(project, "reports", "*.prom"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestRunNoMetrics(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("collector script needs sh")
	}
	app := fakeApp(t)
	ollama := fakeOllama(t, `{"status": "pass", "bugs": []}`)
	isolate(t, app.URL, ollama.URL)

	project := t.TempDir()
	script := "mkdir -p screenshots/captures && printf '\\211PNG\\r\\n\\032\\n' > screenshots/captures/home.png\n"
	require.NoError(t, os.WriteFile(filepath.Join(project, "collect.sh"), []byte(script), 0644))
	cfgYAML := "collector:\n  command: sh collect.sh\n"
	require.NoError(t, os.WriteFile(filepath.Join(project, config.DefaultPath), []byte(cfgYAML), 0644))

	_, _, err := execute(t, "--project", project, "--no-metrics")
	require.NoError(t, err)

	snapshots, err := filepath.Glob(filepath.Join(project, "reports", "*.prom"))
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}
