package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	SetCategories(nil)
	t.Cleanup(CloseAll)
	return logs
}

func TestConvenienceHelpersTagCategory(t *testing.T) {
	logs := observe(t)

	Vision("analyzing %s", "home.png")
	PatchWarn("no match in %s", "foo.ts")
	CoderDebug("prompt length %d", 42)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "analyzing home.png", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "vision", entries[0].ContextMap()["category"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "patch", entries[1].ContextMap()["category"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "coder", entries[2].LoggerName)
}

func TestCategoryFilter(t *testing.T) {
	logs := observe(t)
	SetCategories(map[string]bool{"vision": false, "coder": true})

	assert.False(t, IsCategoryEnabled(CategoryVision))
	assert.True(t, IsCategoryEnabled(CategoryCoder))
	assert.True(t, IsCategoryEnabled(CategoryLedger), "unlisted categories default to enabled")

	Vision("dropped")
	Coder("kept")
	Ledger("kept too")

	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())
	assert.Equal(t, 1, logs.FilterMessage("kept").Len())
	assert.Equal(t, 1, logs.FilterMessage("kept too").Len())
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t)

	Get(CategoryPipeline).With("cycle", 2).Info("cycle started")

	entries := logs.FilterMessage("cycle started").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["cycle"])
}

func TestInitializeConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Initialize(Options{Level: "warn", Console: &buf}))
	t.Cleanup(CloseAll)

	Pipeline("quiet")
	PipelineWarn("loud")
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "WARN")
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	err := Initialize(Options{Level: "chatty", NoConsole: true})
	assert.Error(t, err)
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{Level: "info", NoConsole: true, FileEnabled: true, Dir: dir}))

	path := FilePath()
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "_visionfix.log"))

	Report("report written to %s", "reports/x.md")
	ReportDebug("file core records debug")
	CloseAll()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"report written to reports/x.md"`)
	assert.Contains(t, content, `"category":"report"`)
	assert.Contains(t, content, "file core records debug")
	assert.Empty(t, FilePath())
}

func TestTimerStopWithThreshold(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategoryAPI, "generate")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Nanosecond)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "generate took")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	// "é" is two bytes; cutting inside it keeps the text valid UTF-8.
	got := Truncate("aé", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(Truncate(strings.Repeat("日本語", 50), 100)))
}
