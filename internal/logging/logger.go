// Package logging provides categorized logging for visionfix on top of zap.
// Operator output goes to a human-readable console core; when file logging is
// enabled a JSON core also writes to logs/<date>_visionfix.log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, preflight
	CategoryPipeline Category = "pipeline" // Cycle controller
	CategoryCollect  Category = "collect"  // Screenshot collection
	CategoryVision   Category = "vision"   // Visual diff analysis
	CategoryCoder    Category = "coder"    // Fix synthesis
	CategoryPatch    Category = "patch"    // Patch application, subprocesses
	CategoryLedger   Category = "ledger"   // Bug ledger mutations
	CategoryReport   Category = "report"   // Report generation
	CategoryAPI      Category = "api"      // Inference API calls
	CategoryBrowser  Category = "browser"  // Browser automation
	CategoryMetrics  Category = "metrics"  // Metrics snapshots
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategoryPipeline, CategoryCollect, CategoryVision, CategoryCoder,
	CategoryPatch, CategoryLedger, CategoryReport, CategoryAPI, CategoryBrowser, CategoryMetrics,
}

// Options configures Initialize.
type Options struct {
	Level       string          // debug, info, warn, error
	Console     io.Writer       // defaults to os.Stderr
	NoConsole   bool            // suppress the console core entirely
	FileEnabled bool            // also write JSON lines to Dir
	Dir         string          // log directory, created on demand
	Categories  map[string]bool // nil or missing entries mean enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
	logFile    *os.File
	logPath    string
)

// Initialize builds the root zap logger from opts. It may be called again to
// reconfigure; previously returned category loggers keep their old core.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	atom := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if !opts.NoConsole {
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atom))
	}

	var file *os.File
	var path string
	if opts.FileEnabled {
		dir := opts.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_visionfix.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		file = f
		// The file always records debug so a quiet console still leaves a full trail.
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			zapcore.DebugLevel,
		))
	}

	var l *zap.Logger
	if len(cores) == 0 {
		l = zap.NewNop()
	} else {
		l = zap.New(zapcore.NewTee(cores...))
	}

	mu.Lock()
	closeFileLocked()
	root = l
	logFile = file
	logPath = path
	categories = copyCategories(opts.Categories)
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	Get(CategoryBoot).Debug("logging initialized (level=%s, file=%v)", level, path != "")
	return nil
}

// UseLogger installs an existing zap logger as the root. Used by the CLI when
// it builds its own logger and by tests with zaptest/observer.
func UseLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	closeFileLocked()
	root = l
	loggers = make(map[Category]*Logger)
	mu.Unlock()
}

// SetCategories replaces the category filter.
func SetCategories(enabled map[string]bool) {
	mu.Lock()
	categories = copyCategories(enabled)
	loggers = make(map[Category]*Logger)
	mu.Unlock()
}

// Root returns the root zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// FilePath returns the active log file path, or "" when file logging is off.
func FilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var sugar *zap.SugaredLogger
	if categoryEnabledLocked(category) {
		sugar = root.Named(string(category)).With(zap.String("category", string(category))).Sugar()
	} else {
		sugar = zap.NewNop().Sugar()
	}
	l := &Logger{category: category, sugar: sugar}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a child logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	l := root
	mu.RUnlock()
	_ = l.Sync()
}

// CloseAll flushes and closes the log file (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	_ = root.Sync()
	closeFileLocked()
	root = zap.NewNop()
	loggers = make(map[Category]*Logger)
}

func closeFileLocked() {
	if logFile != nil {
		_ = root.Sync()
		_ = logFile.Close()
		logFile = nil
		logPath = ""
	}
}

func copyCategories(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Pipeline(format string, args ...interface{})      { Get(CategoryPipeline).Info(format, args...) }
func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debug(format, args...) }
func PipelineWarn(format string, args ...interface{})  { Get(CategoryPipeline).Warn(format, args...) }
func PipelineError(format string, args ...interface{}) { Get(CategoryPipeline).Error(format, args...) }

func Collect(format string, args ...interface{})      { Get(CategoryCollect).Info(format, args...) }
func CollectDebug(format string, args ...interface{}) { Get(CategoryCollect).Debug(format, args...) }
func CollectWarn(format string, args ...interface{})  { Get(CategoryCollect).Warn(format, args...) }
func CollectError(format string, args ...interface{}) { Get(CategoryCollect).Error(format, args...) }

func Vision(format string, args ...interface{})      { Get(CategoryVision).Info(format, args...) }
func VisionDebug(format string, args ...interface{}) { Get(CategoryVision).Debug(format, args...) }
func VisionWarn(format string, args ...interface{})  { Get(CategoryVision).Warn(format, args...) }
func VisionError(format string, args ...interface{}) { Get(CategoryVision).Error(format, args...) }

func Coder(format string, args ...interface{})      { Get(CategoryCoder).Info(format, args...) }
func CoderDebug(format string, args ...interface{}) { Get(CategoryCoder).Debug(format, args...) }
func CoderWarn(format string, args ...interface{})  { Get(CategoryCoder).Warn(format, args...) }
func CoderError(format string, args ...interface{}) { Get(CategoryCoder).Error(format, args...) }

func Patch(format string, args ...interface{})      { Get(CategoryPatch).Info(format, args...) }
func PatchDebug(format string, args ...interface{}) { Get(CategoryPatch).Debug(format, args...) }
func PatchWarn(format string, args ...interface{})  { Get(CategoryPatch).Warn(format, args...) }
func PatchError(format string, args ...interface{}) { Get(CategoryPatch).Error(format, args...) }

func Ledger(format string, args ...interface{})      { Get(CategoryLedger).Info(format, args...) }
func LedgerDebug(format string, args ...interface{}) { Get(CategoryLedger).Debug(format, args...) }

func Report(format string, args ...interface{})      { Get(CategoryReport).Info(format, args...) }
func ReportDebug(format string, args ...interface{}) { Get(CategoryReport).Debug(format, args...) }
func ReportError(format string, args ...interface{}) { Get(CategoryReport).Error(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIWarn(format string, args ...interface{})  { Get(CategoryAPI).Warn(format, args...) }
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).Info(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }
func BrowserError(format string, args ...interface{}) { Get(CategoryBrowser).Error(format, args...) }

func Metrics(format string, args ...interface{})     { Get(CategoryMetrics).Info(format, args...) }
func MetricsWarn(format string, args ...interface{}) { Get(CategoryMetrics).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// Truncate shortens s to at most n bytes for a log line, cutting on a rune
// boundary and appending "...".
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
