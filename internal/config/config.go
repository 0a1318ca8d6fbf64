package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "visionfix.yaml"

// Config holds all visionfix configuration.
type Config struct {
	// ProjectDir is the root of the application under test. Relative paths
	// elsewhere in the config resolve against it.
	ProjectDir string `yaml:"project_dir"`
	// SourceRoot is the conventional source directory inside ProjectDir.
	SourceRoot string `yaml:"source_root"`

	App       AppConfig       `yaml:"app"`
	Inference InferenceConfig `yaml:"inference"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Collector CollectorConfig `yaml:"collector"`
	Prompts   PromptConfig    `yaml:"prompts"`
	Report    ReportConfig    `yaml:"report"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig describes the application under test.
type AppConfig struct {
	BaseURL      string `yaml:"base_url"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

// PipelineConfig holds the cycle and attempt budgets.
type PipelineConfig struct {
	MaxCycles      int `yaml:"max_cycles"`
	MaxFixAttempts int `yaml:"max_fix_attempts"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Dir  string `yaml:"dir"`
	JSON bool   `yaml:"json"`
}

// MetricsConfig configures the Prometheus textfile snapshot.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProjectDir: ".",
		SourceRoot: "src",

		App: AppConfig{
			BaseURL:      "http://localhost:4205",
			ProbeTimeout: "5s",
		},

		Inference: DefaultInferenceConfig(),

		Pipeline: PipelineConfig{
			MaxCycles:      5,
			MaxFixAttempts: 3,
		},

		Collector: DefaultCollectorConfig(),
		Prompts:   DefaultPromptConfig(),

		Report: ReportConfig{
			Dir:  "reports",
			JSON: true,
		},

		Metrics: MetricsConfig{
			Enabled: true,
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Inference.Host = normalizeHost(host)
	}
	// The visionfix-specific variable wins over the generic one.
	if host := os.Getenv("VISIONFIX_INFERENCE_HOST"); host != "" {
		c.Inference.Host = normalizeHost(host)
	}
	if model := os.Getenv("VISIONFIX_VISION_MODEL"); model != "" {
		c.Inference.VisionModel = model
	}
	if model := os.Getenv("VISIONFIX_CODER_MODEL"); model != "" {
		c.Inference.CoderModel = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Inference.APIKey = key
		if c.Inference.Provider == "" {
			c.Inference.Provider = ProviderGemini
		}
	}
	if url := os.Getenv("VISIONFIX_BASE_URL"); url != "" {
		c.App.BaseURL = url
	}
	if dir := os.Getenv("VISIONFIX_PROJECT_DIR"); dir != "" {
		c.ProjectDir = dir
	}
	if n := os.Getenv("VISIONFIX_MAX_CYCLES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			c.Pipeline.MaxCycles = v
		}
	}
	if c.Inference.Provider == "" {
		c.Inference.Provider = ProviderOllama
	}
}

// normalizeHost adds a scheme to bare host:port values such as the ones
// OLLAMA_HOST commonly carries.
func normalizeHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "http://" + host
}

// ResolvePath resolves p against the project directory unless it is absolute.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, p)
}

// ScreenshotsPath returns the absolute-or-project-relative screenshots directory.
func (c *Config) ScreenshotsPath() string { return c.ResolvePath(c.Collector.ScreenshotsDir) }

// ReportsPath returns the reports directory.
func (c *Config) ReportsPath() string { return c.ResolvePath(c.Report.Dir) }

// LogsPath returns the log directory.
func (c *Config) LogsPath() string { return c.ResolvePath(c.Logging.Dir) }

// GetProbeTimeout returns the application reachability probe timeout.
func (c *Config) GetProbeTimeout() time.Duration {
	return parseDuration(c.App.ProbeTimeout, 5*time.Second)
}

// parseDuration parses s, returning fallback when s is empty or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.MaxCycles <= 0 {
		return fmt.Errorf("pipeline.max_cycles must be positive, got %d", c.Pipeline.MaxCycles)
	}
	if c.Pipeline.MaxFixAttempts <= 0 {
		return fmt.Errorf("pipeline.max_fix_attempts must be positive, got %d", c.Pipeline.MaxFixAttempts)
	}
	if c.App.BaseURL == "" {
		return fmt.Errorf("app.base_url not configured (set VISIONFIX_BASE_URL)")
	}
	if err := c.Inference.validate(); err != nil {
		return err
	}
	if err := c.Collector.validate(); err != nil {
		return err
	}
	if _, err := os.Stat(c.ProjectDir); err != nil {
		return fmt.Errorf("project_dir %q: %w", c.ProjectDir, err)
	}
	return nil
}
