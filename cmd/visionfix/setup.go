package main

import (
	"fmt"
	"path/filepath"

	"visionfix/internal/config"
	"visionfix/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliOptions holds flag values and the state built from them.
type cliOptions struct {
	configPath  string
	projectDir  string
	maxCycles   int
	maxAttempts int
	collector   string
	verbose     bool
	noMetrics   bool
	writeConfig string

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the config, applies flag overrides, validates and starts
// logging.
func (o *cliOptions) setup(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath
		if o.projectDir != "" {
			path = filepath.Join(o.projectDir, config.DefaultPath)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	o.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Logging.Level
	if o.verbose {
		level = "debug"
	}
	if err := logging.Initialize(logging.Options{
		Level:       level,
		Console:     cmd.ErrOrStderr(),
		FileEnabled: cfg.Logging.FileEnabled,
		Dir:         cfg.LogsPath(),
		Categories:  cfg.Logging.Categories,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	o.cfg = cfg
	o.logger = logging.Root()
	o.logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("project", cfg.ProjectDir),
		zap.String("provider", cfg.Inference.Provider),
		zap.Int("max_cycles", cfg.Pipeline.MaxCycles),
		zap.Int("max_fix_attempts", cfg.Pipeline.MaxFixAttempts))
	return nil
}

func (o *cliOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("project") {
		cfg.ProjectDir = o.projectDir
	}
	if flags.Changed("max-cycles") {
		cfg.Pipeline.MaxCycles = o.maxCycles
	}
	if flags.Changed("max-attempts") {
		cfg.Pipeline.MaxFixAttempts = o.maxAttempts
	}
	if flags.Changed("collector") {
		cfg.Collector.Mode = o.collector
	}
	if o.noMetrics {
		cfg.Metrics.Enabled = false
	}
}

func (o *cliOptions) teardown() {
	logging.Sync()
	logging.CloseAll()
}
