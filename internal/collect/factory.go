package collect

import (
	"fmt"

	"visionfix/internal/browser"
	"visionfix/internal/config"
	"visionfix/internal/logging"
	"visionfix/internal/tactile"
)

// NewFromConfig builds the collector selected by collector.mode.
func NewFromConfig(cfg *config.Config) (Collector, error) {
	dir := cfg.ScreenshotsPath()
	switch cfg.Collector.Mode {
	case config.CollectorCommand, "":
		execCfg := tactile.DefaultExecutorConfig()
		execCfg.DefaultWorkingDir = cfg.ProjectDir
		execCfg.DefaultTimeout = cfg.Collector.GetTimeout()
		executor := tactile.NewDirectExecutorWithConfig(execCfg)
		executor.OnFinish(func(c tactile.Command, r *tactile.ExecutionResult) {
			logging.CollectDebug("%s: exit=%d killed=%v stdout=%dB stderr=%dB in %s",
				c.CommandString(), r.ExitCode, r.Killed, len(r.Stdout), len(r.Stderr), r.Duration)
		})
		return NewCommandCollector(executor, cfg.Collector.Command, cfg.ProjectDir, dir, cfg.Collector.GetTimeout()), nil
	case config.CollectorBrowser:
		bcfg := browser.ConfigFrom(cfg.App.BaseURL, cfg.Collector)
		return NewBrowserCollector(bcfg, browser.RoutesFrom(cfg.Collector.Routes), dir), nil
	default:
		return nil, fmt.Errorf("unknown collector mode %q", cfg.Collector.Mode)
	}
}
