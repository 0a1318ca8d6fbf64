package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"visionfix/internal/coder"
	"visionfix/internal/collect"
	"visionfix/internal/config"
	"visionfix/internal/metrics"
	"visionfix/internal/perception"
	"visionfix/internal/pipeline"
	"visionfix/internal/report"
	"visionfix/internal/tactile"
	"visionfix/internal/vision"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// signalContext cancels on SIGINT/SIGTERM so the loop can stop between steps
// and still write its report.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newInference(ctx context.Context, cfg *config.Config, rec *metrics.Recorder) (perception.Client, error) {
	var observer perception.Observer
	if rec != nil {
		observer = rec
	}
	return perception.NewClientFromConfig(ctx, cfg.Inference, observer)
}

func newOrchestrator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Orchestrator, error) {
	var rec *metrics.Recorder
	metricsDir := ""
	if cfg.Metrics.Enabled {
		rec = metrics.New()
		metricsDir = cfg.ReportsPath()
	}

	client, err := newInference(ctx, cfg, rec)
	if err != nil {
		return nil, err
	}
	collector, err := collect.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	patcher := tactile.NewPatcher(cfg.ProjectDir, cfg.SourceRoot)
	patcher.SetAuditCallback(func(e tactile.PatchEvent) {
		logger.Debug("patch",
			zap.String("path", e.Path),
			zap.Bool("success", e.Success),
			zap.String("error", e.Error),
			zap.String("old_hash", e.OldHash),
			zap.String("new_hash", e.NewHash),
			zap.Int("lines_added", e.LinesAdded),
			zap.Int("lines_removed", e.LinesRemoved))
	})

	return pipeline.New(pipeline.Options{
		MaxCycles:    cfg.Pipeline.MaxCycles,
		MaxAttempts:  cfg.Pipeline.MaxFixAttempts,
		BaseURL:      cfg.App.BaseURL,
		ProbeTimeout: cfg.GetProbeTimeout(),
		VisionModel:  cfg.Inference.VisionModel,
		CoderModel:   cfg.Inference.CoderModel,
		MetricsDir:   metricsDir,
	}, pipeline.Deps{
		Collector:   collector,
		Analyzer:    vision.NewAnalyzer(client, cfg.Inference.VisionModel, cfg.Prompts),
		Synthesizer: coder.NewSynthesizer(client, cfg.Inference.CoderModel, cfg.Prompts, patcher),
		Patcher:     patcher,
		Reporter:    report.NewGenerator(cfg.ReportsPath(), cfg.Report.JSON),
		Inference:   client,
		Metrics:     rec,
	}), nil
}

func runPipeline(cmd *cobra.Command, opts *cliOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	orch, err := newOrchestrator(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	opts.logger.Info("starting pipeline",
		zap.String("run_id", orch.RunID()),
		zap.String("base_url", opts.cfg.App.BaseURL),
		zap.String("collector", opts.cfg.Collector.Mode))

	res, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.ConsoleSummary(res.Summary, res.Report))
	return nil
}
