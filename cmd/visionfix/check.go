package main

import (
	"fmt"

	"visionfix/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runCheck(cmd *cobra.Command, opts *cliOptions) error {
	cfg := opts.cfg
	out := cmd.OutOrStdout()

	if opts.writeConfig != "" {
		if err := cfg.Save(opts.writeConfig); err != nil {
			return err
		}
		opts.logger.Info("configuration written", zap.String("path", opts.writeConfig))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	client, err := newInference(ctx, cfg, nil)
	if err != nil {
		return err
	}
	orch := pipeline.New(pipeline.Options{
		BaseURL:      cfg.App.BaseURL,
		ProbeTimeout: cfg.GetProbeTimeout(),
		VisionModel:  cfg.Inference.VisionModel,
		CoderModel:   cfg.Inference.CoderModel,
	}, pipeline.Deps{Inference: client})

	pf, err := orch.CheckPrerequisites(ctx)

	if pf.AppErr != nil {
		fmt.Fprintf(out, "application  %s  FAIL  %v\n", cfg.App.BaseURL, pf.AppErr)
	} else {
		fmt.Fprintf(out, "application  %s  ok (HTTP %d)\n", cfg.App.BaseURL, pf.AppStatus)
	}
	if pf.ModelsErr != nil {
		fmt.Fprintf(out, "inference    %s  FAIL  %v\n", client.Name(), pf.ModelsErr)
	} else {
		fmt.Fprintf(out, "inference    %s  ok (%d models)\n", client.Name(), len(pf.Models))
		fmt.Fprintf(out, "  vision     %s  %s\n", cfg.Inference.VisionModel, availabilityLabel(pf.Missing, cfg.Inference.VisionModel))
		fmt.Fprintf(out, "  coder      %s  %s\n", cfg.Inference.CoderModel, availabilityLabel(pf.Missing, cfg.Inference.CoderModel))
	}
	return err
}

func availabilityLabel(missing []string, model string) string {
	for _, m := range missing {
		if m == model {
			return "missing"
		}
	}
	return "available"
}
