package main

import (
	"encoding/json"
	"fmt"

	"visionfix/internal/collect"
	"visionfix/internal/ledger"
	"visionfix/internal/vision"

	"github.com/spf13/cobra"
)

func runAnalyze(cmd *cobra.Command, opts *cliOptions, paths []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg := opts.cfg
	client, err := newInference(ctx, cfg, nil)
	if err != nil {
		return err
	}
	analyzer := vision.NewAnalyzer(client, cfg.Inference.VisionModel, cfg.Prompts)

	arts := make([]collect.Artifact, 0, len(paths))
	for _, p := range paths {
		arts = append(arts, collect.NewArtifact(p))
	}
	failed := 0
	defects := analyzer.AnalyzeAll(ctx, arts, func(_ collect.Artifact, _ []ledger.Defect, err error) {
		if err != nil {
			failed++
		}
	})
	if defects == nil {
		defects = []ledger.Defect{}
	}

	data, err := json.MarshalIndent(defects, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if failed == len(paths) {
		return fmt.Errorf("all %d screenshots failed analysis", failed)
	}
	return nil
}
