// Command visionfix runs the autonomous visual testing loop: capture the
// application, ask a vision model what is wrong, ask a code model for a fix,
// apply it and check again.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running without a subcommand is the
// same as "visionfix run".
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "visionfix",
		Short: "Autonomous visual testing and repair loop",
		Long: `visionfix captures screenshots of a running web application, asks a
vision model to find UI bugs, asks a code model to fix each bug, applies the
edit to the source tree and repeats until the UI is clean or the cycle budget
runs out. A Markdown report is written when the loop ends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			opts.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: visionfix.yaml in the project dir)")
	pf.StringVarP(&opts.projectDir, "project", "p", "", "Project directory of the application under test")
	pf.IntVar(&opts.maxCycles, "max-cycles", 0, "Maximum collect/analyze/fix cycles")
	pf.IntVar(&opts.maxAttempts, "max-attempts", 0, "Maximum fix attempts per bug")
	pf.StringVar(&opts.collector, "collector", "", "Screenshot collector: command or browser")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&opts.noMetrics, "no-metrics", false, "Do not write the Prometheus metrics snapshot")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the application and inference service are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
	checkCmd.Flags().StringVar(&opts.writeConfig, "write-config", "", "Write the effective configuration as YAML to this path")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <screenshot.png>...",
		Short: "Analyze screenshots once and print the reported bugs as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}

	root.AddCommand(runCmd, checkCmd, analyzeCmd)
	return root
}
