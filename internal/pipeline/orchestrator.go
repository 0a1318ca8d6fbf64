package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"visionfix/internal/coder"
	"visionfix/internal/collect"
	"visionfix/internal/ledger"
	"visionfix/internal/logging"
	"visionfix/internal/metrics"
	"visionfix/internal/perception"
	"visionfix/internal/report"
	"visionfix/internal/tactile"
	"visionfix/internal/vision"

	"github.com/google/uuid"
)

// Options are the run budgets and probe targets.
type Options struct {
	MaxCycles    int
	MaxAttempts  int
	BaseURL      string
	ProbeTimeout time.Duration
	VisionModel  string
	CoderModel   string
	// MetricsDir receives the .prom snapshot; empty disables it.
	MetricsDir string
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Collector   collect.Collector
	Analyzer    Analyzer
	Synthesizer Synthesizer
	Patcher     Patcher
	Reporter    Reporter
	Inference   perception.Client
	Metrics     *metrics.Recorder
	HTTPClient  *http.Client
}

// Orchestrator owns the ledger and the run state for one pipeline run.
type Orchestrator struct {
	opts       Options
	deps       Deps
	ledger     *ledger.Ledger
	httpClient *http.Client
	now        func() time.Time

	runID     string
	startedAt time.Time
	cycle     int
}

// New creates an orchestrator with a fresh ledger.
func New(opts Options, deps Deps) *Orchestrator {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	hc := deps.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Orchestrator{
		opts:       opts,
		deps:       deps,
		ledger:     ledger.New(opts.MaxAttempts),
		httpClient: hc,
		now:        time.Now,
		runID:      "run-" + uuid.NewString()[:8],
	}
}

// RunID identifies this run in logs and reports.
func (o *Orchestrator) RunID() string { return o.runID }

// Ledger exposes the bug ledger.
func (o *Orchestrator) Ledger() *ledger.Ledger { return o.ledger }

// Run checks prerequisites, drives cycles until a stop condition and writes
// the report exactly once. Only a failed prerequisite check returns an error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.startedAt = o.now()
	logging.Pipeline("Visual testing pipeline %s started", o.runID)

	if _, err := o.CheckPrerequisites(ctx); err != nil {
		return nil, err
	}

	outcome := o.loop(ctx)
	return o.finish(outcome), nil
}

func (o *Orchestrator) loop(ctx context.Context) Outcome {
	for o.cycle < o.opts.MaxCycles {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		o.cycle++
		o.deps.Metrics.RecordCycle()
		logging.Pipeline("--- Cycle %d/%d ---", o.cycle, o.opts.MaxCycles)

		artifacts, err := o.deps.Collector.Collect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeCancelled
			}
			result := metrics.CollectionFailed
			if errors.Is(err, collect.ErrNoArtifacts) {
				result = metrics.CollectionEmpty
			}
			o.deps.Metrics.RecordCollection(result, 0)
			logging.PipelineWarn("Screenshot collection failed: %v", err)
			continue
		}
		o.deps.Metrics.RecordCollection(metrics.CollectionOK, len(artifacts))

		defects := o.analyze(ctx, artifacts)
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		if len(defects) == 0 {
			logging.Pipeline("No bugs detected, pipeline complete")
			return OutcomeAllClear
		}

		added := o.ledger.Merge(defects, o.cycle)
		o.deps.Metrics.RecordNewBugs(len(added))
		logging.Pipeline("%d bugs reported, %d new, %d tracked", len(defects), len(added), o.ledger.Len())

		selected := o.ledger.SelectForRetry(o.opts.MaxAttempts)
		if len(selected) == 0 {
			logging.PipelineWarn("All bugs exhausted fix attempts")
			return OutcomeExhausted
		}

		for _, bug := range selected {
			if ctx.Err() != nil {
				return OutcomeCancelled
			}
			o.fix(ctx, bug)
		}
	}
	return OutcomeCycleCap
}

func (o *Orchestrator) analyze(ctx context.Context, artifacts []collect.Artifact) []ledger.Defect {
	return vision.AnalyzeAll(ctx, o.deps.Analyzer, artifacts, func(_ collect.Artifact, defects []ledger.Defect, err error) {
		o.deps.Metrics.RecordAnalysis(err == nil, len(defects))
	})
}

// fix runs one attempt for bug and records it in the ledger whatever the
// outcome.
func (o *Orchestrator) fix(ctx context.Context, bug ledger.Bug) {
	logging.Coder("Fixing %s: %s (attempt %d/%d)", bug.ID, bug.Description, bug.Attempts+1, o.opts.MaxAttempts)

	attempt := ledger.FixAttempt{Cycle: o.cycle, At: o.now()}
	proposal, err := o.deps.Synthesizer.Synthesize(ctx, bug)
	if proposal != nil {
		attempt.File = proposal.File
		attempt.RequestedFile = proposal.RequestedFile
		attempt.Explanation = proposal.Explanation
	}

	switch {
	case errors.Is(err, coder.ErrNoResponse):
		attempt.Outcome = ledger.OutcomeNoResponse
		attempt.Reason = err.Error()
		if perception.IsTimeout(err) {
			attempt.Reason = "coder model timed out"
		}
	case err != nil:
		attempt.Outcome = ledger.OutcomeMalformed
		attempt.Reason = err.Error()
	default:
		o.apply(proposal, &attempt)
	}

	updated, err := o.ledger.RecordAttempt(bug.ID, attempt)
	if err != nil {
		logging.PipelineError("Could not record attempt for %s: %v", bug.ID, err)
		return
	}
	o.deps.Metrics.RecordFixAttempt(attempt.Outcome)

	if updated.Fixed {
		logging.Coder("  %s fixed in %s", bug.ID, attempt.File)
	} else {
		logging.CoderWarn("  %s not fixed (%s): %s", bug.ID, attempt.Outcome, attempt.Reason)
	}
}

func (o *Orchestrator) apply(p *coder.Proposal, attempt *ledger.FixAttempt) {
	res, err := o.deps.Patcher.Apply(p.File, p.OldCode, p.NewCode)
	switch {
	case err == nil:
		attempt.Outcome = ledger.OutcomeApplied
		attempt.File = res.RelPath
		attempt.Diff = res.Diff
	case errors.Is(err, tactile.ErrFileNotFound):
		attempt.Outcome = ledger.OutcomeFileNotFound
		attempt.Reason = err.Error()
	case errors.Is(err, tactile.ErrNoMatch):
		attempt.Outcome = ledger.OutcomeNoMatch
		attempt.Reason = err.Error()
	case errors.Is(err, tactile.ErrEmptyOldCode):
		attempt.Outcome = ledger.OutcomeMalformed
		attempt.Reason = err.Error()
	default:
		attempt.Outcome = ledger.OutcomeWriteFailed
		attempt.Reason = err.Error()
	}
}

func (o *Orchestrator) finish(outcome Outcome) *Result {
	finished := o.now()
	part := o.ledger.Partition(o.opts.MaxAttempts)

	res := &Result{
		RunID:       o.runID,
		Outcome:     outcome,
		FinalStatus: finalStatus(outcome, part),
		Cycles:      o.cycle,
		StartedAt:   o.startedAt,
		FinishedAt:  finished,
		Partition:   part,
	}
	res.Summary = report.Summary{
		RunID:       o.runID,
		StartedAt:   o.startedAt,
		FinishedAt:  finished,
		Cycles:      o.cycle,
		MaxCycles:   o.opts.MaxCycles,
		MaxAttempts: o.opts.MaxAttempts,
		Outcome:     string(outcome),
		FinalStatus: string(res.FinalStatus),
		Partition:   part,
		Severity:    o.ledger.SeverityCounts(),
	}

	logging.Pipeline("[Report] Generating report (outcome %s, status %s)", outcome, res.FinalStatus)
	art, err := o.deps.Reporter.Generate(res.Summary)
	if err != nil {
		logging.ReportError("Report generation failed: %v", err)
	}
	res.Report = art

	o.deps.Metrics.SetFinal(part, res.Duration())
	if o.opts.MetricsDir != "" && o.deps.Metrics != nil {
		stamp := report.Stamp(finished, o.runID)
		if art != nil {
			stamp = art.Stamp
		}
		if path, err := o.deps.Metrics.WriteTextfile(o.opts.MetricsDir, stamp); err == nil {
			res.MetricsPath = path
		}
	}
	return res
}
