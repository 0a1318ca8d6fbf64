// Package pipeline runs the collect, analyze and fix cycle against the
// application under test and reports on the bugs it saw.
package pipeline

import (
	"context"
	"errors"
	"time"

	"visionfix/internal/coder"
	"visionfix/internal/collect"
	"visionfix/internal/ledger"
	"visionfix/internal/report"
	"visionfix/internal/tactile"
)

// ErrPrerequisites means the application or inference service was
// unreachable before the first cycle.
var ErrPrerequisites = errors.New("prerequisite check failed")

// Outcome is why the cycle loop stopped.
type Outcome string

const (
	OutcomeAllClear  Outcome = "all_clear" // a cycle's analysis found nothing
	OutcomeExhausted Outcome = "exhausted" // no bug had attempts left
	OutcomeCycleCap  Outcome = "cycle_cap"
	OutcomeCancelled Outcome = "cancelled"
)

// FinalStatus summarizes the run for operators.
type FinalStatus string

const (
	StatusClean   FinalStatus = "clean"
	StatusPartial FinalStatus = "partial"
	StatusBlocked FinalStatus = "blocked"
)

// Analyzer turns one screenshot into defects.
type Analyzer interface {
	Analyze(ctx context.Context, artifact collect.Artifact) ([]ledger.Defect, error)
}

// Synthesizer proposes a fix for one bug.
type Synthesizer interface {
	Synthesize(ctx context.Context, bug ledger.Bug) (*coder.Proposal, error)
}

// Patcher applies an exact-text substitution.
type Patcher interface {
	Apply(path, oldCode, newCode string) (*tactile.PatchResult, error)
}

// Reporter writes the final report.
type Reporter interface {
	Generate(s report.Summary) (*report.Artifact, error)
}

// Result describes a finished run.
type Result struct {
	RunID       string
	Outcome     Outcome
	FinalStatus FinalStatus
	Cycles      int
	StartedAt   time.Time
	FinishedAt  time.Time
	Report      *report.Artifact
	MetricsPath string
	Partition   ledger.Partition
	Summary     report.Summary
}

// Duration returns the run's wall time.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

func finalStatus(outcome Outcome, p ledger.Partition) FinalStatus {
	switch {
	case outcome == OutcomeAllClear && len(p.Unresolved) == 0 && len(p.Remaining) == 0:
		return StatusClean
	case len(p.Fixed) > 0:
		return StatusPartial
	default:
		return StatusBlocked
	}
}
