// Package ledger is the in-memory registry of every bug observed during one
// pipeline run. Bugs are keyed by the identifier the vision model assigned;
// the first observation of an identifier wins and later duplicates are
// dropped. Records are never deleted.
package ledger

import (
	"strings"
	"time"
)

// Severity is the model-reported impact of a bug.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity normalizes s; unknown or empty values become medium.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Defect is one discrepancy reported by the visual analyzer.
type Defect struct {
	ID           string   `json:"id"`
	Severity     Severity `json:"severity"`
	Category     string   `json:"category,omitempty"`
	Component    string   `json:"component"`
	Description  string   `json:"description"`
	Expected     string   `json:"expected"`
	Actual       string   `json:"actual"`
	SuggestedFix string   `json:"suggested_fix"`
	Screenshot   string   `json:"screenshot"`
}

// Outcome classifies one fix attempt.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeNoResponse   Outcome = "no_response"
	OutcomeMalformed    Outcome = "malformed"
	OutcomeFileNotFound Outcome = "file_not_found"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeWriteFailed  Outcome = "write_failed"
)

// FixAttempt is the trace of one fix-and-apply trial.
type FixAttempt struct {
	Number        int       `json:"number"`
	Cycle         int       `json:"cycle"`
	At            time.Time `json:"at"`
	Outcome       Outcome   `json:"outcome"`
	File          string    `json:"file,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestedFile string    `json:"requested_file,omitempty"` // NEED_FILE round trip target
	Explanation   string    `json:"explanation,omitempty"`
	Diff          string    `json:"diff,omitempty"`
}

// Bug is a tracked defect plus its repair state.
type Bug struct {
	ID             string       `json:"id"`
	Severity       Severity     `json:"severity"`
	Category       string       `json:"category,omitempty"`
	Component      string       `json:"component"`
	Description    string       `json:"description"`
	Expected       string       `json:"expected"`
	Actual         string       `json:"actual"`
	SuggestedFix   string       `json:"suggested_fix"`
	Screenshot     string       `json:"screenshot"`
	Attempts       int          `json:"attempts"`
	Fixed          bool         `json:"fixed"`
	FirstSeenCycle int          `json:"first_seen_cycle"`
	History        []FixAttempt `json:"history,omitempty"`
}

// Status is a bug's classification in the final report.
type Status string

const (
	StatusFixed      Status = "fixed"
	StatusUnresolved Status = "unresolved" // attempts exhausted, not fixed
	StatusRemaining  Status = "remaining"  // budget left when the run ended
)

// Status classifies b against the attempt limit.
func (b Bug) Status(limit int) Status {
	switch {
	case b.Fixed:
		return StatusFixed
	case b.Attempts >= limit:
		return StatusUnresolved
	default:
		return StatusRemaining
	}
}

func newBug(d Defect, cycle int) *Bug {
	return &Bug{
		ID:             d.ID,
		Severity:       ParseSeverity(string(d.Severity)),
		Category:       d.Category,
		Component:      d.Component,
		Description:    d.Description,
		Expected:       d.Expected,
		Actual:         d.Actual,
		SuggestedFix:   d.SuggestedFix,
		Screenshot:     d.Screenshot,
		FirstSeenCycle: cycle,
	}
}

func (b *Bug) clone() Bug {
	c := *b
	if b.History != nil {
		c.History = append([]FixAttempt(nil), b.History...)
	}
	return c
}
