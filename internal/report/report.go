// Package report renders the final bug ledger into a Markdown report, a JSON
// companion and a console summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"visionfix/internal/ledger"
	"visionfix/internal/logging"
)

// StampLayout names report files: pipeline-YYYYMMDD-HHMMSS.
const StampLayout = "20060102-150405"

// Summary is everything a report needs about a finished run.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Cycles      int
	MaxCycles   int
	MaxAttempts int
	Outcome     string
	FinalStatus string
	Partition   ledger.Partition
	Severity    map[ledger.Severity]int
}

// Duration returns the run's wall time.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Artifact lists the files one Generate call wrote.
type Artifact struct {
	Stamp        string `json:"stamp"`
	MarkdownPath string `json:"markdown_path"`
	JSONPath     string `json:"json_path,omitempty"`
}

// Generator writes reports into a directory.
type Generator struct {
	dir       string
	writeJSON bool
	now       func() time.Time
}

// NewGenerator creates a generator writing to dir.
func NewGenerator(dir string, writeJSON bool) *Generator {
	return &Generator{dir: dir, writeJSON: writeJSON, now: time.Now}
}

// Dir returns the reports directory.
func (g *Generator) Dir() string { return g.dir }

// Generate writes pipeline-<stamp>.md and, when enabled, its JSON companion.
// The stamp carries the run ID so runs finishing in the same second do not
// overwrite each other.
func (g *Generator) Generate(s Summary) (*Artifact, error) {
	now := g.now()
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	stamp := Stamp(now, s.RunID)
	art := &Artifact{
		Stamp:        stamp,
		MarkdownPath: filepath.Join(g.dir, "pipeline-"+stamp+".md"),
	}
	if err := os.WriteFile(art.MarkdownPath, []byte(RenderMarkdown(s, now)), 0644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	logging.Report("Report saved to %s", art.MarkdownPath)

	if g.writeJSON {
		art.JSONPath = filepath.Join(g.dir, "pipeline-"+stamp+".json")
		data, err := json.MarshalIndent(newJSONReport(s, now), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(art.JSONPath, data, 0644); err != nil {
			return nil, fmt.Errorf("write json report: %w", err)
		}
		logging.ReportDebug("JSON report saved to %s", art.JSONPath)
	}
	return art, nil
}

// Stamp names the artifacts of one run: the finish time, then the run ID
// when there is one.
func Stamp(t time.Time, runID string) string {
	stamp := t.Format(StampLayout)
	if runID != "" {
		stamp += "-" + runID
	}
	return stamp
}

// RenderMarkdown renders the report body.
func RenderMarkdown(s Summary, generated time.Time) string {
	p := s.Partition
	var sb strings.Builder

	sb.WriteString("# Visual Testing Pipeline Report\n\n")
	fmt.Fprintf(&sb, "**Generated**: %s\n", generated.Format(time.RFC3339))
	if s.RunID != "" {
		fmt.Fprintf(&sb, "**Run ID**: %s\n", s.RunID)
	}
	fmt.Fprintf(&sb, "**Duration**: %s\n", FormatDuration(s.Duration()))
	if s.MaxCycles > 0 {
		fmt.Fprintf(&sb, "**Cycles**: %d / %d\n", s.Cycles, s.MaxCycles)
	} else {
		fmt.Fprintf(&sb, "**Cycles**: %d\n", s.Cycles)
	}
	fmt.Fprintf(&sb, "**Outcome**: %s\n", s.Outcome)
	fmt.Fprintf(&sb, "**Final Status**: %s\n\n", s.FinalStatus)

	sb.WriteString("## Summary\n\n")
	sb.WriteString(newTable(modeMarkdown).
		header("Metric", "Count").
		row("Total Bugs Found", p.Total()).
		row("Fixed", len(p.Fixed)).
		row("Unresolved", len(p.Unresolved)).
		row("Remaining", len(p.Remaining)).
		alignRight(2).
		String())
	sb.WriteString("\n\n")

	if p.Total() > 0 {
		sb.WriteString("## Severity\n\n")
		t := newTable(modeMarkdown).header("Severity", "Count").alignRight(2)
		for _, sev := range ledger.Severities {
			t.row(string(sev), s.Severity[sev])
		}
		sb.WriteString(t.String())
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Fixed Bugs\n\n")
	for _, b := range p.Fixed {
		writeBug(&sb, b, false)
	}

	sb.WriteString("\n## Unresolved Bugs\n\n")
	for _, b := range p.Unresolved {
		writeBug(&sb, b, true)
	}

	sb.WriteString("\n## Remaining Bugs\n\n")
	for _, b := range p.Remaining {
		writeBug(&sb, b, false)
	}

	sb.WriteString("\n---\n*Generated by visionfix*\n")
	return sb.String()
}

func writeBug(sb *strings.Builder, b ledger.Bug, withScreenshot bool) {
	fmt.Fprintf(sb, "### %s\n", orDefault(b.ID, "Unknown"))
	fmt.Fprintf(sb, "- **Severity**: %s\n", b.Severity)
	fmt.Fprintf(sb, "- **Component**: %s\n", orDefault(b.Component, "unknown"))
	fmt.Fprintf(sb, "- **Description**: %s\n", orDefault(b.Description, "unknown"))
	fmt.Fprintf(sb, "- **Attempts**: %d\n", b.Attempts)
	if withScreenshot {
		fmt.Fprintf(sb, "- **Screenshot**: %s\n", orDefault(b.Screenshot, "N/A"))
	}
	if n := len(b.History); n > 0 {
		last := b.History[n-1]
		line := string(last.Outcome)
		if last.Reason != "" {
			line += " (" + last.Reason + ")"
		}
		fmt.Fprintf(sb, "- **Last Attempt**: %s\n", line)
	}
	sb.WriteString("\n")
}

// FormatDuration renders d as "1h 2m 3s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
