package report

import (
	"fmt"
	"strings"

	"visionfix/internal/ledger"
)

// ConsoleSummary renders the end-of-run summary for the operator.
func ConsoleSummary(s Summary, art *Artifact) string {
	p := s.Partition
	var sb strings.Builder
	rule := strings.Repeat("=", 60)

	sb.WriteString(rule + "\nPIPELINE COMPLETE\n" + rule + "\n")
	fmt.Fprintf(&sb, "Run:      %s\n", s.RunID)
	fmt.Fprintf(&sb, "Duration: %s\n", FormatDuration(s.Duration()))
	fmt.Fprintf(&sb, "Cycles:   %d\n", s.Cycles)
	fmt.Fprintf(&sb, "Outcome:  %s (%s)\n", s.Outcome, s.FinalStatus)
	fmt.Fprintf(&sb, "Bugs:     %d fixed, %d unresolved, %d remaining\n", len(p.Fixed), len(p.Unresolved), len(p.Remaining))

	if p.Total() > 0 {
		t := newTable(modeASCII).header("ID", "Severity", "Component", "Status", "Attempts")
		for _, group := range []struct {
			status ledger.Status
			bugs   []ledger.Bug
		}{
			{ledger.StatusFixed, p.Fixed},
			{ledger.StatusUnresolved, p.Unresolved},
			{ledger.StatusRemaining, p.Remaining},
		} {
			for _, b := range group.bugs {
				t.row(b.ID, string(b.Severity), b.Component, string(group.status), fmt.Sprintf("%d/%d", b.Attempts, s.MaxAttempts))
			}
		}
		t.footer("", "", "", "total", p.Total())
		sb.WriteString(t.maxWidth(3, 40).String())
		sb.WriteString("\n")
	}

	if art != nil {
		fmt.Fprintf(&sb, "Report:   %s\n", art.MarkdownPath)
		if art.JSONPath != "" {
			fmt.Fprintf(&sb, "JSON:     %s\n", art.JSONPath)
		}
	}
	sb.WriteString(rule + "\n")
	return sb.String()
}
