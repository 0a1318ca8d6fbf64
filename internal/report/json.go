package report

import (
	"time"

	"visionfix/internal/ledger"
)

type jsonCounts struct {
	Total      int `json:"total"`
	Fixed      int `json:"fixed"`
	Unresolved int `json:"unresolved"`
	Remaining  int `json:"remaining"`
}

// jsonReport is the machine-readable companion of the Markdown report. Bugs
// carry their full fix history.
type jsonReport struct {
	RunID           string         `json:"run_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	DurationSeconds float64        `json:"duration_seconds"`
	Cycles          int            `json:"cycles"`
	MaxCycles       int            `json:"max_cycles"`
	MaxAttempts     int            `json:"max_attempts"`
	Outcome         string         `json:"outcome"`
	FinalStatus     string         `json:"final_status"`
	Summary         jsonCounts     `json:"summary"`
	Severity        map[string]int `json:"severity"`
	Fixed           []ledger.Bug   `json:"fixed"`
	Unresolved      []ledger.Bug   `json:"unresolved"`
	Remaining       []ledger.Bug   `json:"remaining"`
}

func newJSONReport(s Summary, generated time.Time) jsonReport {
	p := s.Partition
	sev := make(map[string]int, len(ledger.Severities))
	for _, level := range ledger.Severities {
		sev[string(level)] = s.Severity[level]
	}
	return jsonReport{
		RunID:           s.RunID,
		GeneratedAt:     generated,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		DurationSeconds: s.Duration().Seconds(),
		Cycles:          s.Cycles,
		MaxCycles:       s.MaxCycles,
		MaxAttempts:     s.MaxAttempts,
		Outcome:         s.Outcome,
		FinalStatus:     s.FinalStatus,
		Summary: jsonCounts{
			Total:      p.Total(),
			Fixed:      len(p.Fixed),
			Unresolved: len(p.Unresolved),
			Remaining:  len(p.Remaining),
		},
		Severity:   sev,
		Fixed:      nonNil(p.Fixed),
		Unresolved: nonNil(p.Unresolved),
		Remaining:  nonNil(p.Remaining),
	}
}

func nonNil(b []ledger.Bug) []ledger.Bug {
	if b == nil {
		return []ledger.Bug{}
	}
	return b
}
