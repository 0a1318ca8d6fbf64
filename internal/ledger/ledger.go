package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"visionfix/internal/logging"
)

var (
	// ErrUnknownBug is returned for identifiers the ledger never saw.
	ErrUnknownBug = errors.New("unknown bug")
	// ErrAttemptLimit is returned when a bug has no attempts left.
	ErrAttemptLimit = errors.New("attempt limit reached")
	// ErrAlreadyFixed is returned when recording against a fixed bug.
	ErrAlreadyFixed = errors.New("bug already fixed")
)

// Ledger owns the bug records for one run. The pipeline drives it from a
// single goroutine; the mutex lets reports snapshot it safely.
type Ledger struct {
	mu          sync.RWMutex
	maxAttempts int
	order       []string
	bugs        map[string]*Bug
}

// New creates an empty ledger enforcing maxAttempts per bug.
func New(maxAttempts int) *Ledger {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Ledger{
		maxAttempts: maxAttempts,
		bugs:        make(map[string]*Bug),
	}
}

// Merge adds defects whose identifier is not yet tracked and returns the
// added identifiers in order. Defects with an empty identifier are ignored.
func (l *Ledger) Merge(defects []Defect, cycle int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added []string
	for _, d := range defects {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			continue
		}
		if _, exists := l.bugs[id]; exists {
			logging.LedgerDebug("Duplicate bug %s dropped", id)
			continue
		}
		d.ID = id
		l.bugs[id] = newBug(d, cycle)
		l.order = append(l.order, id)
		added = append(added, id)
		logging.Ledger("New bug %s [%s] %s: %s", id, l.bugs[id].Severity, d.Component, d.Description)
	}
	return added
}

// SelectForRetry returns copies of the non-fixed bugs with fewer than limit
// attempts, in insertion order.
func (l *Ledger) SelectForRetry(limit int) []Bug {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit > l.maxAttempts {
		limit = l.maxAttempts
	}
	var out []Bug
	for _, id := range l.order {
		b := l.bugs[id]
		if !b.Fixed && b.Attempts < limit {
			out = append(out, b.clone())
		}
	}
	return out
}

// RecordAttempt consumes one attempt for id and appends the trace. An
// OutcomeApplied attempt marks the bug fixed. The updated bug is returned.
func (l *Ledger) RecordAttempt(id string, attempt FixAttempt) (Bug, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bugs[id]
	if !ok {
		return Bug{}, fmt.Errorf("%w: %s", ErrUnknownBug, id)
	}
	if b.Fixed {
		return b.clone(), fmt.Errorf("%w: %s", ErrAlreadyFixed, id)
	}
	if b.Attempts >= l.maxAttempts {
		return b.clone(), fmt.Errorf("%w: %s (%d/%d)", ErrAttemptLimit, id, b.Attempts, l.maxAttempts)
	}

	b.Attempts++
	attempt.Number = b.Attempts
	b.History = append(b.History, attempt)
	if attempt.Outcome == OutcomeApplied {
		b.Fixed = true
	}
	logging.LedgerDebug("Bug %s attempt %d/%d: %s", id, b.Attempts, l.maxAttempts, attempt.Outcome)
	return b.clone(), nil
}

// Get returns a copy of the bug with the given identifier.
func (l *Ledger) Get(id string) (Bug, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bugs[id]
	if !ok {
		return Bug{}, false
	}
	return b.clone(), true
}

// All returns copies of every bug in insertion order.
func (l *Ledger) All() []Bug {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Bug, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.bugs[id].clone())
	}
	return out
}

// Len returns the number of tracked bugs.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Partition splits the ledger into report categories.
type Partition struct {
	Fixed      []Bug `json:"fixed"`
	Unresolved []Bug `json:"unresolved"`
	Remaining  []Bug `json:"remaining"`
}

// Total returns the number of bugs across all categories.
func (p Partition) Total() int { return len(p.Fixed) + len(p.Unresolved) + len(p.Remaining) }

// Partition classifies every bug against limit.
func (l *Ledger) Partition(limit int) Partition {
	var p Partition
	for _, b := range l.All() {
		switch b.Status(limit) {
		case StatusFixed:
			p.Fixed = append(p.Fixed, b)
		case StatusUnresolved:
			p.Unresolved = append(p.Unresolved, b)
		default:
			p.Remaining = append(p.Remaining, b)
		}
	}
	return p
}

// SeverityCounts returns how many bugs carry each severity.
func (l *Ledger) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, b := range l.All() {
		counts[b.Severity]++
	}
	return counts
}
