package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func defect(id, desc string) Defect {
	return Defect{ID: id, Severity: SeverityHigh, Component: "Results Table", Description: desc, Screenshot: "captures/" + id + ".png"}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"critical": SeverityCritical,
		"HIGH":     SeverityHigh,
		" low ":    SeverityLow,
		"medium":   SeverityMedium,
		"blocker":  SeverityMedium,
		"":         SeverityMedium,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSeverity(in), "input %q", in)
	}
}

func TestMerge_FirstWriteWins(t *testing.T) {
	l := New(3)

	added := l.Merge([]Defect{defect("BUG-001", "missing rows"), defect("BUG-002", "chip mismatch")}, 1)
	assert.Equal(t, []string{"BUG-001", "BUG-002"}, added)

	added = l.Merge([]Defect{defect("BUG-001", "a different description"), defect("BUG-003", "overlap")}, 2)
	assert.Equal(t, []string{"BUG-003"}, added)
	assert.Equal(t, 3, l.Len())

	b, ok := l.Get("BUG-001")
	require.True(t, ok)
	assert.Equal(t, "missing rows", b.Description)
	assert.Equal(t, 1, b.FirstSeenCycle)

	b3, _ := l.Get("BUG-003")
	assert.Equal(t, 2, b3.FirstSeenCycle)
}

func TestMerge_DuplicateWithinBatchAndBlankIDs(t *testing.T) {
	l := New(3)
	added := l.Merge([]Defect{defect("X", "one"), defect("X", "two"), defect("  ", "blank"), defect(" Y ", "trimmed")}, 1)
	assert.Equal(t, []string{"X", "Y"}, added)
	x, _ := l.Get("X")
	assert.Equal(t, "one", x.Description)
}

func TestMerge_NormalizesSeverity(t *testing.T) {
	l := New(3)
	d := defect("S", "x")
	d.Severity = "Severe"
	l.Merge([]Defect{d}, 1)
	b, _ := l.Get("S")
	assert.Equal(t, SeverityMedium, b.Severity)
}

func TestRecordAttempt(t *testing.T) {
	l := New(2)
	l.Merge([]Defect{defect("A", "x")}, 1)

	b, err := l.RecordAttempt("A", FixAttempt{Outcome: OutcomeNoMatch, Reason: "old code absent"})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Attempts)
	assert.False(t, b.Fixed)
	require.Len(t, b.History, 1)
	assert.Equal(t, 1, b.History[0].Number)

	b, err = l.RecordAttempt("A", FixAttempt{Outcome: OutcomeApplied, File: "src/a.ts"})
	require.NoError(t, err)
	assert.True(t, b.Fixed)
	assert.Equal(t, 2, b.Attempts)

	_, err = l.RecordAttempt("A", FixAttempt{Outcome: OutcomeMalformed})
	assert.ErrorIs(t, err, ErrAlreadyFixed)

	_, err = l.RecordAttempt("nope", FixAttempt{})
	assert.ErrorIs(t, err, ErrUnknownBug)
}

func TestRecordAttempt_EnforcesLimit(t *testing.T) {
	l := New(1)
	l.Merge([]Defect{defect("A", "x")}, 1)

	_, err := l.RecordAttempt("A", FixAttempt{Outcome: OutcomeMalformed})
	require.NoError(t, err)
	b, err := l.RecordAttempt("A", FixAttempt{Outcome: OutcomeApplied})
	assert.ErrorIs(t, err, ErrAttemptLimit)
	assert.Equal(t, 1, b.Attempts)
	assert.False(t, b.Fixed)
}

func TestSelectForRetry(t *testing.T) {
	l := New(3)
	l.Merge([]Defect{defect("A", "a"), defect("B", "b"), defect("C", "c")}, 1)

	for i := 0; i < 3; i++ {
		_, err := l.RecordAttempt("A", FixAttempt{Outcome: OutcomeNoMatch})
		require.NoError(t, err)
	}
	_, err := l.RecordAttempt("B", FixAttempt{Outcome: OutcomeApplied})
	require.NoError(t, err)

	selected := l.SelectForRetry(3)
	require.Len(t, selected, 1)
	assert.Equal(t, "C", selected[0].ID)

	assert.Empty(t, New(3).SelectForRetry(3))
}

func TestSelectForRetry_ReturnsCopies(t *testing.T) {
	l := New(3)
	l.Merge([]Defect{defect("A", "a")}, 1)
	_, err := l.RecordAttempt("A", FixAttempt{Outcome: OutcomeNoMatch})
	require.NoError(t, err)

	selected := l.SelectForRetry(3)
	selected[0].Attempts = 99
	selected[0].History[0].Reason = "mutated"

	b, _ := l.Get("A")
	assert.Equal(t, 1, b.Attempts)
	assert.Empty(t, b.History[0].Reason)
}

func TestPartition(t *testing.T) {
	l := New(3)
	l.Merge([]Defect{defect("fixed", ""), defect("stuck", ""), defect("mid", ""), defect("fresh", "")}, 1)

	_, _ = l.RecordAttempt("fixed", FixAttempt{Outcome: OutcomeApplied})
	for i := 0; i < 3; i++ {
		_, _ = l.RecordAttempt("stuck", FixAttempt{Outcome: OutcomeNoMatch})
	}
	_, _ = l.RecordAttempt("mid", FixAttempt{Outcome: OutcomeMalformed})

	p := l.Partition(3)
	ids := func(bugs []Bug) []string {
		var out []string
		for _, b := range bugs {
			out = append(out, b.ID)
		}
		return out
	}
	assert.Equal(t, []string{"fixed"}, ids(p.Fixed))
	assert.Equal(t, []string{"stuck"}, ids(p.Unresolved))
	assert.Equal(t, []string{"mid", "fresh"}, ids(p.Remaining))
	assert.Equal(t, 4, p.Total())
}

func TestAll_PreservesInsertionOrder(t *testing.T) {
	l := New(3)
	l.Merge([]Defect{defect("Z", ""), defect("A", "")}, 1)
	l.Merge([]Defect{defect("M", "")}, 2)

	want := []Bug{
		{ID: "Z", Severity: SeverityHigh, Component: "Results Table", Screenshot: "captures/Z.png", FirstSeenCycle: 1},
		{ID: "A", Severity: SeverityHigh, Component: "Results Table", Screenshot: "captures/A.png", FirstSeenCycle: 1},
		{ID: "M", Severity: SeverityHigh, Component: "Results Table", Screenshot: "captures/M.png", FirstSeenCycle: 2},
	}
	if diff := cmp.Diff(want, l.All(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeverityCounts(t *testing.T) {
	l := New(3)
	low := defect("L", "")
	low.Severity = SeverityLow
	l.Merge([]Defect{defect("H1", ""), defect("H2", ""), low}, 1)

	counts := l.SeverityCounts()
	assert.Equal(t, 2, counts[SeverityHigh])
	assert.Equal(t, 1, counts[SeverityLow])
	assert.Zero(t, counts[SeverityCritical])
}

// TestProperty_LedgerInvariants drives random merge/record sequences and
// checks identifier uniqueness, the attempt bound and fixed-flag monotonicity.
func TestProperty_LedgerInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 4).Draw(rt, "limit")
		l := New(limit)
		ids := []string{"BUG-001", "BUG-002", "BUG-003", "BUG-004", "BUG-005"}
		outcomes := []Outcome{OutcomeApplied, OutcomeNoResponse, OutcomeMalformed, OutcomeFileNotFound, OutcomeNoMatch, OutcomeWriteFailed}

		wasFixed := make(map[string]bool)
		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("merge_%d", i)) {
				n := rapid.IntRange(0, 4).Draw(rt, fmt.Sprintf("n_%d", i))
				var batch []Defect
				for j := 0; j < n; j++ {
					id := rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("id_%d_%d", i, j))
					batch = append(batch, defect(id, rapid.StringMatching(`[a-z ]{0,12}`).Draw(rt, fmt.Sprintf("desc_%d_%d", i, j))))
				}
				l.Merge(batch, i)
				continue
			}

			for _, b := range l.SelectForRetry(limit) {
				outcome := rapid.SampledFrom(outcomes).Draw(rt, fmt.Sprintf("outcome_%d_%s", i, b.ID))
				_, err := l.RecordAttempt(b.ID, FixAttempt{Outcome: outcome})
				require.NoError(rt, err, "selected bugs always accept an attempt")
			}

			// Recording against non-selectable bugs must be refused.
			for _, b := range l.All() {
				if b.Fixed || b.Attempts >= limit {
					_, err := l.RecordAttempt(b.ID, FixAttempt{Outcome: OutcomeApplied})
					require.True(rt, errors.Is(err, ErrAlreadyFixed) || errors.Is(err, ErrAttemptLimit))
				}
			}

			seen := make(map[string]bool)
			for _, b := range l.All() {
				require.False(rt, seen[b.ID], "duplicate id %s", b.ID)
				seen[b.ID] = true
				require.LessOrEqual(rt, b.Attempts, limit)
				require.Len(rt, b.History, b.Attempts)
				if wasFixed[b.ID] {
					require.True(rt, b.Fixed, "fixed flag reverted for %s", b.ID)
				}
				wasFixed[b.ID] = b.Fixed
			}
		}

		p := l.Partition(limit)
		require.Equal(rt, l.Len(), p.Total())
	})
}
