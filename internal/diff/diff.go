// Package diff renders line-level unified diffs with sergi/go-diff. The
// patcher uses it to record what each applied fix changed.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Line represents a single line in the diff
type Line struct {
	Content string
	Type    LineType
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
	Added   int
	Removed int
}

// Empty reports whether the two sides were identical.
func (d *FileDiff) Empty() bool { return len(d.Hunks) == 0 }

// Engine computes line diffs.
type Engine struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewEngine creates a new diff engine with the given context size. A negative
// value selects DefaultContext.
func NewEngine(context int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact results; inputs are single source files
	if context < 0 {
		context = DefaultContext
	}
	return &Engine{dmp: dmp, context: context}
}

var defaultEngine = NewEngine(DefaultContext)

// ComputeDiff is a convenience function using the default engine
func ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return defaultEngine.ComputeDiff(oldPath, newPath, oldContent, newContent)
}

// ComputeDiff creates a FileDiff from old and new content strings.
func (e *Engine) ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldContent == newContent {
		return fd
	}

	// Each distinct line becomes one rune so the library diffs whole lines.
	var table lineTable
	a := table.encode(oldContent)
	b := table.encode(newContent)
	diffs := e.dmp.DiffMainRunes(a, b, false)

	ops := table.operations(diffs)
	for _, op := range ops {
		switch op.typ {
		case LineAdded:
			fd.Added++
		case LineRemoved:
			fd.Removed++
		}
	}
	fd.Hunks = groupIntoHunks(ops, e.context)
	return fd
}

// lineBase is the first rune handed out for a line. Everything from here to
// utf8.MaxRune is a valid non-surrogate code point.
const lineBase = 0xE000

// lineTable interns lines as runes. A final line without a newline is a
// different line from the same text with one.
type lineTable struct {
	lines []string
	index map[string]rune
}

func (t *lineTable) encode(content string) []rune {
	if t.index == nil {
		t.index = make(map[string]rune)
	}
	var out []rune
	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			continue
		}
		r, ok := t.index[line]
		if !ok {
			r = rune(lineBase + len(t.lines))
			t.index[line] = r
			t.lines = append(t.lines, line)
		}
		out = append(out, r)
	}
	return out
}

func (t *lineTable) line(r rune) string {
	return strings.TrimSuffix(t.lines[int(r)-lineBase], "\n")
}

// operation is one line plus the number of old/new lines preceding it.
type operation struct {
	typ       LineType
	oldBefore int
	newBefore int
	content   string
}

func (t *lineTable) operations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		for _, r := range d.Text {
			op := operation{oldBefore: oldLine, newBefore: newLine, content: t.line(r)}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				op.typ = LineContext
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				op.typ = LineRemoved
				oldLine++
			case diffmatchpatch.DiffInsert:
				op.typ = LineAdded
				newLine++
			}
			ops = append(ops, op)
		}
	}
	return ops
}

// groupIntoHunks merges changes whose context windows touch into one hunk.
func groupIntoHunks(ops []operation, context int) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].typ == LineContext {
			i++
			continue
		}

		start := i - context
		if start < 0 {
			start = 0
		}
		end := i // last change index in this hunk
		for j := i + 1; j < len(ops); j++ {
			if ops[j].typ == LineContext {
				continue
			}
			if j-end-1 > 2*context {
				break
			}
			end = j
		}
		stop := end + context + 1
		if stop > len(ops) {
			stop = len(ops)
		}

		h := Hunk{OldStart: ops[start].oldBefore + 1, NewStart: ops[start].newBefore + 1}
		for _, op := range ops[start:stop] {
			h.Lines = append(h.Lines, Line{Content: op.content, Type: op.typ})
			if op.typ != LineAdded {
				h.OldCount++
			}
			if op.typ != LineRemoved {
				h.NewCount++
			}
		}
		// Unified format points an empty side at the line before it.
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}

// Unified renders the diff in unified format. An empty diff renders as "".
func (d *FileDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", d.OldPath, d.NewPath)
	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n", span(h.OldStart, h.OldCount), span(h.NewStart, h.NewCount))
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				sb.WriteByte('+')
			case LineRemoved:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func span(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
