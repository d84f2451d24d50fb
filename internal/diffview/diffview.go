// Package diffview renders unified diffs of rewritten files for dry runs.
package diffview

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const contextLines = 3

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type op struct {
	kind opKind
	text string
}

type hunk struct {
	oldStart, oldLines int
	newStart, newLines int
	ops                []op
}

// Unified returns a unified diff between before and after labelled with
// path, or "" when they are equal.
func Unified(path, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	// Line-level reduction avoids hunks that split lines.
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	hunks := groupIntoHunks(toOps(diffs))
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- a/%s\n", path))
	sb.WriteString(fmt.Sprintf("+++ b/%s\n", path))
	for _, h := range hunks {
		sb.WriteString(buildHunkHeader(h.oldStart, h.oldLines, h.newStart, h.newLines))
		for _, o := range h.ops {
			switch o.kind {
			case opDelete:
				sb.WriteString("-")
			case opInsert:
				sb.WriteString("+")
			default:
				sb.WriteString(" ")
			}
			sb.WriteString(o.text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func buildHunkHeader(oldStart, oldLines, newStart, newLines int) string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldLines, newStart, newLines)
}

func toOps(diffs []diffmatchpatch.Diff) []op {
	var ops []op
	for _, d := range diffs {
		kind := opEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = opDelete
		case diffmatchpatch.DiffInsert:
			kind = opInsert
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			ops = append(ops, op{kind: kind, text: line})
		}
	}
	return ops
}

// groupIntoHunks keeps contextLines of unchanged lines around every change
// and merges changes whose context overlaps.
func groupIntoHunks(ops []op) []hunk {
	type window struct{ from, to int }
	var windows []window
	for i, o := range ops {
		if o.kind == opEqual {
			continue
		}
		from := max(0, i-contextLines)
		to := min(len(ops), i+contextLines+1)
		if n := len(windows); n > 0 && from <= windows[n-1].to {
			windows[n-1].to = max(windows[n-1].to, to)
			continue
		}
		windows = append(windows, window{from, to})
	}

	hunks := make([]hunk, 0, len(windows))
	oldLine, newLine, pos := 1, 1, 0
	for _, w := range windows {
		for ; pos < w.from; pos++ {
			oldLine, newLine = advance(ops[pos].kind, oldLine, newLine)
		}
		h := hunk{oldStart: oldLine, newStart: newLine, ops: ops[w.from:w.to]}
		for _, o := range h.ops {
			if o.kind != opInsert {
				h.oldLines++
			}
			if o.kind != opDelete {
				h.newLines++
			}
		}
		hunks = append(hunks, h)
		for ; pos < w.to; pos++ {
			oldLine, newLine = advance(ops[pos].kind, oldLine, newLine)
		}
	}
	return hunks
}

func advance(kind opKind, oldLine, newLine int) (int, int) {
	switch kind {
	case opDelete:
		return oldLine + 1, newLine
	case opInsert:
		return oldLine, newLine + 1
	default:
		return oldLine + 1, newLine + 1
	}
}
