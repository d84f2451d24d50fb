package rewrite

import (
	"strings"
)

// importStart reports whether a line opens a top-level import statement.
func importStart(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "import{")
}

// importEnd reports whether a trimmed line closes an import statement.
func importEnd(trimmed string) bool {
	switch {
	case strings.Contains(trimmed, " from "), strings.HasPrefix(trimmed, "from "),
		strings.HasPrefix(trimmed, "}from"), strings.HasSuffix(trimmed, ";"):
		return true
	case strings.HasPrefix(trimmed, "import '"), strings.HasPrefix(trimmed, `import "`):
		return true
	}
	return false
}

// importSpan returns the span of the import statement starting at line i.
// An import that never terminates is treated as a single line.
func importSpan(lines []string, i int) Span {
	span, err := ScanUntil(lines, i, importEnd)
	if err != nil {
		return Span{Start: i, End: i, OpenCol: -1, CloseCol: -1, Text: lines[i]}
	}
	return span
}

func importSpans(lines []string) []Span {
	var spans []Span
	for i := 0; i < len(lines); i++ {
		if !importStart(lines[i]) {
			continue
		}
		span := importSpan(lines, i)
		spans = append(spans, span)
		i = span.End
	}
	return spans
}

func firstSuiteEntry(lines []string, entries []string) int {
	for i, line := range lines {
		for _, entry := range entries {
			if entry != "" && strings.HasPrefix(line, entry) {
				return i
			}
		}
	}
	return -1
}

// EnsureImport inserts rule.Body after the last import statement unless an
// equivalent import already exists. Without imports it goes before the first
// suite entry, and failing that at end-of-file.
func EnsureImport(lines []string, rule Ensure, suiteEntries []string) ([]string, bool) {
	statement := strings.Join(rule.Body, "\n")
	for _, span := range importSpans(lines) {
		if containsStatement(span.Text, statement) || containsStatement(span.Text, rule.match()) {
			return lines, false
		}
	}
	anchor := rule.Anchor
	if anchor == "" {
		anchor = AnchorAfterImports
	}
	return insertBlock(lines, rule.Body, anchor, suiteEntries), true
}

// EnsureDeclaration inserts the rule's template unless a line already
// declares it. The default anchor is the first suite entry.
func EnsureDeclaration(lines []string, rule Ensure, suiteEntries []string) ([]string, bool) {
	match := rule.match()
	for _, line := range lines {
		if declares(line, match) {
			return lines, false
		}
	}
	anchor := rule.Anchor
	if anchor == "" {
		anchor = AnchorBeforeSuite
	}
	return insertBlock(lines, rule.Body, anchor, suiteEntries), true
}

func insertBlock(lines, block []string, anchor Anchor, suiteEntries []string) []string {
	afterImports := -1
	if spans := importSpans(lines); len(spans) > 0 {
		afterImports = spans[len(spans)-1].End + 1
	}
	suite := firstSuiteEntry(lines, suiteEntries)
	beforeSuite := append(append([]string{}, block...), "")

	switch {
	case anchor == AnchorBeforeSuite && suite >= 0:
		return insertAt(lines, suite, beforeSuite)
	case afterImports >= 0:
		return insertAt(lines, afterImports, block)
	case suite >= 0:
		return insertAt(lines, suite, beforeSuite)
	}

	// Keep the file's trailing newline after the inserted block.
	at := len(lines)
	if at > 0 && lines[at-1] == "" {
		at--
	}
	return insertAt(lines, at, block)
}

// insertAt inserts block before lines[at]. Inserted lines take a carriage
// return when the lines around the insertion point carry one.
func insertAt(lines []string, at int, block []string) []string {
	if crlfAt(lines, at) {
		withCR := make([]string, len(block))
		for i, l := range block {
			withCR[i] = l + "\r"
		}
		block = withCR
	}
	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at]...)
	out = append(out, block...)
	return append(out, lines[at:]...)
}

func crlfAt(lines []string, at int) bool {
	if at > 0 && strings.HasSuffix(lines[at-1], "\r") {
		return true
	}
	return at < len(lines) && strings.HasSuffix(lines[at], "\r")
}
