package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDeclaration is returned when a declaration opens a delimiter
// that is never closed before end-of-file.
var ErrMalformedDeclaration = errors.New("malformed declaration")

// Kind distinguishes the declaration families tracked during a pass.
type Kind string

const (
	KindImport Kind = "import"
	KindLocal  Kind = "local"
)

type record struct {
	kind Kind
	name string
}

// Records holds the declarations already emitted during one pass. A fresh
// set is created for every file.
type Records map[record]bool

// Seen reports whether (kind, name) was already emitted.
func (r Records) Seen(kind Kind, name string) bool {
	return r[record{kind, name}]
}

func (r Records) mark(kind Kind, name string) {
	r[record{kind, name}] = true
}

// DedupeRule identifies one declaration.
type DedupeRule struct {
	Kind  Kind
	Name  string
	Match string
	// Leading is a comment line inserted above the declaration. It is removed
	// together with a duplicate it directly precedes.
	Leading string
}

// Dedupe keeps the first copy of every declaration matched by rules and
// removes later copies together with their multi-line bodies. It returns the
// surviving lines and the number of lines removed.
func Dedupe(lines []string, rules []DedupeRule, seen Records) ([]string, int, error) {
	out := make([]string, 0, len(lines))
	removed := 0

	for i := 0; i < len(lines); {
		rule, span, ok, err := matchDeclaration(lines, i, rules)
		if err != nil {
			return lines, 0, err
		}
		if !ok {
			out = append(out, lines[i])
			i++
			continue
		}

		if seen.Seen(rule.Kind, rule.Name) {
			removed += span.Lines()
			if n := len(out); rule.Leading != "" && n > 0 && strings.TrimSpace(out[n-1]) == rule.Leading {
				out = out[:n-1]
				removed++
			}
		} else {
			seen.mark(rule.Kind, rule.Name)
			out = append(out, lines[span.Start:span.End+1]...)
		}
		i = span.End + 1
	}
	return out, removed, nil
}

func matchDeclaration(lines []string, i int, rules []DedupeRule) (DedupeRule, Span, bool, error) {
	line := lines[i]
	var imp *Span

	for _, rule := range rules {
		if rule.Kind == KindImport {
			if !importStart(line) {
				continue
			}
			if imp == nil {
				span := importSpan(lines, i)
				imp = &span
			}
			if containsStatement(imp.Text, rule.Match) {
				return rule, *imp, true, nil
			}
			continue
		}

		if !declares(line, rule.Match) {
			continue
		}
		span, err := declarationSpan(lines, i)
		if err != nil {
			return rule, Span{}, false, fmt.Errorf("%w: %s at line %d is never closed", ErrMalformedDeclaration, rule.Name, i+1)
		}
		return rule, span, true, nil
	}
	return DedupeRule{}, Span{}, false, nil
}

// declarationSpan returns the lines of the declaration starting at line i. It
// ends on the line closing the first delimiter that line i leaves open; a
// declaration that opens nothing it does not also close is a single line.
func declarationSpan(lines []string, i int) (Span, error) {
	line := lines[i]
	for col := 0; col < len(line); col++ {
		if !isOpener(line[col]) || !inCode(line, col) {
			continue
		}
		span, err := ScanBalanced(lines, i, col)
		if err != nil {
			return Span{}, err
		}
		if span.End > i {
			return Span{Start: i, End: span.End, OpenCol: -1, CloseCol: -1, Text: span.Text}, nil
		}
		col = span.CloseCol
	}
	return Span{Start: i, End: i, OpenCol: -1, CloseCol: -1, Text: line}, nil
}

// declares reports whether the code of line contains match followed by a
// non-identifier character, so "const mock" does not claim "const mockFactory".
// Comments and string literals never declare anything.
func declares(line, match string) bool {
	if commentLine(line) {
		return false
	}
	norm := normalizeStatement(codeText(line))
	want := normalizeStatement(match)
	if want == "" {
		return false
	}
	for from := 0; ; {
		idx := strings.Index(norm[from:], want)
		if idx < 0 {
			return false
		}
		end := from + idx + len(want)
		if end >= len(norm) || !isIdentByte(norm[end]) || !isIdentByte(want[len(want)-1]) {
			return true
		}
		from = from + idx + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
