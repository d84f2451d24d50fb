package rewrite

import (
	"strings"
)

// AlreadyApplied reports whether marker occurs in spanText. Whitespace is
// ignored on both sides so reformatted code still counts as rewritten. A
// marker that starts or ends with an identifier character must not be part
// of a longer identifier, so "Result." does not match "syncResult.value".
func AlreadyApplied(spanText, marker string) bool {
	m := compact(marker)
	if m == "" {
		return false
	}
	text := compact(spanText)
	for from := 0; ; {
		idx := strings.Index(text[from:], m)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(m)
		leftOK := start == 0 || !isIdentByte(m[0]) || !isIdentByte(text[start-1])
		rightOK := end == len(text) || !isIdentByte(m[len(m)-1]) || !isIdentByte(text[end])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
}

// compact removes whitespace, keeping a single space where it separates two
// identifier characters.
func compact(s string) string {
	var b strings.Builder
	var last byte
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			space = true
			continue
		}
		if space && isIdentByte(last) && isIdentByte(c) {
			b.WriteByte(' ')
		}
		space = false
		b.WriteByte(c)
		last = c
	}
	return b.String()
}

// normalizeStatement collapses whitespace runs, removes the padding inside
// braces and a trailing comma before a closing brace, and drops a trailing
// semicolon, so that
// "import {IdGenerator} from 'x'" and "import { IdGenerator } from 'x';"
// compare equal.
func normalizeStatement(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "{ ", "{")
	s = strings.ReplaceAll(s, " }", "}")
	s = strings.ReplaceAll(s, ",}", "}")
	return strings.TrimSuffix(s, ";")
}

// containsStatement reports whether text holds want after both are normalized.
func containsStatement(text, want string) bool {
	w := normalizeStatement(want)
	if w == "" {
		return false
	}
	return strings.Contains(normalizeStatement(text), w)
}
