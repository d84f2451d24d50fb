package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedBlock is returned when a scan reaches end-of-file before
// the block it started is closed.
var ErrUnterminatedBlock = errors.New("unterminated block")

// Span is an inclusive range of lines holding one logical statement.
type Span struct {
	Start int
	End   int

	// OpenCol and CloseCol locate the opening delimiter on the Start line and
	// its matching closer on the End line. Both are -1 for line-oriented scans.
	OpenCol  int
	CloseCol int

	// Text is the concatenation of lines Start..End.
	Text string

	// TopLevel is the argument text between the delimiters at nesting depth
	// one. Nested groups are reduced to their delimiters and the string
	// literals inside them are dropped.
	TopLevel string
}

// Lines returns the number of lines covered by the span.
func (s Span) Lines() int {
	return s.End - s.Start + 1
}

// EndFunc reports whether a trimmed line terminates a line-oriented block.
type EndFunc func(trimmed string) bool

type lexState int

const (
	lexCode lexState = iota
	lexSingle
	lexDouble
	lexTemplate
	lexBlockComment
)

// lexer is a delimiter-depth state machine. It counts (), [] and {} outside
// string literals and comments.
type lexer struct {
	state   lexState
	depth   int
	escaped bool
	top     strings.Builder
}

// feed consumes line[from:] and returns the column of the closer that brings
// the depth back to zero, or -1 when the line ends first.
func (lx *lexer) feed(line string, from int) int {
	for i := from; i < len(line); i++ {
		c := line[i]
		switch lx.state {
		case lexBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				lx.state = lexCode
				i++
			}
			continue
		case lexSingle, lexDouble, lexTemplate:
			lx.emit(c)
			if lx.escaped {
				lx.escaped = false
				continue
			}
			if c == '\\' {
				lx.escaped = true
				continue
			}
			if c == quoteFor(lx.state) {
				lx.state = lexCode
			}
			continue
		}

		switch c {
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return lx.endLine()
			}
			if i+1 < len(line) && line[i+1] == '*' {
				lx.state = lexBlockComment
				i++
				continue
			}
			lx.emit(c)
		case '\'':
			lx.state = lexSingle
			lx.emit(c)
		case '"':
			lx.state = lexDouble
			lx.emit(c)
		case '`':
			lx.state = lexTemplate
			lx.emit(c)
		case '(', '[', '{':
			lx.depth++
			if lx.depth == 2 {
				lx.top.WriteByte(c)
			}
		case ')', ']', '}':
			lx.depth--
			if lx.depth == 0 {
				return i
			}
			if lx.depth == 1 {
				lx.top.WriteByte(c)
			}
		case '\r':
			// Lines of CRLF files keep their carriage return.
		default:
			lx.emit(c)
		}
	}
	return lx.endLine()
}

// endLine resets per-line state. Quote and double-quote literals cannot span
// lines; template literals and block comments can.
func (lx *lexer) endLine() int {
	if lx.state == lexSingle || lx.state == lexDouble {
		lx.state = lexCode
	}
	lx.escaped = false
	if lx.depth == 1 {
		lx.top.WriteByte('\n')
	}
	return -1
}

// emit records c in the top-level projection. Characters nested deeper,
// string literals included, are dropped.
func (lx *lexer) emit(c byte) {
	if lx.depth == 1 {
		lx.top.WriteByte(c)
	}
}

func quoteFor(s lexState) byte {
	switch s {
	case lexSingle:
		return '\''
	case lexDouble:
		return '"'
	default:
		return '`'
	}
}

func isOpener(c byte) bool {
	return c == '(' || c == '[' || c == '{'
}

// ScanBalanced scans from the opening delimiter at lines[line][col] to its
// matching closer, which may sit any number of lines further down.
func ScanBalanced(lines []string, line, col int) (Span, error) {
	if line < 0 || line >= len(lines) || col < 0 || col >= len(lines[line]) || !isOpener(lines[line][col]) {
		return Span{}, fmt.Errorf("no opening delimiter at %d:%d", line+1, col+1)
	}

	lx := &lexer{}
	from := col
	for j := line; j < len(lines); j++ {
		if closeCol := lx.feed(lines[j], from); closeCol >= 0 {
			return Span{
				Start:    line,
				End:      j,
				OpenCol:  col,
				CloseCol: closeCol,
				Text:     strings.Join(lines[line:j+1], "\n"),
				TopLevel: strings.TrimSuffix(lx.top.String(), "\n"),
			}, nil
		}
		from = 0
	}
	return Span{}, fmt.Errorf("%w: opened at line %d", ErrUnterminatedBlock, line+1)
}

// ScanUntil returns the span from start to the first line, start included,
// whose trimmed text satisfies end.
func ScanUntil(lines []string, start int, end EndFunc) (Span, error) {
	for j := start; j < len(lines); j++ {
		if end(strings.TrimSpace(lines[j])) {
			return Span{
				Start:    start,
				End:      j,
				OpenCol:  -1,
				CloseCol: -1,
				Text:     strings.Join(lines[start:j+1], "\n"),
			}, nil
		}
	}
	return Span{}, fmt.Errorf("%w: started at line %d", ErrUnterminatedBlock, start+1)
}

// inCode reports whether column col of line is outside string literals and
// comments, judging from the line alone.
func inCode(line string, col int) bool {
	lx := &lexer{}
	for i := 0; i < col && i < len(line); i++ {
		c := line[i]
		switch lx.state {
		case lexSingle, lexDouble, lexTemplate:
			if lx.escaped {
				lx.escaped = false
			} else if c == '\\' {
				lx.escaped = true
			} else if c == quoteFor(lx.state) {
				lx.state = lexCode
			}
			continue
		case lexBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				lx.state = lexCode
				i++
			}
			continue
		}
		switch c {
		case '\'':
			lx.state = lexSingle
		case '"':
			lx.state = lexDouble
		case '`':
			lx.state = lexTemplate
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return false
			}
			if i+1 < len(line) && line[i+1] == '*' {
				lx.state = lexBlockComment
				i++
			}
		}
	}
	return lx.state == lexCode
}

// codeText returns line with comments removed and the contents of string
// literals dropped, judging from the line alone. Quotes are kept.
func codeText(line string) string {
	var b strings.Builder
	state := lexCode
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case lexSingle, lexDouble, lexTemplate:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quoteFor(state):
				state = lexCode
				b.WriteByte(c)
			}
			continue
		case lexBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				state = lexCode
				i++
			}
			continue
		}
		switch c {
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return b.String()
			}
			if i+1 < len(line) && line[i+1] == '*' {
				state = lexBlockComment
				i++
				continue
			}
		case '\'':
			state = lexSingle
		case '"':
			state = lexDouble
		case '`':
			state = lexTemplate
		}
		b.WriteByte(c)
	}
	return b.String()
}
