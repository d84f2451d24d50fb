package rewrite

// InsertBeforeClose inserts marker immediately before the closing delimiter
// of span. Only the span's last line changes and the line count is kept.
func InsertBeforeClose(lines []string, span Span, marker string) {
	line := lines[span.End]
	lines[span.End] = line[:span.CloseCol] + marker + line[span.CloseCol:]
}

// WrapArguments wraps the argument list of span in a call to wrapper, e.g.
// "(true)" becomes "(Result.success(true))".
func WrapArguments(lines []string, span Span, wrapper string) {
	// The closer goes first so OpenCol stays valid when both share a line.
	InsertBeforeClose(lines, span, ")")
	line := lines[span.Start]
	lines[span.Start] = line[:span.OpenCol+1] + wrapper + "(" + line[span.OpenCol+1:]
}
