package rewrite

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// callStats counts what a call rule did to one file.
type callStats struct {
	rewritten    int
	applied      int
	empty        int
	unterminated int
}

// findStart returns the column and pattern of the first start pattern found
// in line at or after from that sits in code and on an identifier boundary.
func findStart(line string, from int, starts []string) (int, string) {
	bestCol, bestPat := -1, ""
	for _, pat := range starts {
		for off := from; off < len(line); {
			idx := strings.Index(line[off:], pat)
			if idx < 0 {
				break
			}
			col := off + idx
			if onBoundary(line, col, pat) && inCode(line, col) {
				if bestCol < 0 || col < bestCol {
					bestCol, bestPat = col, pat
				}
				break
			}
			off = col + 1
		}
	}
	return bestCol, bestPat
}

func onBoundary(line string, col int, pat string) bool {
	if col == 0 || !isIdentByte(pat[0]) {
		return true
	}
	return !isIdentByte(line[col-1])
}

func commentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/*")
}

// rewriteCalls applies rule to every matching call in lines, in place.
func (e *Engine) rewriteCalls(path string, lines []string, rule Call) callStats {
	var stats callStats

	for i := 0; i < len(lines); i++ {
		if commentLine(lines[i]) {
			continue
		}
		for from := 0; ; {
			col, pat := findStart(lines[i], from, rule.Starts)
			if col < 0 {
				break
			}
			open := col + len(pat) - 1
			from = open + 1

			span, err := ScanBalanced(lines, i, open)
			if err != nil {
				if errors.Is(err, ErrUnterminatedBlock) {
					stats.unterminated++
					e.logger.Warn("skipping unterminated call",
						zap.String("path", path), zap.String("rule", rule.Name), zap.Int("line", i+1))
				}
				continue
			}

			switch {
			case strings.TrimSpace(span.TopLevel) == "":
				stats.empty++
			case AlreadyApplied(span.TopLevel, rule.Marker):
				stats.applied++
			case rule.Action == ActionWrap:
				WrapArguments(lines, span, rule.Wrapper)
				from += len(rule.Wrapper) + 1
				stats.rewritten++
			default:
				InsertBeforeClose(lines, span, rule.Marker)
				stats.rewritten++
			}
		}
	}
	return stats
}
