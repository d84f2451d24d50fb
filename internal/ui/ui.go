package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sokinpui/suitefix/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	HunkColor    = color.New(color.FgCyan)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(os.Stderr, "  "+format+"\n", a...)
}

// --- Summaries ---

// PrintChanged writes each changed file on its own line to w. This is the
// machine-readable part of the report.
func PrintChanged(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
}

// PrintSummary writes the changed-file list to stdout and the statistics and
// error report to stderr.
func PrintSummary(summary model.Summary) {
	PrintChanged(os.Stdout, summary.Modified)

	Header("\n--- Rewrite Summary ---")
	if summary.Message != "" {
		Info(summary.Message)
	}
	Info("%s", StatsLine(summary))

	if len(summary.Modified) == 0 && len(summary.Failed) == 0 {
		Info("No files needed changes.")
	} else if len(summary.Modified) > 0 {
		verb := "Rewrote"
		if summary.DryRun {
			verb = "Would rewrite"
		}
		Success("%s %s file(s).", verb, humanize.Comma(int64(len(summary.Modified))))
	}
	if summary.Unterminated > 0 {
		Warning("Skipped %s unterminated call(s); see the log for locations.", humanize.Comma(int64(summary.Unterminated)))
	}
	if len(summary.Failed) > 0 {
		Error("Failed to process %d file(s):", len(summary.Failed))
		fmt.Fprintln(os.Stderr, ErrorTable(summary.Failed))
	}
}

// StatsLine renders the run counters on one line.
func StatsLine(summary model.Summary) string {
	parts := []string{
		fmt.Sprintf("scanned %s", humanize.Comma(int64(summary.Scanned))),
		fmt.Sprintf("calls rewritten %s", humanize.Comma(int64(summary.Rewritten))),
		fmt.Sprintf("inserted %s", humanize.Comma(int64(summary.Inserted))),
		fmt.Sprintf("duplicate lines removed %s", humanize.Comma(int64(summary.RemovedLines))),
	}
	line := strings.Join(parts, ", ")
	if summary.Elapsed > 0 {
		line += fmt.Sprintf(" in %s", summary.Elapsed.Round(time.Millisecond))
	}
	return line
}

// ErrorTable renders per-file errors as a borderless table.
func ErrorTable(errs []model.FileError) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"Path", "Kind", "Message"})
	for _, e := range errs {
		tbl.AppendRow(table.Row{e.Path, string(e.Kind), e.Message})
	}
	return tbl.Render()
}

// PrintHistorySummary reports the outcome of an undo or redo.
func PrintHistorySummary(title, verb string, done, failed []string) {
	Header("\n--- %s Summary ---", title)
	if len(done) == 0 && len(failed) == 0 {
		Info("Nothing to %s.", strings.ToLower(title))
		return
	}
	if len(done) > 0 {
		Success("Successfully %s %d file(s):", verb, len(done))
		for _, f := range done {
			fmt.Printf("  - %s\n", f)
		}
	}
	if len(failed) > 0 {
		Error("Failed to %s %d file(s) (changed since the run):", strings.ToLower(title), len(failed))
		for _, f := range failed {
			fmt.Printf("  - %s\n", f)
		}
	}
}

// PrintDiff writes a unified diff to stdout, colored when stdout is a terminal.
func PrintDiff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			HeaderColor.Print(line)
		case strings.HasPrefix(line, "@@"):
			HunkColor.Print(line)
		case strings.HasPrefix(line, "+"):
			AddedColor.Print(line)
		case strings.HasPrefix(line, "-"):
			RemovedColor.Print(line)
		default:
			fmt.Print(line)
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Increment() {
	p.Set(p.current + 1)
}

func (p *ProgressBar) Finish() {
	if p.total > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s", p.render())
}

func (p *ProgressBar) render() string {
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)
	return fmt.Sprintf("%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}
