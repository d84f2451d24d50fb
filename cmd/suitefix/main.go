package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/sokinpui/suitefix/cli"
	"github.com/sokinpui/suitefix/internal/config"
	"github.com/sokinpui/suitefix/internal/logging"
	"github.com/sokinpui/suitefix/internal/tui"
	"github.com/sokinpui/suitefix/internal/ui"
	"github.com/sokinpui/suitefix/model"
	"github.com/sokinpui/suitefix/suitefix"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, flags, err := cli.ParseArgs(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	rules, err := config.Load(cfg.ConfigPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.DumpConfig {
		out, err := rules.YAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		os.Stdout.Write(out)
		return 0
	}

	logger, err := logging.New(rules.Logging.Level, cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	app, err := suitefix.New(cfg, rules, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}

	var summary model.Summary
	if cfg.NoAnimation || !isatty.IsTerminal(os.Stdout.Fd()) {
		summary, err = runPlain(app, cfg)
	} else {
		summary, err = runTUI(app)
	}
	if err != nil {
		var detailed *suitefix.DetailedError
		if errors.As(err, &detailed) && (cfg.NoAnimation || !isatty.IsTerminal(os.Stdout.Fd())) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, d := range summary.Diffs {
		ui.PrintDiff(d)
	}
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

// runPlain prints a progress bar and the report without a TUI.
func runPlain(app *suitefix.App, cfg *cli.Config) (model.Summary, error) {
	var bar *ui.ProgressBar
	app.SetProgressCallback(func(current, total int) {
		if bar == nil {
			bar = ui.NewProgressBar(total, "Rewriting")
			bar.Start()
			return
		}
		bar.Set(current)
	})

	summary, err := app.Execute()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return model.Summary{}, err
	}

	switch {
	case cfg.Undo, cfg.Redo:
		title, verb := "Undo", "undid"
		if cfg.Redo {
			title, verb = "Redo", "redid"
		}
		failed := make([]string, len(summary.Failed))
		for i, f := range summary.Failed {
			failed[i] = f.Path
		}
		if len(summary.Modified) == 0 && len(failed) == 0 {
			ui.Info(summary.Message)
			break
		}
		ui.PrintHistorySummary(title, verb, summary.Modified, failed)
	case summary.Scanned == 0 && len(summary.Failed) == 0:
		ui.Info(summary.Message)
	default:
		ui.PrintSummary(summary)
	}
	return summary, nil
}

func runTUI(app *suitefix.App) (model.Summary, error) {
	m := tui.New(app)
	p := tea.NewProgram(m)
	m.SetProgram(p)
	final, err := p.Run()
	if err != nil {
		return model.Summary{}, fmt.Errorf("error running program: %w", err)
	}
	done := final.(tui.Model)
	if done.Err() != nil {
		return model.Summary{}, done.Err()
	}
	return done.Summary(), nil
}
