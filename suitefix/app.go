// Package suitefix runs the rewrite engine over a set of test files and
// reports what changed.
package suitefix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/sokinpui/suitefix/cli"
	"github.com/sokinpui/suitefix/internal/config"
	"github.com/sokinpui/suitefix/internal/diffview"
	"github.com/sokinpui/suitefix/internal/fs"
	"github.com/sokinpui/suitefix/internal/nvim"
	"github.com/sokinpui/suitefix/internal/payload"
	"github.com/sokinpui/suitefix/internal/rewrite"
	"github.com/sokinpui/suitefix/internal/source"
	"github.com/sokinpui/suitefix/internal/state"
	"github.com/sokinpui/suitefix/internal/ui"
	"github.com/sokinpui/suitefix/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	rules            *config.Config
	engine           *rewrite.Engine
	logger           *zap.Logger
	stateManager     *state.Manager
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance. A nil logger discards diagnostics.
func New(cfg *cli.Config, rules *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:            cfg,
		rules:          rules,
		engine:         rewrite.New(compiled, logger),
		logger:         logger,
		pathResolver:   fs.NewPathResolver(nil),
		sourceProvider: source.New(),
	}, nil
}

func compileRules(rules *config.Config) (rewrite.Rules, error) {
	var templates payload.Templates
	if rules.Payloads != "" {
		t, err := payload.Load(rules.Payloads)
		if err != nil {
			return rewrite.Rules{}, err
		}
		templates = t
	}
	compiled, err := rules.Rules(templates)
	if err != nil {
		return rewrite.Rules{}, err
	}
	return compiled, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastRun()
	case a.cfg.Redo:
		return a.redoLastRun()
	default:
		return a.rewriteFiles()
	}
}

func (a *App) history() (*state.Manager, error) {
	if a.stateManager != nil {
		return a.stateManager, nil
	}
	m, err := state.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	a.stateManager = m
	return m, nil
}

func (a *App) report(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

// candidates returns the files to process and failures for explicitly listed
// files that do not exist.
func (a *App) candidates() ([]string, []model.FileError, error) {
	explicit := a.cfg.Paths
	if len(explicit) == 0 {
		paths, err := a.sourceProvider.GetPaths(a.cfg.Clipboard)
		if err != nil {
			return nil, nil, err
		}
		explicit = paths
	}

	if len(explicit) == 0 {
		files, err := fs.Discover(a.rules.Roots, a.rules.Suffixes, a.rules.SkipDirs)
		return files, nil, err
	}

	var files []string
	var failed []model.FileError
	seen := make(map[string]struct{})
	for _, p := range explicit {
		if !fs.HasSuffix(p, a.rules.Suffixes) {
			a.logger.Debug("skipping non-candidate", zap.String("path", p))
			continue
		}
		abs := a.pathResolver.ResolveExisting(p)
		if abs == "" {
			failed = append(failed, model.FileError{Path: p, Kind: model.ErrorIO, Message: "file not found"})
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}
	return files, failed, nil
}

// rewriteFiles processes every candidate sequentially. Per-file errors are
// collected and never stop the traversal.
func (a *App) rewriteFiles() (model.Summary, error) {
	start := time.Now()
	files, failed, err := a.candidates()
	if err != nil {
		return model.Summary{}, err
	}
	summary := model.Summary{Failed: failed, DryRun: a.cfg.DryRun, Scanned: len(files)}
	if len(files) == 0 && len(failed) == 0 {
		summary.Message = "No candidate files found. Nothing to do."
		return summary, nil
	}

	total := len(files)
	a.report(0, total)

	// Dry runs and Neovim buffers are handled once every file is processed;
	// otherwise each file is written before the next one is read.
	batch := a.cfg.DryRun || a.cfg.Nvim
	var changes []model.FileChange
	var run runHistory
	for i, path := range files {
		change, res, err := a.processFile(path)
		if err != nil {
			a.logger.Warn("file skipped", zap.String("path", path), zap.Error(err))
			summary.Failed = append(summary.Failed, classify(path, err))
		} else {
			summary.Rewritten += res.Rewritten
			summary.Inserted += len(res.Inserted)
			summary.RemovedLines += res.Removed
			summary.Unterminated += res.Unterminated
			switch {
			case !res.Changed:
			case batch:
				changes = append(changes, change)
			default:
				a.writeChange(change, &summary, &run)
			}
		}
		a.report(i+1, total)
	}

	switch {
	case a.cfg.DryRun:
		for _, c := range changes {
			summary.Modified = append(summary.Modified, c.Path)
			summary.Diffs = append(summary.Diffs, diffview.Unified(a.relative(c.Path), c.Before, c.Content))
		}
		summary.Message = "Dry run: no files were written."
	case a.cfg.Nvim:
		if err := a.applyInNvim(changes, &summary); err != nil {
			return model.Summary{}, err
		}
	}

	summary.Elapsed = time.Since(start)
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func (a *App) processFile(path string) (model.FileChange, rewrite.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FileChange{}, rewrite.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	res, err := a.engine.Process(path, string(data))
	if err != nil {
		return model.FileChange{}, rewrite.Result{}, err
	}
	return model.FileChange{Path: path, Before: string(data), Content: res.Content}, res, nil
}

// writeChange saves one rewritten file and adds it to the run's history.
func (a *App) writeChange(c model.FileChange, summary *model.Summary, run *runHistory) {
	if err := fs.WriteFileAtomic(c.Path, []byte(c.Content)); err != nil {
		summary.Failed = append(summary.Failed, classify(c.Path, err))
		return
	}
	summary.Modified = append(summary.Modified, c.Path)
	a.recordHistory(run, []model.FileChange{c})
}

// applyInNvim pushes changes into Neovim buffers, saving them unless the
// buffer-only mode is set.
func (a *App) applyInNvim(changes []model.FileChange, summary *model.Summary) error {
	if len(changes) == 0 {
		return nil
	}
	session, err := nvim.Connect()
	if err != nil {
		return err
	}
	defer session.Close()

	byPath := make(map[string]model.FileChange, len(changes))
	for _, c := range changes {
		byPath[c.Path] = c
	}

	updated, failed := session.ApplyChanges(changes, nil)
	for _, p := range failed {
		summary.Failed = append(summary.Failed, model.FileError{Path: p, Kind: model.ErrorIO, Message: "failed to update nvim buffer"})
	}
	summary.Modified = append(summary.Modified, updated...)

	if a.cfg.Buffer {
		summary.Message = "Buffers updated in Neovim; not saved."
		return nil
	}
	if err := session.SaveAll(); err != nil {
		return err
	}
	saved := make([]model.FileChange, 0, len(updated))
	for _, p := range updated {
		saved = append(saved, byPath[p])
	}
	a.recordHistory(&runHistory{}, saved)
	return nil
}

// runHistory tracks the history entry of the current run. The entry is
// opened by the first saved file and extended by the following ones.
type runHistory struct {
	id     string
	broken bool
}

func (a *App) recordHistory(run *runHistory, changes []model.FileChange) {
	if len(changes) == 0 || run.broken {
		return
	}
	if err := a.appendHistory(run, changes); err != nil {
		run.broken = true
		ui.Warning("Could not record history; --undo will not cover this run: %v", err)
	}
}

func (a *App) appendHistory(run *runHistory, changes []model.FileChange) error {
	m, err := a.history()
	if err != nil {
		return err
	}
	ops, err := m.CreateOperations(changes)
	if err != nil {
		return err
	}
	if run.id != "" {
		return m.Append(run.id, ops)
	}
	id, err := m.Write(ops)
	if err != nil {
		return err
	}
	run.id = id
	a.logger.Debug("recorded run", zap.String("run_id", id))
	return nil
}

// undoLastRun restores the files of the last recorded run.
func (a *App) undoLastRun() (model.Summary, error) {
	m, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := m.GetOperationsToUndo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}

	total := len(ops)
	a.report(0, total)
	undone, failed := m.Undo(ops, func(current int) { a.report(current, total) })

	summary := model.Summary{
		Modified: undone,
		Failed:   conflicts(failed),
		Message:  "Undid last run.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// redoLastRun re-applies the last undone run.
func (a *App) redoLastRun() (model.Summary, error) {
	m, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	ops, err := m.GetOperationsToRedo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}

	total := len(ops)
	a.report(0, total)
	redone, failed := m.Redo(ops, func(current int) { a.report(current, total) })

	summary := model.Summary{
		Modified: redone,
		Failed:   conflicts(failed),
		Message:  "Redid last undone run.",
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func conflicts(paths []string) []model.FileError {
	var errs []model.FileError
	for _, p := range paths {
		errs = append(errs, model.FileError{Path: p, Kind: model.ErrorConflict, Message: "file changed since the run"})
	}
	return errs
}

// classify maps a per-file error onto the report taxonomy.
func classify(path string, err error) model.FileError {
	kind := model.ErrorIO
	if errors.Is(err, rewrite.ErrMalformedDeclaration) {
		kind = model.ErrorMalformedDeclaration
	}
	return model.FileError{Path: path, Kind: kind, Message: err.Error()}
}

func (a *App) relative(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	for i, p := range summary.Modified {
		summary.Modified[i] = a.relative(p)
	}
	for i := range summary.Failed {
		summary.Failed[i].Path = a.relative(summary.Failed[i].Path)
	}
}
