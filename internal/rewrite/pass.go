// Package rewrite implements the structural rewrite engine: balanced-block
// scanning, idempotent call rewriting, import and declaration insertion, and
// duplicate declaration removal over the lines of one source file.
package rewrite

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/suitefix/internal/fs"
)

// Result describes one processed file.
type Result struct {
	Path    string
	Content string
	Changed bool

	Rewritten    int
	Applied      int
	Unterminated int
	Inserted     []string
	Removed      int
}

// Engine applies a rule set to file contents.
type Engine struct {
	rules  Rules
	logger *zap.Logger
}

// New creates an Engine. A nil logger discards diagnostics.
func New(rules Rules, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: rules, logger: logger}
}

// Process runs one pass over content: missing imports and declarations are
// inserted, calls are rewritten, then duplicate declarations are removed.
// path is used for diagnostics only.
func (e *Engine) Process(path, content string) (Result, error) {
	// Lines keep their own carriage return so mixed endings survive untouched.
	lines := strings.Split(content, "\n")
	res := Result{Path: path}

	for _, rule := range e.rules.Imports {
		if !rule.applies(content) {
			continue
		}
		var added bool
		if lines, added = EnsureImport(lines, rule, e.rules.SuiteEntries); added {
			res.Inserted = append(res.Inserted, rule.Name)
		}
	}
	for _, rule := range e.rules.Declarations {
		if !rule.applies(content) {
			continue
		}
		var added bool
		if lines, added = EnsureDeclaration(lines, rule, e.rules.SuiteEntries); added {
			res.Inserted = append(res.Inserted, rule.Name)
		}
	}

	for _, rule := range e.rules.Calls {
		stats := e.rewriteCalls(path, lines, rule)
		res.Rewritten += stats.rewritten
		res.Applied += stats.applied
		res.Unterminated += stats.unterminated
	}

	lines, removed, err := Dedupe(lines, e.rules.dedupeRules(), Records{})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	res.Removed = removed

	out := strings.Join(lines, "\n")
	res.Content = out
	res.Changed = out != content

	e.logger.Debug("processed file",
		zap.String("path", path),
		zap.Bool("changed", res.Changed),
		zap.Int("rewritten", res.Rewritten),
		zap.Int("already_applied", res.Applied),
		zap.Strings("inserted", res.Inserted),
		zap.Int("removed_lines", res.Removed))
	return res, nil
}

// RunFile reads path once, processes it, and writes it back only when the
// content changed.
func (e *Engine) RunFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	res, err := e.Process(path, string(data))
	if err != nil {
		return Result{}, err
	}
	if !res.Changed {
		return res, nil
	}
	if err := fs.WriteFileAtomic(path, []byte(res.Content)); err != nil {
		return Result{}, err
	}
	return res, nil
}
