package suitefix

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/suitefix/internal/config"
	"github.com/sokinpui/suitefix/internal/rewrite"
	"github.com/sokinpui/suitefix/model"
)

// Options for using suitefix as a library.
type Options struct {
	// RulesFile is a YAML rule file; empty uses ./.suitefix.yaml when present
	// and the built-in rules otherwise.
	RulesFile string
	// Logger receives per-file diagnostics. Nil discards them.
	Logger *zap.Logger
}

// Rewrite runs one pass over each path, writing files whose content changed.
// No history is recorded. Per-file failures are reported in the summary.
func Rewrite(paths []string, opts Options) (model.Summary, error) {
	rules, err := config.Load(opts.RulesFile, nil)
	if err != nil {
		return model.Summary{}, err
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to compile rules: %w", err)
	}
	engine := rewrite.New(compiled, opts.Logger)

	summary := model.Summary{Scanned: len(paths)}
	for _, path := range paths {
		res, err := engine.RunFile(path)
		if err != nil {
			summary.Failed = append(summary.Failed, classify(path, err))
			continue
		}
		summary.Rewritten += res.Rewritten
		summary.Inserted += len(res.Inserted)
		summary.RemovedLines += res.Removed
		summary.Unterminated += res.Unterminated
		if res.Changed {
			summary.Modified = append(summary.Modified, path)
		}
	}
	return summary, nil
}
