package suitefix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/suitefix/cli"
	"github.com/sokinpui/suitefix/internal/config"
	"github.com/sokinpui/suitefix/internal/source"
	"github.com/sokinpui/suitefix/internal/state"
	"github.com/sokinpui/suitefix/model"
)

const entityTest = `import { describe } from '@jest/globals';
import { AutomationVariables } from '@domain/entities/automation-variables';

describe('AutomationVariables', () => {
  it('creates', () => {
    const v = AutomationVariables.create({ id: '1' });
    expect(v).toBeDefined();
  });
});
`

const entityTestFixed = `import { describe } from '@jest/globals';
import { AutomationVariables } from '@domain/entities/automation-variables';
import { IdGenerator } from '@domain/types/id-generator.types';

// Mock IdGenerator
const mockIdGenerator: IdGenerator = {
  generate: jest.fn(() => 'mock-id-123'),
};

describe('AutomationVariables', () => {
  it('creates', () => {
    const v = AutomationVariables.create({ id: '1' }, mockIdGenerator);
    expect(v).toBeDefined();
  });
});
`

const malformedTest = `const mockIdGenerator: IdGenerator = {
  generate: jest.fn(() => 'x'),

describe('x', () => {
  AutomationVariables.create({ id: '1' }, mockIdGenerator);
});
`

func newTestApp(t *testing.T, cfg *cli.Config, roots ...string) *App {
	t.Helper()
	rules, err := config.Load("", nil)
	require.NoError(t, err)
	if len(roots) > 0 {
		rules.Roots = roots
	}

	app, err := New(cfg, rules, nil)
	require.NoError(t, err)
	app.sourceProvider = source.NewFromReader(strings.NewReader(""))
	app.stateManager, err = state.NewAt(t.TempDir())
	require.NoError(t, err)
	return app
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExecuteRewritesAndUndoes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entity.test.ts", entityTest)

	app := newTestApp(t, &cli.Config{}, dir)
	var progress [][2]int
	app.SetProgressCallback(func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Len(t, summary.Modified, 1)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Rewritten)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, entityTestFixed, readFile(t, path))
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, progress)

	t.Run("second run changes nothing", func(t *testing.T) {
		again, err := newTestApp(t, &cli.Config{}, dir).Execute()
		require.NoError(t, err)
		assert.Empty(t, again.Modified)
		assert.Equal(t, entityTestFixed, readFile(t, path))
	})

	t.Run("undo restores the original", func(t *testing.T) {
		app.cfg = &cli.Config{Undo: true}
		undone, err := app.Execute()
		require.NoError(t, err)
		assert.Len(t, undone.Modified, 1)
		assert.Equal(t, entityTest, readFile(t, path))

		app.cfg = &cli.Config{Redo: true}
		redone, err := app.Execute()
		require.NoError(t, err)
		assert.Len(t, redone.Modified, 1)
		assert.Equal(t, entityTestFixed, readFile(t, path))
	})
}

func TestExecuteWritesEachFileBeforeTheNext(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.test.ts", entityTest)
	second := writeFile(t, dir, "b.test.ts", entityTest)

	app := newTestApp(t, &cli.Config{}, dir)
	var seen []string
	app.SetProgressCallback(func(current, total int) {
		if current == 1 {
			seen = append(seen, readFile(t, first), readFile(t, second))
		}
	})

	summary, err := app.Execute()
	require.NoError(t, err)
	assert.Len(t, summary.Modified, 2)
	assert.Equal(t, []string{entityTestFixed, entityTest}, seen)

	history, _ := app.stateManager.History()
	require.Len(t, history, 1, "one run entry covers every file")
	assert.Len(t, history[0].Operations, 2)

	app.cfg = &cli.Config{Undo: true}
	_, err = app.Execute()
	require.NoError(t, err)
	assert.Equal(t, entityTest, readFile(t, first))
	assert.Equal(t, entityTest, readFile(t, second))
}

func TestExecuteDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entity.test.ts", entityTest)

	summary, err := newTestApp(t, &cli.Config{DryRun: true, Paths: []string{path}}).Execute()
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Len(t, summary.Modified, 1)
	require.Len(t, summary.Diffs, 1)
	assert.Contains(t, summary.Diffs[0], "+    const v = AutomationVariables.create({ id: '1' }, mockIdGenerator);")
	assert.Equal(t, entityTest, readFile(t, path))
}

func TestExecuteReportsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.test.ts", entityTest)
	bad := writeFile(t, dir, "bad.test.ts", malformedTest)
	missing := filepath.Join(dir, "missing.test.ts")
	ignored := writeFile(t, dir, "helper.ts", entityTest)

	app := newTestApp(t, &cli.Config{Paths: []string{bad, missing, good, ignored}})
	summary, err := app.Execute()
	require.NoError(t, err)

	assert.Len(t, summary.Modified, 1)
	require.Len(t, summary.Failed, 2)
	kinds := map[model.ErrorKind]int{}
	for _, f := range summary.Failed {
		kinds[f.Kind]++
	}
	assert.Equal(t, map[model.ErrorKind]int{model.ErrorIO: 1, model.ErrorMalformedDeclaration: 1}, kinds)

	assert.Equal(t, malformedTest, readFile(t, bad))
	assert.Equal(t, entityTestFixed, readFile(t, good))
	assert.Equal(t, entityTest, readFile(t, ignored))
}

func TestExecuteNothingToDo(t *testing.T) {
	summary, err := newTestApp(t, &cli.Config{}, t.TempDir()).Execute()
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Message)
	assert.Empty(t, summary.Modified)
}

func TestUndoWithoutHistory(t *testing.T) {
	summary, err := newTestApp(t, &cli.Config{Undo: true}).Execute()
	require.NoError(t, err)
	assert.Equal(t, "No operation to undo.", summary.Message)
}

func TestRewriteLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entity.test.ts", entityTest)

	summary, err := Rewrite([]string{path, filepath.Join(dir, "gone.test.ts")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, summary.Modified)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, model.ErrorIO, summary.Failed[0].Kind)
	assert.Equal(t, entityTestFixed, readFile(t, path))
}
