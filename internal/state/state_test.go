package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/suitefix/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUndoRedo(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.test.ts")
	writeFile(t, target, "after\n")

	m, err := NewAt(dir)
	require.NoError(t, err)

	ops, err := m.CreateOperations([]model.FileChange{{Path: target, Before: "before\n", Content: "after\n"}})
	require.NoError(t, err)
	id, err := m.Write(ops)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	// A fresh manager sees the persisted history.
	m, err = NewAt(dir)
	require.NoError(t, err)
	history, index := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, 0, index)
	assert.Equal(t, id, history[0].ID)

	undoOps, err := m.GetOperationsToUndo()
	require.NoError(t, err)
	undone, failed := m.Undo(undoOps, nil)
	assert.Equal(t, []string{target}, undone)
	assert.Empty(t, failed)
	assert.Equal(t, "before\n", readFile(t, target))

	nothing, err := m.GetOperationsToUndo()
	require.NoError(t, err)
	assert.Nil(t, nothing)

	redoOps, err := m.GetOperationsToRedo()
	require.NoError(t, err)
	redone, failed := m.Redo(redoOps, nil)
	assert.Equal(t, []string{target}, redone)
	assert.Empty(t, failed)
	assert.Equal(t, "after\n", readFile(t, target))
}

func TestUndoRefusesEditedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.test.ts")
	writeFile(t, target, "after\n")

	m, err := NewAt(dir)
	require.NoError(t, err)
	ops, err := m.CreateOperations([]model.FileChange{{Path: target, Before: "before\n", Content: "after\n"}})
	require.NoError(t, err)
	_, err = m.Write(ops)
	require.NoError(t, err)

	writeFile(t, target, "edited by hand\n")

	undoOps, err := m.GetOperationsToUndo()
	require.NoError(t, err)
	var progress []int
	undone, failed := m.Undo(undoOps, func(n int) { progress = append(progress, n) })
	assert.Empty(t, undone)
	assert.Equal(t, []string{target}, failed)
	assert.Equal(t, []int{1}, progress)
	assert.Equal(t, "edited by hand\n", readFile(t, target))
}

func TestWriteDiscardsUndoneRuns(t *testing.T) {
	m, err := NewAt(t.TempDir())
	require.NoError(t, err)

	_, err = m.Write([]Operation{{Path: "one", BeforeHash: "a", AfterHash: "b"}})
	require.NoError(t, err)
	_, err = m.GetOperationsToUndo()
	require.NoError(t, err)
	_, err = m.Write([]Operation{{Path: "two", BeforeHash: "c", AfterHash: "d"}})
	require.NoError(t, err)

	history, index := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, 0, index)
	assert.Equal(t, "two", history[0].Operations[0].Path)

	ops, err := m.GetOperationsToRedo()
	require.NoError(t, err)
	assert.Nil(t, ops)
}

func TestLoadRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, stateDirName), 0755))
	writeFile(t, filepath.Join(dir, stateDirName, stateFileName), "zero\n")

	_, err := NewAt(dir)
	assert.Error(t, err)
}

func TestAppendExtendsCurrentRun(t *testing.T) {
	dir := t.TempDir()
	m, err := NewAt(dir)
	require.NoError(t, err)

	id, err := m.Write([]Operation{{Path: "one", BeforeHash: "a", AfterHash: "b"}})
	require.NoError(t, err)
	require.NoError(t, m.Append(id, []Operation{{Path: "two", BeforeHash: "c", AfterHash: "d"}}))
	assert.Error(t, m.Append("other-run", nil))

	m, err = NewAt(dir)
	require.NoError(t, err)
	history, index := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, 0, index)
	assert.Equal(t, []Operation{
		{Path: "one", BeforeHash: "a", AfterHash: "b"},
		{Path: "two", BeforeHash: "c", AfterHash: "d"},
	}, history[0].Operations)
}
