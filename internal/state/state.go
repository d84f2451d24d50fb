package state

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokinpui/suitefix/internal/fs"
	"github.com/sokinpui/suitefix/model"
)

const (
	stateDirName  = ".suitefix"
	stateFileName = "state.suitefix"
	ObjectsDir    = "objects"
)

// Operation records one rewritten file: the content hashes before and after
// the run. Both contents are kept under the objects directory.
type Operation struct {
	Path       string
	BeforeHash string
	AfterHash  string
}

// HistoryEntry represents one complete saving run of the tool.
type HistoryEntry struct {
	ID         string
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the enclosing git
// repository, or the working directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager keeping its files in
// rootDir/.suitefix.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, ObjectsDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}

	var history []HistoryEntry
	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		head := strings.Fields(lines[0])
		if len(head) != 2 {
			return fmt.Errorf("invalid state file: bad entry header %q", lines[0])
		}
		ts, err := strconv.ParseInt(head[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", head[1], err)
		}
		entry := HistoryEntry{ID: head[0], Timestamp: ts}

		opLines := lines[1:]
		if len(opLines)%3 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record in run %s", entry.ID)
		}
		for i := 0; i < len(opLines); i += 3 {
			entry.Operations = append(entry.Operations, Operation{
				Path:       opLines[i],
				BeforeHash: opLines[i+1],
				AfterHash:  opLines[i+2],
			})
		}
		history = append(history, entry)
	}

	if index < -1 || index >= len(history) {
		return fmt.Errorf("invalid state file: index %d out of range", index)
	}
	m.state = &State{CurrentIndex: index, History: history}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %d", entry.ID, entry.Timestamp)
		for _, op := range entry.Operations {
			fmt.Fprintf(&b, "\n%s\n%s\n%s", op.Path, op.BeforeHash, op.AfterHash)
		}
		blocks = append(blocks, b.String())
	}

	content := strings.Join(blocks, "\n\n") + "\n"
	if err := fs.WriteFileAtomic(m.statePath, []byte(content)); err != nil {
		return fmt.Errorf("could not save state file: %w", err)
	}
	return nil
}

// History returns the recorded runs and the index of the current one.
func (m *Manager) History() ([]HistoryEntry, int) {
	return m.state.History, m.state.CurrentIndex
}

// CreateOperations stores the before and after content of every change and
// returns the matching operations sorted by path.
func (m *Manager) CreateOperations(changes []model.FileChange) ([]Operation, error) {
	ops := make([]Operation, 0, len(changes))
	for _, c := range changes {
		before, err := m.storeObject(c.Before)
		if err != nil {
			return nil, err
		}
		after, err := m.storeObject(c.Content)
		if err != nil {
			return nil, err
		}
		ops = append(ops, Operation{Path: c.Path, BeforeHash: before, AfterHash: after})
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Path < ops[j].Path
	})
	return ops, nil
}

func (m *Manager) storeObject(content string) (string, error) {
	hash := fs.HashBytes([]byte(content))
	path := m.objectPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fs.WriteFileAtomic(path, []byte(content)); err != nil {
		return "", fmt.Errorf("could not store backup: %w", err)
	}
	return hash, nil
}

func (m *Manager) objectPath(hash string) string {
	return filepath.Join(m.StateDir, ObjectsDir, hash)
}

// Write adds a new run to the history, discarding any undone runs after the
// current one, and returns the run ID.
func (m *Manager) Write(operations []Operation) (string, error) {
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}

	entry := HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC().Unix(),
		Operations: operations,
	}
	m.state.History = append(m.state.History, entry)
	m.state.CurrentIndex++
	if err := m.save(); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Append adds operations to the run id, which must be the current one.
func (m *Manager) Append(id string, operations []Operation) error {
	i := m.state.CurrentIndex
	if i < 0 || m.state.History[i].ID != id {
		return fmt.Errorf("run %s is not the current run", id)
	}
	m.state.History[i].Operations = append(m.state.History[i].Operations, operations...)
	return m.save()
}

// GetOperationsToUndo gets the last operations and moves the history pointer.
func (m *Manager) GetOperationsToUndo() ([]Operation, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	return ops, m.save()
}

// GetOperationsToRedo gets the next operations and moves the history pointer.
func (m *Manager) GetOperationsToRedo() ([]Operation, error) {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = nextIndex
	ops := m.state.History[m.state.CurrentIndex].Operations
	return ops, m.save()
}

// Undo restores the before content of each operation whose file still holds
// the after content.
func (m *Manager) Undo(ops []Operation, progressCb func(int)) (undone, failed []string) {
	return m.restore(ops, func(op Operation) (string, string) { return op.AfterHash, op.BeforeHash }, progressCb)
}

// Redo re-applies the after content of each operation whose file still holds
// the before content.
func (m *Manager) Redo(ops []Operation, progressCb func(int)) (redone, failed []string) {
	return m.restore(ops, func(op Operation) (string, string) { return op.BeforeHash, op.AfterHash }, progressCb)
}

func (m *Manager) restore(ops []Operation, hashes func(Operation) (expect, target string), progressCb func(int)) (succeeded, failed []string) {
	for i, op := range ops {
		expect, target := hashes(op)
		if m.restoreFile(op.Path, expect, target) {
			succeeded = append(succeeded, op.Path)
		} else {
			failed = append(failed, op.Path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

func (m *Manager) restoreFile(path, expect, target string) bool {
	// The file must not have been edited since the run.
	currentHash, err := fs.GetFileSHA256(path)
	if err != nil || currentHash != expect {
		return false
	}
	content, err := os.ReadFile(m.objectPath(target))
	if err != nil {
		return false
	}
	return fs.WriteFileAtomic(path, content) == nil
}
