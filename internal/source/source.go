package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"

	"github.com/sokinpui/suitefix/internal/ui"
)

// SourceProvider retrieves an explicit list of candidate files.
type SourceProvider struct {
	stdin         io.Reader
	stdinIsPiped  func() bool
	readClipboard func() (string, error)
}

// New creates a new SourceProvider reading from the process stdin and the
// system clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin: os.Stdin,
		stdinIsPiped: func() bool {
			fd := os.Stdin.Fd()
			return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
		},
		readClipboard: clipboard.ReadAll,
	}
}

// NewFromReader creates a SourceProvider that reads its list from r as if it
// were piped stdin.
func NewFromReader(r io.Reader) *SourceProvider {
	return &SourceProvider{
		stdin:         r,
		stdinIsPiped:  func() bool { return true },
		readClipboard: clipboard.ReadAll,
	}
}

// GetPaths returns newline-separated paths from the clipboard when
// useClipboard is set, otherwise from stdin if it is piped. A nil result
// means no explicit list was given and the configured roots should be walked.
func (sp *SourceProvider) GetPaths(useClipboard bool) ([]string, error) {
	if useClipboard {
		ui.Header("--- Reading file list from clipboard ---")
		content, err := sp.readClipboard()
		if err != nil {
			return nil, fmt.Errorf("failed to read from clipboard: %w", err)
		}
		paths := ParseList(content)
		if len(paths) == 0 {
			ui.Warning("Clipboard holds no paths. Walking the configured roots.")
		}
		return paths, nil
	}

	if !sp.stdinIsPiped() {
		return nil, nil
	}
	content, err := io.ReadAll(sp.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	paths := ParseList(string(content))
	if len(paths) > 0 {
		ui.Header("--- Reading file list from stdin ---")
	}
	return paths, nil
}

// ParseList splits content into trimmed, non-empty, unique lines.
func ParseList(content string) []string {
	var paths []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		paths = append(paths, line)
	}
	return paths
}
