// Package nvim loads rewritten test files into Neovim buffers, so a running
// editor sees the new content without reloading from disk.
package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/sokinpui/suitefix/model"
)

const socketTimeout = time.Second

// Session is a connection to an editor instance. Headless instances started
// by Connect are stopped by Close.
type Session struct {
	client *nvim.Nvim
	child  *exec.Cmd
	tmpDir string
}

// Connect attaches to the instance at $NVIM_LISTEN_ADDRESS. When the
// variable is unset or unreachable a headless instance is started instead.
func Connect() (*Session, error) {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		if client, err := nvim.Dial(addr); err == nil {
			return &Session{client: client}, nil
		}
	}
	return startHeadless()
}

func startHeadless() (*Session, error) {
	tmpDir, err := os.MkdirTemp("", "suitefix-nvim-")
	if err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	socket := filepath.Join(tmpDir, "nvim.sock")

	child := exec.Command("nvim", "--headless", "--clean", "--listen", socket)
	if err := child.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("start headless nvim (is it on PATH?): %w", err)
	}
	waitForSocket(socket, socketTimeout)

	client, err := nvim.Dial(socket)
	if err != nil {
		child.Process.Kill()
		child.Wait()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("connect to headless nvim: %w", err)
	}

	s := &Session{client: client, child: child, tmpDir: tmpDir}
	// Swap files are never read back in a throwaway instance.
	_ = client.Command("set noswapfile")
	return s, nil
}

// waitForSocket reports whether path appeared within timeout.
func waitForSocket(path string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// Close drops the connection and stops a headless instance.
func (s *Session) Close() {
	if s.client != nil {
		s.client.Close()
	}
	if s.child == nil || s.child.Process == nil {
		return
	}
	if err := s.child.Process.Kill(); err == nil {
		s.child.Wait()
	}
	os.RemoveAll(s.tmpDir)
}

// ApplyChanges replaces the buffer of every changed file with its rewritten
// content. onDone, when set, receives the number of files handled so far.
func (s *Session) ApplyChanges(changes []model.FileChange, onDone func(int)) (updated, failed []string) {
	for i, c := range changes {
		if err := s.load(c); err != nil {
			failed = append(failed, c.Path)
		} else {
			updated = append(updated, c.Path)
		}
		if onDone != nil {
			onDone(i + 1)
		}
	}
	return updated, failed
}

func (s *Session) load(c model.FileChange) error {
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	b := s.client.NewBatch()
	b.Command("edit " + escapePath(abs))
	b.SetBufferLines(0, 0, -1, true, BufferLines(c.Content))
	return b.Execute()
}

// SaveAll writes every modified buffer.
func (s *Session) SaveAll() error {
	if err := s.client.Command("wa!"); err != nil {
		return fmt.Errorf("save nvim buffers: %w", err)
	}
	return nil
}

// BufferLines splits file content into buffer lines. The final newline and
// the dos/unix file format are buffer options in Neovim, so neither is part
// of the lines.
func BufferLines(content string) [][]byte {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(strings.TrimSuffix(l, "\r"))
	}
	return out
}

// escapePath quotes the characters :edit treats specially.
func escapePath(path string) string {
	return strings.NewReplacer(" ", `\ `, "%", `\%`, "#", `\#`).Replace(path)
}
