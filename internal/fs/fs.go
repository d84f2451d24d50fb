package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sokinpui/suitefix/internal/ui"
)

// PathResolver finds absolute paths for candidate files.
type PathResolver struct {
	lookupDirs []string
}

// NewPathResolver creates a new PathResolver.
func NewPathResolver(lookupDirs []string) *PathResolver {
	if len(lookupDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			// This is unlikely to fail, but if it does, it's a critical error.
			panic(fmt.Sprintf("could not get current working directory: %v", err))
		}
		return &PathResolver{lookupDirs: []string{wd}}
	}

	absDirs := make([]string, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			ui.Warning("Invalid lookup directory '%s', ignoring: %v", dir, err)
			continue
		}
		absDirs = append(absDirs, abs)
	}
	return &PathResolver{lookupDirs: absDirs}
}

// ResolveExisting finds an absolute path only if the file exists.
func (r *PathResolver) ResolveExisting(path string) string {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	for _, dir := range r.lookupDirs {
		absPath := filepath.Join(dir, path)
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}
	return ""
}

// HasSuffix reports whether the file name ends with one of suffixes. An
// empty list matches everything.
func HasSuffix(path string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, s := range suffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	return false
}

// Discover walks roots and returns the sorted absolute paths of files whose
// names end with one of suffixes. Directories named in skipDirs are pruned
// and missing roots are skipped with a warning.
func Discover(roots, suffixes, skipDirs []string) ([]string, error) {
	skip := make(map[string]struct{}, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = struct{}{}
	}

	seen := make(map[string]struct{})
	var files []string
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		if _, err := os.Stat(absRoot); os.IsNotExist(err) {
			ui.Warning("Root '%s' does not exist, skipping.", root)
			continue
		}
		err = filepath.WalkDir(absRoot, func(path string, d iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if _, ok := skip[d.Name()]; ok && path != absRoot {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !HasSuffix(path, suffixes) {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", absRoot, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// WriteFileAtomic replaces path with data by writing a temporary file in the
// same directory and renaming it over the original. The original file mode
// is kept.
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".suitefix-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// GetFileSHA256 returns the hex-encoded SHA-256 of the file at path.
func GetFileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes returns the hex-encoded SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
