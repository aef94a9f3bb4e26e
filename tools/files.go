package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lexcodex/gitagent/framework"
)

var errBinaryFile = errors.New("binary file detected")

// Workspace performs file edits inside one repository. Every path it accepts
// is repository-relative and goes through framework.ResolveInRepo.
type Workspace struct {
	Root string
	lock FileLock
}

// NewWorkspace roots a workspace at the absolute form of root.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return &Workspace{Root: abs}, nil
}

// Resolve maps a repository-relative path to its absolute location.
func (w *Workspace) Resolve(file string) (string, error) {
	return framework.ResolveInRepo(w.Root, file)
}

// Read returns the file content and whether the file exists.
func (w *Workspace) Read(file string) (string, bool, error) {
	path, err := w.Resolve(file)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	if !IsText(data) {
		return "", true, fmt.Errorf("%s: %w", file, errBinaryFile)
	}
	return string(data), true, nil
}

// Exists reports whether file is present as a regular file.
func (w *Workspace) Exists(file string) bool {
	path, err := w.Resolve(file)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Write replaces file with content, creating parent directories.
func (w *Workspace) Write(file, content string) error {
	path, err := w.Resolve(file)
	if err != nil {
		return err
	}
	return w.lock.Run(func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(content), 0o644)
	})
}

// AppendContent returns existing with code added after a blank line.
func AppendContent(existing, code string) string {
	if existing == "" {
		return code
	}
	return existing + "\n\n" + code
}

// Remove deletes file. A file that is already gone is not an error.
func (w *Workspace) Remove(file string) error {
	path, err := w.Resolve(file)
	if err != nil {
		return err
	}
	return w.lock.Run(func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

// ReplaceLines swaps the 1-based inclusive line span [start, end] of content
// for replacement.
func ReplaceLines(content string, start, end int, replacement string) (string, error) {
	lines := strings.Split(content, "\n")
	if start < 1 || end < start || end > len(lines) {
		return "", fmt.Errorf("line span %d-%d out of range (file has %d lines)", start, end, len(lines))
	}
	replaced := strings.Split(strings.TrimRight(replacement, "\n"), "\n")
	out := make([]string, 0, len(lines)-(end-start+1)+len(replaced))
	out = append(out, lines[:start-1]...)
	out = append(out, replaced...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n"), nil
}

// WalkFiles visits every regular file under root in lexical order, passing
// its slash-separated relative path. Hidden directories and any directory
// for which skipDir returns true are not entered.
func WalkFiles(root string, skipDir func(path string) bool, fn func(rel string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || (skipDir != nil && skipDir(path)) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(framework.RelativeTo(root, path))
	})
}

// IsText treats any content without NUL bytes as text.
func IsText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

// ProbeWritable checks dir by creating and removing a scratch file.
func ProbeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".gitagent-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", framework.ErrTargetNotWritable, dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FileLock protects operations that cannot race (write/delete).
type FileLock struct {
	mu sync.Mutex
}

func (l *FileLock) Run(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}
