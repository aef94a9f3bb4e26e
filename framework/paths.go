package framework

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveInRepo turns a model-supplied relative path into an absolute path
// under root. Absolute paths and anything that escapes root are rejected.
func ResolveInRepo(root, file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathOutsideRepo)
	}
	if filepath.IsAbs(file) || strings.HasPrefix(file, "/") || strings.HasPrefix(file, `\`) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, file)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	target := filepath.Clean(filepath.Join(absRoot, file))
	if !Within(absRoot, target) || !Within(absRoot, existingAncestor(target)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, file)
	}
	return target, nil
}

// existingAncestor resolves symlinks on the deepest part of path that
// already exists, so a link inside the repository cannot point writes
// elsewhere.
func existingAncestor(path string) string {
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			rest, _ := filepath.Rel(current, path)
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		current = parent
	}
}

// Within reports whether target is root or lies beneath it.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// RelativeTo returns target relative to root using forward slashes.
func RelativeTo(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
