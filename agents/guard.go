package agents

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/tools"
)

// CheckTarget enforces the startup preconditions on the target directory:
// it must be an existing, writable directory that is neither one of the
// protected directories nor inside one.
func CheckTarget(target string, protected ...string) error {
	abs, err := canonical(target)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%w: %v", framework.ErrTargetNotWritable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", framework.ErrTargetNotWritable, abs)
	}
	for _, dir := range protected {
		if dir == "" {
			continue
		}
		p, err := canonical(dir)
		if err != nil {
			continue
		}
		if framework.Within(p, abs) {
			return fmt.Errorf("%w: %s", framework.ErrTargetIsToolDir, abs)
		}
	}
	return tools.ProbeWritable(abs)
}

func canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
