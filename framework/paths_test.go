package framework

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInRepo(t *testing.T) {
	root := t.TempDir()
	got, err := ResolveInRepo(root, "utils/validators.py")
	require.NoError(t, err)
	require.True(t, Within(mustEval(t, root), got))
	require.Equal(t, "utils/validators.py", RelativeTo(mustEval(t, root), got))

	for _, bad := range []string{"../../etc/passwd", "../sibling.py", "a/../../b.py"} {
		_, err := ResolveInRepo(root, bad)
		assert.ErrorIs(t, err, ErrPathOutsideRepo, bad)
	}
	_, err = ResolveInRepo(root, "/etc/passwd")
	assert.ErrorIs(t, err, ErrAbsolutePath)
	_, err = ResolveInRepo(root, "")
	assert.Error(t, err)

	ok, err := ResolveInRepo(root, "a/../b.py")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(mustEval(t, root), "b.py"), ok)
}

func TestResolveInRepoSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err := ResolveInRepo(root, "link/evil.py")
	require.ErrorIs(t, err, ErrPathOutsideRepo)
}

func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}
