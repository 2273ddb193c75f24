package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootDir_HonorsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(StateDirEnv, dir)

	root, err := RootDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Clean(dir), root)
}

func TestRootDir_FallsBackToXDGStateHome(t *testing.T) {
	t.Setenv(StateDirEnv, "")
	dir := t.TempDir()
	t.Setenv(xdgStateHomeEnv, dir)

	root, err := RootDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Clean(dir), appName), root)
}

func TestProjectDir_RejectsEmptyWorkspaceOrProject(t *testing.T) {
	root := t.TempDir()

	_, err := ProjectDir(root, "", "proj")
	require.Error(t, err)

	_, err = ProjectDir(root, "ws", "")
	require.Error(t, err)
}

func TestProjectDir_LayoutUnderRoot(t *testing.T) {
	root := t.TempDir()

	dir, err := ProjectDir(root, "/home/user/myws", "proj1")
	require.NoError(t, err)

	require.Equal(t, filepath.Join(root, "projects", sanitizeComponent("/home/user/myws"), "proj1", "agent", "history"), dir)
}

func TestSanitizeComponent_StripsPathSeparators(t *testing.T) {
	out := sanitizeComponent("/home/user/my workspace!")
	require.NotContains(t, out, "/")
	require.NotContains(t, out, " ")
	require.NotContains(t, out, "!")
}

func TestSanitizeComponent_NeverEmpty(t *testing.T) {
	out := sanitizeComponent("///")
	require.NotEmpty(t, out)
}
