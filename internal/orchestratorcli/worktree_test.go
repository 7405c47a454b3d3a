package orchestratorcli

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initCLIRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com", "GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "init")
	return dir
}

func TestWorktreePruneRemovesOrphanDirectory(t *testing.T) {
	repo := initCLIRepo(t)
	root := filepath.Join(repo, ".worktrees")
	require.NoError(t, os.MkdirAll(root, 0o755))

	orphan := filepath.Join(root, "task-orphan-1234-1")
	require.NoError(t, os.MkdirAll(orphan, 0o755))

	out, err := executeCommand("worktree", "--repo-dir", repo, "--root", root, "prune")
	require.NoError(t, err)
	require.Contains(t, out, "orphaned: 1")
	require.NoDirExists(t, orphan)
}
