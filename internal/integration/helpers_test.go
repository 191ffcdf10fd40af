package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/shell"
)

// requireGit skips the test when git is not installed.
func requireGit(t *testing.T) {
	t.Helper()

	if !shell.LookPath("git") {
		t.Skip("git is not installed")
	}
}

// git runs a git command in dir and returns its trimmed output.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)

	return strings.TrimSpace(string(out))
}

// newRepository creates a bare remote and a clone with one pushed commit.
func newRepository(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	clone := filepath.Join(root, "clone")

	git(t, root, "init", "--bare", remote)
	git(t, root, "clone", remote, clone)

	for _, kv := range [][2]string{
		{"user.name", "Release Bot"},
		{"user.email", "release@example.test"},
		{"commit.gpgsign", "false"},
		{"tag.gpgsign", "false"},
	} {
		git(t, clone, "config", kv[0], kv[1])
	}

	require.NoError(t, os.WriteFile(filepath.Join(clone, "main.py"), []byte("print('hi')\n"), 0o644))
	git(t, clone, "add", "main.py")
	git(t, clone, "commit", "-m", "initial")
	git(t, clone, "push", "-u", "origin", "HEAD")

	return remote, clone
}

// writeConfig saves default settings into dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, &config.Config{}))

	return path
}
