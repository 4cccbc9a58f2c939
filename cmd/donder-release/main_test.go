package main

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test; t.Chdir requires a
// newer Go release than this toolchain provides.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// initRepo creates a git repository without an origin remote and makes it
// the working directory.
func initRepo(t *testing.T, messages ...string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	chdir(t, dir)

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init", "-q")
	git("config", "user.name", "Test")
	git("config", "user.email", "test@example.com")
	git("config", "commit.gpgsign", "false")
	for _, m := range messages {
		git("commit", "-q", "--allow-empty", "-m", m)
	}
}

func TestDryRunWithoutOriginRemote(t *testing.T) {
	initRepo(t, "feat: first", "fix: second")
	t.Setenv("GH_TOKEN", "")

	err := newCommand().Run(context.Background(), []string{"donder-release", "--dry-run"})
	require.NoError(t, err)
}

func TestInitFlagWritesConfig(t *testing.T) {
	chdir(t, t.TempDir())

	err := newCommand().Run(context.Background(), []string{"donder-release", "--init"})
	require.NoError(t, err)

	_, statErr := os.Stat("donder-release.yaml")
	require.NoError(t, statErr)
}
