package gitlog

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// initRepo creates a throwaway git repository for history tests.
func initRepo(t *testing.T) (*Reader, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	r := NewReader(dir)
	git := func(args ...string) {
		t.Helper()
		_, err := r.run(args...)
		require.NoError(t, err)
	}
	git("init", "-q")
	git("config", "user.name", "Test")
	git("config", "user.email", "test@example.com")
	git("config", "commit.gpgsign", "false")
	return r, dir
}

func commitFile(t *testing.T, r *Reader, dir, name, message string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(message+"\n"), 0o644))
	_, err := r.run("add", "--", name)
	require.NoError(t, err)
	_, err = r.run("commit", "-q", "-m", message)
	require.NoError(t, err)
	out, err := r.run("rev-parse", "HEAD")
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestCommitsFullHistoryIncludesRoot(t *testing.T) {
	r, dir := initRepo(t)
	commitFile(t, r, dir, "a.txt", "feat: first")
	commitFile(t, r, dir, "b.txt", "fix: second")

	commits, err := r.Commits("", "HEAD", "")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "fix: second", commits[0].Message)
	require.Equal(t, "feat: first", commits[1].Message)
}

func TestCommitsSingleCommitRepo(t *testing.T) {
	r, dir := initRepo(t)
	hash := commitFile(t, r, dir, "a.txt", "feat: first")

	commits, err := r.Commits("", "HEAD", "")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Equal(t, hash, commits[0].Hash)
	require.Equal(t, "feat: first", commits[0].Message)
}

func TestCommitsRangeExcludesFrom(t *testing.T) {
	r, dir := initRepo(t)
	first := commitFile(t, r, dir, "a.txt", "feat: first")
	commitFile(t, r, dir, "b.txt", "fix: second")
	commitFile(t, r, dir, "c.txt", "fix: third")

	commits, err := r.Commits(first, "HEAD", "")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "fix: third", commits[0].Message)
	require.Equal(t, "fix: second", commits[1].Message)
}

func TestCommitsPathScope(t *testing.T) {
	r, dir := initRepo(t)
	commitFile(t, r, dir, "packages/a/f.txt", "feat: in a")
	commitFile(t, r, dir, "packages/b/f.txt", "feat: in b")
	commitFile(t, r, dir, "packages/a/g.txt", "fix: in a again")

	commits, err := r.Commits("", "HEAD", "packages/a")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "fix: in a again", commits[0].Message)
	require.Equal(t, "feat: in a", commits[1].Message)
	require.NotEmpty(t, commits[0].Hash)
	require.Equal(t, "Test", commits[0].Author)
	require.False(t, commits[0].AuthoredAt.IsZero())
}

func TestCommitsPathScopeWithRange(t *testing.T) {
	r, dir := initRepo(t)
	first := commitFile(t, r, dir, "packages/a/f.txt", "feat: in a")
	commitFile(t, r, dir, "packages/a/g.txt", "fix: in a again")

	commits, err := r.Commits(first, "HEAD", "packages/a")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Equal(t, "fix: in a again", commits[0].Message)
}

func TestCleanWorktree(t *testing.T) {
	r, dir := initRepo(t)
	commitFile(t, r, dir, "a.txt", "feat: first")

	clean, err := r.Clean()
	require.NoError(t, err)
	require.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed\n"), 0o644))
	clean, err = r.Clean()
	require.NoError(t, err)
	require.False(t, clean)
}

func TestParseOriginURL(t *testing.T) {
	tests := []struct {
		url   string
		host  string
		owner string
		name  string
	}{
		{"git@github.com:cloudoki/donder-release.git", "github.com", "cloudoki", "donder-release"},
		{"ssh://git@github.com/cloudoki/donder-release.git", "github.com", "cloudoki", "donder-release"},
		{"https://github.com/cloudoki/donder-release.git", "github.com", "cloudoki", "donder-release"},
		{"https://github.com/cloudoki/donder-release", "github.com", "cloudoki", "donder-release"},
		{"https://github.com/cloudoki/donder-release/", "github.com", "cloudoki", "donder-release"},
		{"https://gitlab.example.com/cloudoki/some.repo.git", "gitlab.example.com", "cloudoki", "some.repo"},
	}
	for _, tt := range tests {
		host, owner, name, err := ParseOriginURL(tt.url)
		require.NoError(t, err, tt.url)
		require.Equal(t, tt.host, host, tt.url)
		require.Equal(t, tt.owner, owner, tt.url)
		require.Equal(t, tt.name, name, tt.url)
	}
}

func TestParseOriginURLRejectsGarbage(t *testing.T) {
	for _, url := range []string{"", "not a url", "file:///tmp/repo"} {
		_, _, _, err := ParseOriginURL(url)
		require.Error(t, err, url)
	}
}

func TestParseTag(t *testing.T) {
	v, ok := ParseTag("v1.2.3", "v")
	require.True(t, ok)
	require.Equal(t, "1.2.3", v.String())

	v, ok = ParseTag("release-2.0.0-beta.1", "release-")
	require.True(t, ok)
	require.Equal(t, "2.0.0-beta.1", v.String())

	_, ok = ParseTag("1.2.3", "v")
	require.False(t, ok)

	_, ok = ParseTag("vnightly", "v")
	require.False(t, ok)
}

func TestSortTags(t *testing.T) {
	tags := []string{"v1.0.0", "v1.10.0", "nightly", "v1.2.0", "v2.0.0-beta.2", "v2.0.0"}
	SortTags(tags, "v")
	require.Equal(t, []string{"v2.0.0", "v2.0.0-beta.2", "v1.10.0", "v1.2.0", "v1.0.0", "nightly"}, tags)
}

func TestSelectLatestStable(t *testing.T) {
	tags := []string{"v2.0.0-beta.2", "v1.10.0", "v1.2.0"}

	// Without a channel the prerelease is skipped.
	name, ok := SelectLatest(tags, "v", "")
	require.True(t, ok)
	require.Equal(t, "v1.10.0", name)
}

func TestSelectLatestChannel(t *testing.T) {
	tags := []string{"v2.0.0-beta.2", "v1.10.0", "v1.2.0"}

	name, ok := SelectLatest(tags, "v", "beta")
	require.True(t, ok)
	require.Equal(t, "v2.0.0-beta.2", name)

	// A different channel falls back to the newest stable tag.
	name, ok = SelectLatest(tags, "v", "alpha")
	require.True(t, ok)
	require.Equal(t, "v1.10.0", name)
}

func TestSelectLatestEmpty(t *testing.T) {
	_, ok := SelectLatest(nil, "v", "")
	require.False(t, ok)

	_, ok = SelectLatest([]string{"nightly"}, "v", "")
	require.False(t, ok)
}
