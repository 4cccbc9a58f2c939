package app

import (
	"context"

	"github.com/cloudoki/donder-release/internal/models"
)

// State identifies a stage of the release run. The run advances through the
// states strictly in order; three of them are terminal.
type State string

const (
	StateStart           State = "start"
	StateReadCommits     State = "read_commits"
	StateParseCommits    State = "parse_commits"
	StateResolveVersion  State = "resolve_version"
	StateRenderChangelog State = "render_changelog"
	StatePublish         State = "publish"

	// Terminal states
	StateDone      State = "done"
	StateNoRelease State = "no_release_needed"
	StateFailed    State = "failed"
)

// Terminal reports whether the run stops in this state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateNoRelease || s == StateFailed
}

// Source enumerates commits and tags of a repository. Implementations must
// be read-only.
type Source interface {
	// Commits returns the commits in the exclusive-from/inclusive-to
	// range, newest first. An empty fromRef means the full history; a
	// non-empty pathScope restricts the log to one package folder.
	Commits(fromRef, toRef, pathScope string) ([]models.RawCommit, error)
	// LatestTag resolves the last release tag for a prefix and prerelease
	// channel; ok is false when no release exists yet.
	LatestTag(prefix, preID string) (models.Tag, bool, error)
	// TagHead returns the commit hash a tag points at.
	TagHead(tag string) (string, error)
	// OriginURL returns the https URL of the repository remote.
	OriginURL() (string, error)
}

// Worktree reports local working tree state. Sources that implement it are
// checked before a publish run is allowed to rewrite files.
type Worktree interface {
	Clean() (bool, error)
}

// Committer records the release commit carrying bump-file and changelog
// updates. Sources that cannot write (or dry runs) simply don't implement
// it; the orchestrator checks with a type assertion.
type Committer interface {
	Commit(paths []string, message string) error
	Push() error
}

// Host is the narrow capability surface of the release hosting API.
type Host interface {
	CreateRelease(ctx context.Context, rel models.RemoteRelease) (*models.RemoteRelease, error)
	// GetReleaseByTag returns (nil, nil) when no release exists for the tag.
	GetReleaseByTag(ctx context.Context, tag string) (*models.RemoteRelease, error)
	UpdateRelease(ctx context.Context, rel models.RemoteRelease) (*models.RemoteRelease, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
}
