package models

// VersionBump is the magnitude of version increase implied by a commit set.
type VersionBump int

const (
	BumpNone VersionBump = iota
	BumpPatch
	BumpMinor
	BumpMajor
)

// String returns the lower-case bump name.
func (b VersionBump) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// ReleasePlan is the complete, immutable result of planning one package's
// release. It is built once and handed to the publisher as-is. Package is
// empty for a single-package repository.
type ReleasePlan struct {
	Package       string
	FromRef       string
	ToRef         string
	PreviousTag   string
	NextVersion   string
	TagName       string
	Bump          VersionBump
	Commits       []ParsedCommit
	ChangelogBody string
	FirstRelease  bool
}

// RemoteRelease mirrors the release resource of the hosting API. It exists
// only as a remote side effect; nothing is persisted locally.
type RemoteRelease struct {
	ID              int64  `json:"id,omitempty"`
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name"`
	Body            string `json:"body"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}

// Tag is a repository tag together with the commit it points at.
type Tag struct {
	Name string
	Hash string
}
