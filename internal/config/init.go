package config

import (
	"os"

	"github.com/cloudoki/donder-release/internal/errors"
)

const template = `# Configuration file for donder-release

# Release message of the release commit - /%s/ will be replaced with the release version
release_message: "chore(release): %s"
# Prefix of the release tag
tag_prefix: v
# If defined changelog will be written to this file
# changelog_file: CHANGELOG.md
# Allowed types that trigger a release and their corresponding semver bump.
# feat, fix and revert are reserved types and can only have their section name changed.
# types:
#   - { commit_type: feat, section: Features }
#   - { commit_type: fix, section: Bug Fixes }
#   - { commit_type: perf, bump: patch, section: Performance Improvements }
# If defined the version will be bumped in these files before publishing.
# (supported targets: npm, cargo, pub, android and ios)
# Set package to true and the bump file's parent folder is treated as its own
# release unit with "<folder>@<tag_prefix>" tags, useful for monorepos.
# bump_files:
#   - { target: npm, path: package.json }
#   - { target: cargo, path: Cargo.toml }
#   - { target: pub, path: pubspec.yaml, build_metadata: true }
#   - { target: ios, path: MyApp, build_metadata: true }
#   - { target: npm, path: packages/a/package.json, package: true }
#   - { target: npm, path: packages/b/package.json, package: true }
# Treat breaking changes as minor bumps while the major version is 0
# pre_1_0_breaking_minor: false
`

// Init writes a commented template config file. It refuses to overwrite an
// existing one.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.ConfigInvalid("config file " + path + " already exists")
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to write config file")
	}
	return nil
}
