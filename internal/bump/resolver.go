// Package bump turns a parsed commit set into a version bump decision.
package bump

import (
	"github.com/cloudoki/donder-release/internal/config"
	"github.com/cloudoki/donder-release/internal/models"
	"github.com/cloudoki/donder-release/internal/semver"
)

// Resolver aggregates parsed commits into a single next-version decision.
// The zero value uses the default release types.
type Resolver struct {
	// Types binds commit types to bumps; commit types without an entry
	// never trigger a release.
	Types config.ReleaseTypes
	// Pre1BreakingMinor demotes major to minor while the current major
	// version is 0.
	Pre1BreakingMinor bool
}

// New creates a resolver for the configured release types.
func New(cfg *config.Config) Resolver {
	return Resolver{
		Types:             cfg.Types,
		Pre1BreakingMinor: cfg.Pre1BreakingMinor,
	}
}

// Resolve computes the bump implied by a commit set. It is a pure function
// of the set: the same commits yield the same bump in any order. A breaking
// commit forces a major bump regardless of its type.
func (r Resolver) Resolve(commits []models.ParsedCommit) models.VersionBump {
	types := r.Types
	if types == nil {
		types = config.DefaultTypes()
	}

	result := models.BumpNone
	for _, c := range commits {
		if c.Breaking {
			return models.BumpMajor
		}
		if c.Type == models.TypeUnknown {
			continue
		}
		t, ok := types.Find(string(c.Type))
		if !ok {
			continue
		}
		switch t.Bump {
		case config.BumpMinor:
			if result < models.BumpMinor {
				result = models.BumpMinor
			}
		case config.BumpPatch:
			if result < models.BumpPatch {
				result = models.BumpPatch
			}
		}
	}
	return result
}

// Next computes the next version from the current one and the resolved
// bump. BumpNone returns the current version unchanged; the caller treats
// that as NoReleaseNeeded, never as an error.
func (r Resolver) Next(current semver.Version, commits []models.ParsedCommit, preID string) (semver.Version, models.VersionBump) {
	b := r.Resolve(commits)
	if b == models.BumpNone {
		return current, b
	}

	if b == models.BumpMajor && current.Major == 0 && r.Pre1BreakingMinor {
		b = models.BumpMinor
	}

	// A current prerelease absorbs the bump: only its counter advances.
	next := current
	if !current.IsPrerelease() {
		next = current.Bumped(b)
	}
	if preID != "" {
		next = next.NextPre(preID)
	} else {
		next.Pre = ""
	}
	return next, b
}
