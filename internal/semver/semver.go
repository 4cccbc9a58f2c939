// Package semver implements the small slice of semantic versioning the
// release engine needs: parsing version triples with an optional prerelease
// channel, bumping them, and ordering tags.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	modsemver "golang.org/x/mod/semver"

	"github.com/cloudoki/donder-release/internal/models"
)

// Version is a parsed semantic version. Build metadata is not carried; the
// release flow never produces it.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   string
}

// Zero is the version used when no prior release exists.
var Zero = Version{}

// Parse parses a version string without a tag prefix, e.g. "1.2.3" or
// "2.0.0-beta.1".
func Parse(s string) (Version, error) {
	if !modsemver.IsValid("v" + s) {
		return Version{}, fmt.Errorf("invalid semantic version %q", s)
	}

	rest := s
	var pre string
	if i := strings.IndexAny(rest, "-+"); i >= 0 {
		if rest[i] == '-' {
			pre = rest[i+1:]
			if j := strings.Index(pre, "+"); j >= 0 {
				pre = pre[:j]
			}
		}
		rest = rest[:i]
	}

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid semantic version %q", s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid semantic version %q: %w", s, err)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre}, nil
}

// MustParse is Parse for statically known inputs.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the canonical version string without a tag prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// IsPrerelease reports whether the version carries a prerelease suffix.
func (v Version) IsPrerelease() bool {
	return v.Pre != ""
}

// Compare orders two versions per semantic versioning precedence rules.
func Compare(a, b Version) int {
	return modsemver.Compare("v"+a.String(), "v"+b.String())
}

// Bumped returns the version after applying the given bump. The prerelease
// suffix is dropped; prerelease sequencing is handled by NextPre.
func (v Version) Bumped(bump models.VersionBump) Version {
	switch bump {
	case models.BumpMajor:
		return Version{Major: v.Major + 1}
	case models.BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case models.BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	}
}

// NextPre advances the prerelease channel identified by preID. A version
// with no prerelease, or one on a different channel, starts at "<preID>.0";
// a version already on the channel increments its counter.
func (v Version) NextPre(preID string) Version {
	next := v
	if v.Pre == "" {
		next.Pre = preID + ".0"
		return next
	}

	parts := strings.SplitN(v.Pre, ".", 2)
	if parts[0] != preID || len(parts) < 2 {
		next.Pre = preID + ".0"
		return next
	}
	n, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		next.Pre = preID + ".0"
		return next
	}
	next.Pre = fmt.Sprintf("%s.%d", preID, n+1)
	return next
}

// First returns the version of an initial release: 1.0.0, or
// 1.0.0-<preID>.0 when a prerelease channel is requested.
func First(preID string) Version {
	v := Version{Major: 1}
	if preID != "" {
		v.Pre = preID + ".0"
	}
	return v
}
