// Package bumpfile rewrites the version field of package manifests before a
// release is published. Files are edited line by line so formatting and
// comments survive.
package bumpfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudoki/donder-release/internal/config"
	"github.com/cloudoki/donder-release/internal/semver"
)

var (
	npmVersionRe   = regexp.MustCompile(`^(\s*"version"\s*:\s*")([^"]*)(".*)$`)
	cargoVersionRe = regexp.MustCompile(`^(\s*version\s*=\s*")([^"]*)(".*)$`)
	pubVersionRe   = regexp.MustCompile(`^(version\s*:\s*)(.*)$`)

	marketingVersionRe = regexp.MustCompile(`MARKETING_VERSION = [^;]*;`)
	projectVersionRe   = regexp.MustCompile(`CURRENT_PROJECT_VERSION = [^;]*;`)
)

// Apply rewrites the version in every configured bump file.
func Apply(files []config.BumpFile, version string) error {
	for _, f := range files {
		if err := bumpOne(f, version); err != nil {
			return err
		}
	}
	return nil
}

func bumpOne(f config.BumpFile, version string) error {
	switch f.Target {
	case "npm":
		return bumpLine(f, version, npmVersionRe)
	case "cargo":
		return bumpCargo(f, version)
	case "pub":
		return bumpLine(f, version, pubVersionRe)
	case "android":
		return errors.New("android bumping is not yet supported")
	case "ios":
		return bumpIOS(f, version)
	default:
		return errors.Errorf("unsupported bump file target %q", f.Target)
	}
}

// withMetadata yields the version to write into a file: the plain version,
// or version "+N" where N continues the build counter found in the file's
// previous value.
func withMetadata(f config.BumpFile, previous, version string) string {
	if !f.BuildMetadata {
		return version
	}
	if i := strings.Index(previous, "+"); i >= 0 {
		if n, err := strconv.ParseUint(previous[i+1:], 10, 32); err == nil {
			return fmt.Sprintf("%s+%d", version, n+1)
		}
	}
	return version + "+1"
}

func bumpLine(f config.BumpFile, version string, re *regexp.Regexp) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return errors.Wrapf(err, "unable to read bump file %s", f.Path)
	}

	out, ok := replaceLine(data, func(line string) (string, bool) {
		if m := re.FindStringSubmatch(line); m != nil {
			next := withMetadata(f, m[2], version)
			if len(m) > 3 {
				return m[1] + next + m[3], true
			}
			return m[1] + next, true
		}
		return line, false
	})
	if !ok {
		return errors.Errorf("no version field found in %s", f.Path)
	}

	return writeBack(f.Path, out)
}

func bumpCargo(f config.BumpFile, version string) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return errors.Wrapf(err, "unable to read bump file %s", f.Path)
	}
	out, ok := replaceCargo(f, data, version)
	if !ok {
		return errors.Errorf("no version field found in %s", f.Path)
	}
	return writeBack(f.Path, out)
}

// bumpIOS rewrites the MARKETING_VERSION and CURRENT_PROJECT_VERSION of the
// Xcode project under the bump file path. App Store Connect allows neither
// prerelease suffixes nor metadata on the marketing version, so the
// prerelease channel is encoded into the project version instead: alpha=1,
// beta=2, rc=3, anything else 4, stable 5.0.
func bumpIOS(f config.BumpFile, version string) error {
	v, err := semver.Parse(version)
	if err != nil {
		return errors.Wrapf(err, "invalid version for %s", f.Path)
	}

	project := strings.TrimSuffix(f.Path, "/") + ".xcodeproj/project.pbxproj"
	data, err := os.ReadFile(project)
	if err != nil {
		return errors.Wrapf(err, "unable to read bump file %s", project)
	}
	if !marketingVersionRe.Match(data) || !projectVersionRe.Match(data) {
		return errors.Errorf("no version field found in %s", project)
	}

	marketing := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	projectVersion := "5.0"
	if v.Pre != "" {
		parts := strings.SplitN(v.Pre, ".", 2)
		channel := "4"
		switch parts[0] {
		case "alpha":
			channel = "1"
		case "beta":
			channel = "2"
		case "rc":
			channel = "3"
		}
		counter := "0"
		if len(parts) == 2 {
			counter = parts[1]
		}
		projectVersion = channel + "." + counter
	}

	out := marketingVersionRe.ReplaceAll(data, []byte("MARKETING_VERSION = "+marketing+";"))
	out = projectVersionRe.ReplaceAll(out, []byte("CURRENT_PROJECT_VERSION = "+projectVersion+";"))
	return writeBack(project, out)
}

// replaceLine rewrites the first line the replace function accepts.
func replaceLine(data []byte, replace func(string) (string, bool)) ([]byte, bool) {
	var o bytes.Buffer
	s := bufio.NewScanner(bytes.NewReader(data))
	replaced := false
	for s.Scan() {
		line := s.Text()
		if !replaced {
			if next, ok := replace(line); ok {
				line = next
				replaced = true
			}
		}
		fmt.Fprintln(&o, line)
	}
	return o.Bytes(), replaced
}

// replaceCargo rewrites the version line inside the [package] section only,
// leaving dependency version pins alone.
func replaceCargo(f config.BumpFile, data []byte, version string) ([]byte, bool) {
	var o bytes.Buffer
	s := bufio.NewScanner(bytes.NewReader(data))
	inPackage := false
	replaced := false
	for s.Scan() {
		line := s.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inPackage = trimmed == "[package]"
		}
		if inPackage && !replaced {
			if m := cargoVersionRe.FindStringSubmatch(line); m != nil {
				line = m[1] + withMetadata(f, m[2], version) + m[3]
				replaced = true
			}
		}
		fmt.Fprintln(&o, line)
	}
	return o.Bytes(), replaced
}

func writeBack(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "unable to write bump file %s", path)
	}
	return nil
}
