// Package gitlog reads commit history, tags and remote metadata from a
// local git repository. Everything is read-only except Commit and Push,
// which record the release commit.
package gitlog

import (
	"bytes"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	gitlog "github.com/tsuyoshiwada/go-gitlog"

	errs "github.com/cloudoki/donder-release/internal/errors"
	"github.com/cloudoki/donder-release/internal/models"
	"github.com/cloudoki/donder-release/internal/semver"
)

// originRe matches ssh and https remote URLs and captures host, owner and
// repository name.
var originRe = regexp.MustCompile(`^(?:git@|ssh://git@|https://|http://)([\w.\-]+)[:/]([\w.\-]+)/([\w.\-]+?)(?:\.git)?/?$`)

// Reader enumerates commits and tags of one repository.
type Reader struct {
	path string
	git  gitlog.GitLog
}

// NewReader creates a reader for the repository at path.
func NewReader(path string) *Reader {
	if path == "" {
		path = "."
	}
	return &Reader{
		path: path,
		git:  gitlog.New(&gitlog.Config{Path: path}),
	}
}

// Commits returns the commits in the exclusive-from/inclusive-to range,
// newest first. An empty fromRef means the full history of toRef, so a first
// release sees every commit including the root. A non-empty pathScope
// restricts the log to commits touching that folder.
func (r *Reader) Commits(fromRef, toRef, pathScope string) ([]models.RawCommit, error) {
	if toRef == "" {
		toRef = "HEAD"
	}
	if pathScope != "" {
		return r.scopedLog(fromRef, toRef, pathScope)
	}

	var rev gitlog.RevArgs
	if fromRef != "" {
		rev = &gitlog.RevRange{Old: fromRef, New: toRef}
	} else if toRef != "HEAD" {
		rev = &gitlog.Rev{Ref: toRef}
	}

	log, err := r.git.Log(rev, nil)
	if err != nil {
		return nil, errs.RepositoryAccess(
			errors.Wrapf(err, "git log %s..%s", fromRef, toRef),
			"unable to read commits, check that both refs exist")
	}

	commits := make([]models.RawCommit, 0, len(log))
	for _, c := range log {
		msg := c.Subject
		if c.Body != "" {
			msg += "\n\n" + c.Body
		}
		commits = append(commits, models.RawCommit{
			Hash:       c.Hash.Long,
			Message:    msg,
			Author:     c.Author.Name,
			AuthoredAt: c.Author.Date,
		})
	}
	return commits, nil
}

// logFormat uses unit/record separators so subjects and bodies can carry
// any printable text.
const logFormat = "%H%x1f%an%x1f%aI%x1f%s%x1f%b%x1e"

// scopedLog reads a path-restricted log. go-gitlog has no pathspec support,
// so package-scoped history goes through git directly.
func (r *Reader) scopedLog(fromRef, toRef, pathScope string) ([]models.RawCommit, error) {
	args := []string{"log", "--pretty=format:" + logFormat}
	if fromRef != "" {
		args = append(args, fromRef+".."+toRef)
	} else {
		args = append(args, toRef)
	}
	args = append(args, "--", pathScope)

	out, err := r.run(args...)
	if err != nil {
		return nil, errs.RepositoryAccess(err, "unable to read commits for "+pathScope)
	}

	var commits []models.RawCommit
	for _, record := range strings.Split(out, "\x1e") {
		record = strings.TrimLeft(record, "\n")
		fields := strings.SplitN(record, "\x1f", 5)
		if len(fields) < 5 || fields[0] == "" {
			continue
		}
		msg := fields[3]
		if body := strings.TrimSpace(fields[4]); body != "" {
			msg += "\n\n" + body
		}
		at, _ := time.Parse(time.RFC3339, fields[2])
		commits = append(commits, models.RawCommit{
			Hash:       fields[0],
			Message:    msg,
			Author:     fields[1],
			AuthoredAt: at,
		})
	}
	return commits, nil
}

// Tags lists the repository tags carrying the prefix and a valid semantic
// version, newest version first.
func (r *Reader) Tags(prefix string) ([]models.Tag, error) {
	out, err := r.run("tag", "-l")
	if err != nil {
		return nil, errs.RepositoryAccess(err, "unable to list tags")
	}

	var names []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if _, ok := ParseTag(name, prefix); ok {
			names = append(names, name)
		}
	}
	SortTags(names, prefix)

	tags := make([]models.Tag, len(names))
	for i, name := range names {
		tags[i] = models.Tag{Name: name}
	}
	return tags, nil
}

// LatestTag resolves the tag of the last release: the newest tag on the
// preID prerelease channel when one is requested, otherwise the newest
// stable tag. ok is false when no prior release exists.
func (r *Reader) LatestTag(prefix, preID string) (models.Tag, bool, error) {
	tags, err := r.Tags(prefix)
	if err != nil {
		return models.Tag{}, false, err
	}
	name, ok := SelectLatest(tagNames(tags), prefix, preID)
	if !ok {
		return models.Tag{}, false, nil
	}

	hash, err := r.TagHead(name)
	if err != nil {
		return models.Tag{}, false, err
	}
	return models.Tag{Name: name, Hash: hash}, true, nil
}

// TagHead returns the commit hash a tag points at.
func (r *Reader) TagHead(tag string) (string, error) {
	out, err := r.run("rev-list", "-1", tag)
	if err != nil {
		return "", errs.RepositoryAccess(err, "unable to resolve tag "+tag)
	}
	return strings.TrimSpace(out), nil
}

// Clean reports whether the working tree has no uncommitted changes.
func (r *Reader) Clean() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, errs.RepositoryAccess(err, "unable to read the working tree status")
	}
	return strings.TrimSpace(out) == "", nil
}

// OriginURL returns the https URL of the origin remote, without
// credentials or the .git suffix.
func (r *Reader) OriginURL() (string, error) {
	host, owner, name, err := r.origin()
	if err != nil {
		return "", err
	}
	return "https://" + host + "/" + owner + "/" + name, nil
}

// RepoSlug returns the owner and repository name parsed from the origin
// remote.
func (r *Reader) RepoSlug() (string, string, error) {
	_, owner, name, err := r.origin()
	if err != nil {
		return "", "", err
	}
	return owner, name, nil
}

func (r *Reader) origin() (host, owner, name string, err error) {
	out, err := r.run("config", "--get", "remote.origin.url")
	if err != nil {
		return "", "", "", errs.RepositoryAccess(err, "unable to read the origin remote")
	}
	url := strings.TrimSpace(out)
	host, owner, name, perr := ParseOriginURL(url)
	if perr != nil {
		return "", "", "", errs.RepositoryAccess(perr, "unable to parse the origin remote URL")
	}
	return host, owner, name, nil
}

// ParseOriginURL extracts host, owner and repository name from a git remote
// URL in ssh or https form.
func ParseOriginURL(url string) (host, owner, name string, err error) {
	m := originRe.FindStringSubmatch(url)
	if m == nil {
		return "", "", "", errors.Errorf("unrecognized remote URL %q", url)
	}
	return m[1], m[2], m[3], nil
}

// ParseTag parses a tag name into a version, requiring the prefix.
func ParseTag(tag, prefix string) (semver.Version, bool) {
	if !strings.HasPrefix(tag, prefix) {
		return semver.Version{}, false
	}
	v, err := semver.Parse(strings.TrimPrefix(tag, prefix))
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// SortTags orders tag names by descending version. Names that do not parse
// sort last.
func SortTags(tags []string, prefix string) {
	slices.SortFunc(tags, func(a, b string) int {
		av, aok := ParseTag(a, prefix)
		bv, bok := ParseTag(b, prefix)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		return semver.Compare(bv, av)
	})
}

// SelectLatest picks the last-release tag from a version-descending list:
// the newest tag on the requested prerelease channel, or the newest stable
// tag, whichever comes first.
func SelectLatest(tags []string, prefix, preID string) (string, bool) {
	for _, tag := range tags {
		v, ok := ParseTag(tag, prefix)
		if !ok {
			continue
		}
		if preID != "" && strings.HasPrefix(v.Pre, preID+".") {
			return tag, true
		}
		if !v.IsPrerelease() {
			return tag, true
		}
	}
	return "", false
}

// Commit stages the given paths and records a commit with the message.
func (r *Reader) Commit(paths []string, message string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.run(args...); err != nil {
		return errs.RepositoryAccess(err, "unable to stage release files")
	}
	if _, err := r.run("commit", "-m", message); err != nil {
		return errs.RepositoryAccess(err, "unable to commit release files")
	}
	return nil
}

// Push publishes the current branch to its upstream.
func (r *Reader) Push() error {
	if _, err := r.run("push"); err != nil {
		return errs.RepositoryAccess(err, "unable to push the release commit")
	}
	return nil
}

func (r *Reader) run(args ...string) (string, error) {
	full := append([]string{"-C", r.path}, args...)
	cmd := exec.Command("git", full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
