// Package app wires the release stages into one idempotent end-to-end run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cloudoki/donder-release/internal/bump"
	"github.com/cloudoki/donder-release/internal/bumpfile"
	"github.com/cloudoki/donder-release/internal/changelog"
	"github.com/cloudoki/donder-release/internal/config"
	"github.com/cloudoki/donder-release/internal/conventional"
	errs "github.com/cloudoki/donder-release/internal/errors"
	"github.com/cloudoki/donder-release/internal/gitlog"
	"github.com/cloudoki/donder-release/internal/logger"
	"github.com/cloudoki/donder-release/internal/models"
	"github.com/cloudoki/donder-release/internal/semver"
)

// Orchestrator runs the release state machine. No component below it prints
// or retries; the orchestrator logs stage progress and the cmd layer turns
// the outcome into an exit code.
type Orchestrator struct {
	cfg  *config.Config
	src  Source
	host Host
	log  *logger.Logger

	// out receives the rendered plan in dry-run mode.
	out io.Writer
	// now is injectable for deterministic changelog dates in tests.
	now func() time.Time
}

// New creates an orchestrator over a commit source and a release host.
func New(cfg *config.Config, src Source, host Host, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:  cfg,
		src:  src,
		host: host,
		log:  log,
		out:  os.Stdout,
		now:  time.Now,
	}
}

// runState carries the intermediate results between state transitions.
type runState struct {
	pkg config.Package

	prevTag   models.Tag
	hasPrev   bool
	fromRef   string
	toRef     string
	originURL string

	raws    []models.RawCommit
	commits []models.ParsedCommit

	current semver.Version
	next    semver.Version
	bump    models.VersionBump

	plan *models.ReleasePlan
}

// Run plans and publishes every configured package in order: the repository
// root, or each package:true folder of a monorepo. NoReleaseNeeded is a
// successful outcome and returns a nil error; the overall state is Done as
// soon as any package published.
func (o *Orchestrator) Run(ctx context.Context) (State, []*models.ReleasePlan, error) {
	if o.cfg.DryRun {
		o.log.Info("Running in dry-run mode, release will not be published")
	} else {
		o.log.Info("Running in publish mode, release will be published")
		if err := o.checkWorktree(); err != nil {
			return StateFailed, nil, err
		}
	}

	pkgs, err := o.cfg.Packages()
	if err != nil {
		return StateFailed, nil, err
	}

	final := StateNoRelease
	var plans []*models.ReleasePlan
	for _, pkg := range pkgs {
		if pkg.Name != "" {
			o.log.Infof("Releasing package %s", pkg.Name)
		}
		st, plan, err := o.runPackage(ctx, pkg)
		if err != nil {
			return StateFailed, nil, err
		}
		if plan != nil {
			plans = append(plans, plan)
		}
		if st == StateDone {
			final = StateDone
		}
	}
	return final, plans, nil
}

// checkWorktree refuses a publish run over uncommitted changes, which the
// release commit would otherwise sweep up.
func (o *Orchestrator) checkWorktree() error {
	wt, ok := o.src.(Worktree)
	if !ok {
		return nil
	}
	clean, err := wt.Clean()
	if err != nil {
		return err
	}
	if !clean {
		return errs.New(errs.ErrCodeRepositoryAccess,
			"there are uncommitted changes, commit or stash them first")
	}
	return nil
}

// runPackage drives one package's state machine to a terminal state.
func (o *Orchestrator) runPackage(ctx context.Context, pkg config.Package) (State, *models.ReleasePlan, error) {
	rs := &runState{pkg: pkg}
	st := StateStart
	for !st.Terminal() {
		next, err := o.step(ctx, st, rs)
		if err != nil {
			return StateFailed, nil, err
		}
		st = next
	}
	return st, rs.plan, nil
}

// step executes a single transition. Kept separate from runPackage so each
// transition can be unit tested without the loop.
func (o *Orchestrator) step(ctx context.Context, st State, rs *runState) (State, error) {
	switch st {
	case StateStart:
		return StateReadCommits, nil
	case StateReadCommits:
		return o.readCommits(ctx, rs)
	case StateParseCommits:
		return o.parseCommits(rs)
	case StateResolveVersion:
		return o.resolveVersion(rs)
	case StateRenderChangelog:
		return o.renderChangelog(rs)
	case StatePublish:
		return o.publish(ctx, rs)
	default:
		return StateFailed, errs.Internal(fmt.Errorf("unexpected state %q", st))
	}
}

func (o *Orchestrator) readCommits(ctx context.Context, rs *runState) (State, error) {
	tag, ok, err := o.src.LatestTag(rs.pkg.TagPrefix, o.cfg.PreID)
	if err != nil {
		return StateFailed, err
	}
	if !ok && o.host != nil {
		// Shallow CI clones often miss tags; fall back to the host's view.
		tag, ok, err = o.latestHostTag(ctx, rs.pkg.TagPrefix)
		if err != nil {
			return StateFailed, err
		}
	}
	rs.prevTag, rs.hasPrev = tag, ok

	rs.fromRef = o.cfg.FromRef
	if rs.fromRef == "" && ok {
		rs.fromRef = tag.Hash
	}
	rs.toRef = o.cfg.ToRef
	if rs.toRef == "" {
		rs.toRef = "HEAD"
	}

	if ok {
		o.log.Infof("Last release: %s", tag.Name)
	} else {
		o.log.Info("No previous release found, assuming first release")
	}

	rs.raws, err = o.src.Commits(rs.fromRef, rs.toRef, rs.pkg.Path)
	if err != nil {
		return StateFailed, err
	}
	if len(rs.raws) == 0 {
		o.log.Info("No commits since last release, nothing to do")
		return StateNoRelease, nil
	}
	return StateParseCommits, nil
}

// latestHostTag resolves the last release tag from the host's tag list,
// applying the same prefix and channel rules as the local lookup.
func (o *Orchestrator) latestHostTag(ctx context.Context, prefix string) (models.Tag, bool, error) {
	tags, err := o.host.ListTags(ctx)
	if err != nil {
		return models.Tag{}, false, err
	}
	names := make([]string, len(tags))
	byName := make(map[string]models.Tag, len(tags))
	for i, t := range tags {
		names[i] = t.Name
		byName[t.Name] = t
	}
	gitlog.SortTags(names, prefix)
	name, ok := gitlog.SelectLatest(names, prefix, o.cfg.PreID)
	if !ok {
		return models.Tag{}, false, nil
	}
	return byName[name], true, nil
}

func (o *Orchestrator) parseCommits(rs *runState) (State, error) {
	o.log.Infof("Analyzing %d commits", len(rs.raws))
	rs.commits = conventional.ParseAll(rs.raws)
	return StateResolveVersion, nil
}

func (o *Orchestrator) resolveVersion(rs *runState) (State, error) {
	resolver := bump.New(o.cfg)

	if !rs.hasPrev {
		rs.bump = resolver.Resolve(rs.commits)
		if rs.bump == models.BumpNone {
			o.log.Info("No relevant commits found, skipping release")
			return StateNoRelease, nil
		}
		rs.current = semver.Zero
		rs.next = semver.First(o.cfg.PreID)
		o.log.Infof("Next release version: %s", rs.next)
		return StateRenderChangelog, nil
	}

	current, ok := gitlog.ParseTag(rs.prevTag.Name, rs.pkg.TagPrefix)
	if !ok {
		return StateFailed, errs.RepositoryAccess(nil,
			fmt.Sprintf("tag %s does not carry a valid version", rs.prevTag.Name))
	}
	rs.current = current

	rs.next, rs.bump = resolver.Next(current, rs.commits, o.cfg.PreID)
	if rs.bump == models.BumpNone {
		o.log.Info("No relevant commits found, skipping release")
		return StateNoRelease, nil
	}
	o.log.Infof("Next release version: %s (%s bump)", rs.next, rs.bump)
	return StateRenderChangelog, nil
}

func (o *Orchestrator) renderChangelog(rs *runState) (State, error) {
	if url, err := o.src.OriginURL(); err == nil {
		rs.originURL = url
	}

	tagName := rs.pkg.TagPrefix + rs.next.String()
	renderer := changelog.New(o.cfg, rs.originURL, o.now())
	body := renderer.Render(rs.next.String(), rs.prevTag.Name, tagName, rs.commits)

	rs.plan = &models.ReleasePlan{
		Package:       rs.pkg.Name,
		FromRef:       rs.fromRef,
		ToRef:         rs.toRef,
		PreviousTag:   rs.prevTag.Name,
		NextVersion:   rs.next.String(),
		TagName:       tagName,
		Bump:          rs.bump,
		Commits:       rs.commits,
		ChangelogBody: body,
		FirstRelease:  !rs.hasPrev,
	}

	if o.cfg.DryRun {
		o.log.Info("Previewing release")
		fmt.Fprintln(o.out, body)
		return StateDone, nil
	}
	return StatePublish, nil
}

func (o *Orchestrator) publish(ctx context.Context, rs *runState) (State, error) {
	plan := rs.plan

	// Idempotence guard: a release for this tag means a previous run (or a
	// racing one) already published it.
	existing, err := o.host.GetReleaseByTag(ctx, plan.TagName)
	if err != nil {
		return StateFailed, err
	}
	if existing != nil {
		return o.finishExisting(ctx, existing, plan)
	}

	var touched []string
	if len(rs.pkg.BumpFiles) > 0 {
		o.log.Infof("Bumping version in %d files", len(rs.pkg.BumpFiles))
		if err := bumpfile.Apply(rs.pkg.BumpFiles, plan.NextVersion); err != nil {
			return StateFailed, errs.Wrap(err, errs.ErrCodeRepositoryAccess, "failed to bump version files")
		}
		for _, f := range rs.pkg.BumpFiles {
			touched = append(touched, f.Path)
		}
	}
	if o.cfg.ChangelogFile != "" {
		file := o.cfg.ChangelogFile
		if rs.pkg.Path != "" {
			// Each package keeps its changelog in its own folder.
			file = path.Join(rs.pkg.Path, file)
		}
		o.log.Infof("Writing release notes to %s", file)
		if err := changelog.WriteFile(file, plan.ChangelogBody); err != nil {
			return StateFailed, errs.Wrap(err, errs.ErrCodeRepositoryAccess, "failed to write changelog file")
		}
		touched = append(touched, file)
	}
	if len(touched) > 0 {
		if err := o.commitReleaseFiles(touched, plan.NextVersion); err != nil {
			return StateFailed, err
		}
	}

	o.log.Infof("Publishing release %s", plan.TagName)
	_, err = o.host.CreateRelease(ctx, o.remoteRelease(plan))
	if err == nil {
		o.log.Infof("Release %s published", plan.TagName)
		return StateDone, nil
	}
	if !errs.IsCode(err, errs.ErrCodeDuplicateRelease) {
		return StateFailed, err
	}

	// Create conflicted on the tag: another invocation won the race. Treat
	// it exactly like finding the release up front.
	existing, ferr := o.host.GetReleaseByTag(ctx, plan.TagName)
	if ferr != nil || existing == nil {
		return StateFailed, err
	}
	return o.finishExisting(ctx, existing, plan)
}

// commitReleaseFiles commits and pushes the locally rewritten files so the
// published tag lands on a commit carrying the version updates.
func (o *Orchestrator) commitReleaseFiles(paths []string, version string) error {
	committer, ok := o.src.(Committer)
	if !ok {
		return nil
	}
	message := o.cfg.ReleaseMessage
	if strings.Contains(message, "%s") {
		message = fmt.Sprintf(message, version)
	}
	o.log.Infof("Committing release files: %s", message)
	if err := committer.Commit(paths, message); err != nil {
		return err
	}
	return committer.Push()
}

// finishExisting resolves a run whose tag is already released: a no-op by
// default, an in-place update when overwriting was requested.
func (o *Orchestrator) finishExisting(ctx context.Context, existing *models.RemoteRelease, plan *models.ReleasePlan) (State, error) {
	if !o.cfg.Overwrite {
		o.log.Infof("Release %s already exists, nothing to do", plan.TagName)
		return StateNoRelease, nil
	}

	updated := o.remoteRelease(plan)
	updated.ID = existing.ID
	if _, err := o.host.UpdateRelease(ctx, updated); err != nil {
		return StateFailed, err
	}
	o.log.Infof("Release %s updated", plan.TagName)
	return StateDone, nil
}

func (o *Orchestrator) remoteRelease(plan *models.ReleasePlan) models.RemoteRelease {
	rel := models.RemoteRelease{
		TagName:    plan.TagName,
		Name:       plan.TagName,
		Body:       plan.ChangelogBody,
		Draft:      o.cfg.Draft,
		Prerelease: o.cfg.Prerelease,
	}
	if v, err := semver.Parse(plan.NextVersion); err == nil && v.IsPrerelease() {
		rel.Prerelease = true
	}
	if plan.ToRef != "HEAD" {
		rel.TargetCommitish = plan.ToRef
	}
	return rel
}
