package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cloudoki/donder-release/internal/errors"
)

// Bump names accepted for configured release types. "none" marks types that
// appear in the changelog without triggering a release on their own.
const (
	BumpMinor = "minor"
	BumpPatch = "patch"
	BumpNone  = "none"
)

// ReleaseType binds a commit type to a semver bump and a changelog section
// title.
type ReleaseType struct {
	CommitType string `yaml:"commit_type"`
	Bump       string `yaml:"bump"`
	Section    string `yaml:"section"`
}

// ReleaseTypes is the ordered list of types that participate in a release.
// Order doubles as changelog section priority.
type ReleaseTypes []ReleaseType

// Find returns the release type for a commit type, if configured.
func (ts ReleaseTypes) Find(commitType string) (ReleaseType, bool) {
	for _, t := range ts {
		if t.CommitType == commitType {
			return t, true
		}
	}
	return ReleaseType{}, false
}

// BumpFile points at a version file that gets rewritten before publishing.
type BumpFile struct {
	Target string `yaml:"target"`
	Path   string `yaml:"path"`
	// BuildMetadata appends an incrementing "+N" build counter to the
	// version written into this file.
	BuildMetadata bool `yaml:"build_metadata"`
	// Package marks the file's parent folder as a separately released
	// package with its own tag line and commit scope.
	Package bool `yaml:"package"`
}

// Package is one release unit: the repository root, or a package:true
// folder of a monorepo with its own tag line.
type Package struct {
	// Name is empty for the repository root.
	Name string
	// Path scopes the commit log; empty means the whole repository.
	Path string
	// TagPrefix is "<name>@<prefix>" for packages, the plain prefix for
	// the root.
	TagPrefix string
	BumpFiles []BumpFile
}

// Config holds the full run configuration: the yaml file settings plus the
// flag and environment overrides layered on top.
type Config struct {
	// Yaml-backed settings
	ReleaseMessage string       `yaml:"release_message"`
	TagPrefix      string       `yaml:"tag_prefix"`
	Types          ReleaseTypes `yaml:"types"`
	BumpFiles      []BumpFile   `yaml:"bump_files"`
	ChangelogFile  string       `yaml:"changelog_file"`
	IncludeAuthors bool         `yaml:"include_authors"`
	// Pre1BreakingMinor maps a major bump to minor while the current major
	// version is 0. Off by default: 0.x breaking changes bump major.
	Pre1BreakingMinor bool `yaml:"pre_1_0_breaking_minor"`

	// Flag/environment settings
	Token      string `yaml:"-"`
	RepoOwner  string `yaml:"-"`
	RepoName   string `yaml:"-"`
	FromRef    string `yaml:"-"`
	ToRef      string `yaml:"-"`
	PreID      string `yaml:"-"`
	DryRun     bool   `yaml:"-"`
	Draft      bool   `yaml:"-"`
	Prerelease bool   `yaml:"-"`
	Overwrite  bool   `yaml:"-"`
	// SelectPackages restricts a run to the named packages; empty releases
	// everything.
	SelectPackages []string `yaml:"-"`

	Log LogConfig `yaml:"-"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
	CI     bool
}

// Options carries the values collected from CLI flags.
type Options struct {
	Token      string
	Repo       string
	FromRef    string
	ToRef      string
	TagPrefix  string
	PreID      string
	DryRun     bool
	Draft      bool
	Prerelease bool
	Overwrite  bool
	Packages   []string
}

// reserved commit types whose bump cannot be reconfigured, only their
// section title.
var reservedBumps = map[string]string{
	"feat":   BumpMinor,
	"fix":    BumpPatch,
	"revert": BumpPatch,
}

// DefaultTypes returns the release types used when the config file defines
// none. Order is changelog section priority.
func DefaultTypes() ReleaseTypes {
	return ReleaseTypes{
		{CommitType: "feat", Bump: BumpMinor, Section: "Features"},
		{CommitType: "fix", Bump: BumpPatch, Section: "Bug Fixes"},
		{CommitType: "perf", Bump: BumpPatch, Section: "Performance Improvements"},
		{CommitType: "refactor", Bump: BumpNone, Section: "Code Refactoring"},
		{CommitType: "revert", Bump: BumpPatch, Section: "Reverts"},
	}
}

// Load builds the run configuration: .env file, yaml config when present,
// then flag overrides, then validation.
func Load(path string, opts Options) (*Config, error) {
	// The .env file is optional
	_ = godotenv.Load(".env")

	cfg := &Config{
		ReleaseMessage: "chore(release): %s",
		TagPrefix:      "v",
		IncludeAuthors: true,
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file "+path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file "+path)
	}

	if err := cfg.mergeTypes(); err != nil {
		return nil, err
	}

	cfg.applyOptions(opts)

	cfg.Log = LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", ""),
		CI:     inCI(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeTypes folds user-configured types into the defaults, protecting the
// reserved types from bump changes.
func (c *Config) mergeTypes() error {
	merged := DefaultTypes()

	for _, t := range c.Types {
		if fixed, ok := reservedBumps[t.CommitType]; ok {
			if t.Bump != "" && t.Bump != fixed {
				return errors.ConfigInvalid(fmt.Sprintf(
					"%s is a reserved type, its bump cannot be changed", t.CommitType))
			}
			if t.Section == "" {
				return errors.ConfigInvalid("type section cannot be empty")
			}
			for i := range merged {
				if merged[i].CommitType == t.CommitType {
					merged[i].Section = t.Section
				}
			}
			continue
		}

		if t.Bump != BumpMinor && t.Bump != BumpPatch && t.Bump != BumpNone {
			return errors.ConfigInvalid(fmt.Sprintf(
				"type %s: only minor, patch and none bumps are allowed", t.CommitType))
		}
		if t.Section == "" {
			return errors.ConfigInvalid("type section cannot be empty")
		}

		replaced := false
		for i := range merged {
			if merged[i].CommitType == t.CommitType {
				merged[i] = t
				replaced = true
			}
		}
		if !replaced {
			merged = append(merged, t)
		}
	}

	c.Types = merged
	return nil
}

func (c *Config) applyOptions(opts Options) {
	c.Token = opts.Token
	if c.Token == "" {
		c.Token = getEnv("GH_TOKEN", "")
	}
	if opts.Repo != "" {
		parts := strings.SplitN(opts.Repo, "/", 2)
		if len(parts) == 2 {
			c.RepoOwner, c.RepoName = parts[0], parts[1]
		} else {
			c.RepoOwner = opts.Repo
		}
	}
	if opts.TagPrefix != "" {
		c.TagPrefix = opts.TagPrefix
	}
	c.FromRef = opts.FromRef
	c.ToRef = opts.ToRef
	c.PreID = opts.PreID
	c.DryRun = opts.DryRun
	c.Draft = opts.Draft
	c.Prerelease = opts.Prerelease
	c.Overwrite = opts.Overwrite
	c.SelectPackages = opts.Packages
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.DryRun && c.Token == "" {
		return errors.ConfigInvalid("missing host token: pass --token or set GH_TOKEN")
	}

	for _, f := range c.BumpFiles {
		switch f.Target {
		case "npm", "cargo", "pub", "android", "ios":
		default:
			return errors.ConfigInvalid(fmt.Sprintf("unsupported bump file target %q", f.Target))
		}
		if f.Path == "" {
			return errors.ConfigInvalid("bump file path cannot be empty")
		}
	}
	if _, err := c.Packages(); err != nil {
		return err
	}

	if (c.RepoOwner == "") != (c.RepoName == "") {
		return errors.ConfigInvalid("repo must be in owner/name form")
	}

	return nil
}

// Packages groups the bump files into release units. Files without
// package:true belong to the repository root; each package:true file joins
// the package named after its parent folder, released under a
// "<name>@<prefix>" tag line. The root is dropped when packages exist and
// no bump file is left for it.
func (c *Config) Packages() ([]Package, error) {
	root := Package{TagPrefix: c.TagPrefix}
	var pkgs []Package
	index := make(map[string]int)

	for _, f := range c.BumpFiles {
		if !f.Package {
			root.BumpFiles = append(root.BumpFiles, f)
			continue
		}

		segments := strings.Split(f.Path, "/")
		if len(segments) < 2 {
			return nil, errors.ConfigInvalid(fmt.Sprintf(
				"bump file %s cannot be a package, it has no parent folder", f.Path))
		}
		name := segments[len(segments)-2]
		if i, ok := index[name]; ok {
			pkgs[i].BumpFiles = append(pkgs[i].BumpFiles, f)
			continue
		}
		index[name] = len(pkgs)
		pkgs = append(pkgs, Package{
			Name:      name,
			Path:      strings.Join(segments[:len(segments)-1], "/"),
			TagPrefix: name + "@" + c.TagPrefix,
			BumpFiles: []BumpFile{f},
		})
	}

	if len(pkgs) == 0 {
		pkgs = []Package{root}
	} else if len(root.BumpFiles) > 0 {
		pkgs = append([]Package{root}, pkgs...)
	}

	if len(c.SelectPackages) > 0 {
		var selected []Package
		for _, p := range pkgs {
			for _, name := range c.SelectPackages {
				if p.Name == name {
					selected = append(selected, p)
					break
				}
			}
		}
		if len(selected) == 0 {
			return nil, errors.ConfigInvalid(
				"no packages match the selection, check the package names in the config file")
		}
		pkgs = selected
	}

	return pkgs, nil
}

// Repo returns the owner/name slug, empty when it must be inferred from the
// local repository remote.
func (c *Config) Repo() string {
	if c.RepoOwner == "" {
		return ""
	}
	return c.RepoOwner + "/" + c.RepoName
}

// inCI detects a CI environment by variable presence alone.
func inCI() bool {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "BUILD_ID"} {
		if _, ok := os.LookupEnv(key); ok {
			return true
		}
	}
	return false
}

// Helper functions to get environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
