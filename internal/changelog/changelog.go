// Package changelog renders a parsed commit sequence into release notes.
package changelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudoki/donder-release/internal/config"
	"github.com/cloudoki/donder-release/internal/models"
)

const breakingSection = "Breaking Changes"

// Renderer groups and formats parsed commits into a markdown release body.
// Rendering is deterministic: the same commit sequence yields byte-identical
// output for a fixed Date.
type Renderer struct {
	// Types defines section titles and their priority order.
	Types config.ReleaseTypes
	// OriginURL is the https URL of the repository, used for compare and
	// commit links. Links are omitted when empty.
	OriginURL string
	// IncludeAuthors appends the commit author to each bullet.
	IncludeAuthors bool
	// Date is stamped under the version heading.
	Date time.Time
}

// New creates a renderer from the run configuration.
func New(cfg *config.Config, originURL string, date time.Time) Renderer {
	return Renderer{
		Types:          cfg.Types,
		OriginURL:      originURL,
		IncludeAuthors: cfg.IncludeAuthors,
		Date:           date,
	}
}

type section struct {
	title   string
	commits []models.ParsedCommit
}

// Render produces the release notes for a planned version. previousTag is
// empty for a first release.
func (r Renderer) Render(version, previousTag, tag string, commits []models.ParsedCommit) string {
	var b strings.Builder

	// Version heading, with a compare link when there is something to
	// compare against.
	if previousTag != "" && r.OriginURL != "" {
		fmt.Fprintf(&b, "## [%s](%s/compare/%s...%s)\n\n", version, r.OriginURL, previousTag, tag)
	} else {
		fmt.Fprintf(&b, "## %s\n\n", version)
	}
	fmt.Fprintf(&b, "###### _%s_\n", r.Date.Format("Jan 2, 2006"))

	for _, s := range r.sections(commits) {
		fmt.Fprintf(&b, "\n### %s\n\n", s.title)
		for _, c := range s.commits {
			b.WriteString(r.bullet(c))
		}
	}

	return b.String()
}

// sections groups commits by type: breaking changes first, then one section
// per configured release type in priority order. Unknown commit types are
// omitted.
func (r Renderer) sections(commits []models.ParsedCommit) []section {
	var out []section

	var breaking []models.ParsedCommit
	for _, c := range commits {
		if c.Breaking {
			breaking = append(breaking, c)
		}
	}
	if len(breaking) > 0 {
		out = append(out, section{title: breakingSection, commits: breaking})
	}

	for _, t := range r.Types {
		var group []models.ParsedCommit
		for _, c := range commits {
			if c.Breaking || c.Type == models.TypeUnknown {
				continue
			}
			if string(c.Type) == t.CommitType {
				group = append(group, c)
			}
		}
		if len(group) > 0 {
			out = append(out, section{title: t.Section, commits: group})
		}
	}

	return out
}

// bullet renders one commit line: bold scope prefix when present, the
// description, and a short-hash link suffix.
func (r Renderer) bullet(c models.ParsedCommit) string {
	var b strings.Builder
	b.WriteString("- ")
	if c.Scope != "" {
		fmt.Fprintf(&b, "**%s:** ", c.Scope)
	}

	desc := c.Description
	if c.Breaking && c.Type == models.TypeUnknown {
		// A breaking commit whose type fell outside the enum still matters
		// for the notes; its first line reads better than the whole message.
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
	}
	b.WriteString(desc)

	if c.Raw.Hash != "" {
		if r.OriginURL != "" {
			fmt.Fprintf(&b, " ([%s](%s/commit/%s))", c.Raw.ShortHash(), r.OriginURL, c.Raw.Hash)
		} else {
			fmt.Fprintf(&b, " (%s)", c.Raw.ShortHash())
		}
	}
	if r.IncludeAuthors && c.Raw.Author != "" {
		fmt.Fprintf(&b, " - %s", c.Raw.Author)
	}
	b.WriteString("\n")
	return b.String()
}
