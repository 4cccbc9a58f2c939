package models

import (
	"strings"
	"time"
)

// CommitType classifies a conventional commit header.
type CommitType string

const (
	TypeFeat     CommitType = "feat"
	TypeFix      CommitType = "fix"
	TypePerf     CommitType = "perf"
	TypeRefactor CommitType = "refactor"
	TypeRevert   CommitType = "revert"
	TypeDocs     CommitType = "docs"
	TypeStyle    CommitType = "style"
	TypeTest     CommitType = "test"
	TypeBuild    CommitType = "build"
	TypeCI       CommitType = "ci"
	TypeChore    CommitType = "chore"

	// TypeUnknown is the fallback for messages that do not conform to the
	// conventional commit grammar.
	TypeUnknown CommitType = "unknown"
)

// KnownTypes lists every commit type the parser recognizes, in no
// particular order. TypeUnknown is deliberately absent.
var KnownTypes = []CommitType{
	TypeFeat, TypeFix, TypePerf, TypeRefactor, TypeRevert, TypeDocs,
	TypeStyle, TypeTest, TypeBuild, TypeCI, TypeChore,
}

// RawCommit is a commit exactly as it came out of the repository history.
type RawCommit struct {
	Hash       string
	Message    string
	Author     string
	AuthoredAt time.Time
}

// ShortHash returns the abbreviated commit hash used in changelog links.
func (c RawCommit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Footer is a single trailing key/value line of a commit message,
// e.g. "Reviewed-by: someone" or "Refs #42".
type Footer struct {
	Key   string
	Value string
}

// ParsedCommit is the structured form of a RawCommit message.
type ParsedCommit struct {
	Type        CommitType
	Scope       string
	Description string
	Body        string
	Footers     []Footer
	// Breaking is true when the header carries a "!" marker or a
	// BREAKING CHANGE footer is present.
	Breaking bool
	// Bang records specifically that the "!" marker was in the header, so
	// the header can be re-rendered byte for byte.
	Bang bool
	Raw  RawCommit
}

// Header re-renders the conventional commit header line from the parsed
// fields. For a conforming message this reproduces the original first line.
func (c ParsedCommit) Header() string {
	var b strings.Builder
	b.WriteString(string(c.Type))
	if c.Scope != "" {
		b.WriteString("(")
		b.WriteString(c.Scope)
		b.WriteString(")")
	}
	if c.Bang {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(c.Description)
	return b.String()
}

// BreakingNote returns the text of a BREAKING CHANGE footer if one is
// present, otherwise the commit description for "!"-marked commits, otherwise
// an empty string.
func (c ParsedCommit) BreakingNote() string {
	for _, f := range c.Footers {
		if f.Key == "BREAKING CHANGE" || f.Key == "BREAKING-CHANGE" {
			return f.Value
		}
	}
	if c.Breaking {
		return c.Description
	}
	return ""
}
