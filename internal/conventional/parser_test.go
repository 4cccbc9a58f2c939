package conventional

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudoki/donder-release/internal/models"
)

func parse(msg string) models.ParsedCommit {
	return Parse(models.RawCommit{Hash: "abc1234def", Message: msg})
}

func TestParseHeader(t *testing.T) {
	c := parse("feat(api): add pagination")
	require.Equal(t, models.TypeFeat, c.Type)
	require.Equal(t, "api", c.Scope)
	require.Equal(t, "add pagination", c.Description)
	require.False(t, c.Breaking)
	require.Empty(t, c.Body)
	require.Empty(t, c.Footers)
}

func TestParseHeaderRoundTrip(t *testing.T) {
	messages := []string{
		"feat: add x",
		"fix(parser): handle empty scope",
		"feat(api)!: drop v1 endpoints",
		"chore(deps): bump zerolog",
		"perf!: rewrite the hot path",
		"docs: document the retry budget",
	}
	for _, msg := range messages {
		c := parse(msg)
		require.Equal(t, msg, c.Header(), "header round trip for %q", msg)
	}
}

func TestParseBangMarksBreaking(t *testing.T) {
	c := parse("fix!: break z")
	require.Equal(t, models.TypeFix, c.Type)
	require.True(t, c.Breaking)
	require.True(t, c.Bang)
	require.Equal(t, "break z", c.Description)
}

func TestParseBreakingChangeFooter(t *testing.T) {
	c := parse("fix: tighten validation\n\nBREAKING CHANGE: empty payloads are rejected now")
	require.True(t, c.Breaking)
	require.False(t, c.Bang)
	require.Equal(t, "empty payloads are rejected now", c.BreakingNote())
	require.Empty(t, c.Body)
}

func TestParseBreakingChangeInsideBody(t *testing.T) {
	c := parse("feat: new config layout\n\nBREAKING CHANGE: the yaml schema changed\n\nmore details here")
	require.True(t, c.Breaking)
	require.Equal(t, "more details here", c.Body)
}

func TestParseBodyAndFooters(t *testing.T) {
	c := parse("feat(core): add z\n\nfirst paragraph\n\nsecond paragraph\n\nReviewed-by: alice\nRefs #42")
	require.Equal(t, "first paragraph\n\nsecond paragraph", c.Body)
	require.Equal(t, []models.Footer{
		{Key: "Reviewed-by", Value: "alice"},
		{Key: "Refs", Value: "42"},
	}, c.Footers)
	require.False(t, c.Breaking)
}

func TestParseCaseInsensitiveType(t *testing.T) {
	c := parse("Feat: shout quietly")
	require.Equal(t, models.TypeFeat, c.Type)

	c = parse("FIX(io): normalize case")
	require.Equal(t, models.TypeFix, c.Type)
	require.Equal(t, "io", c.Scope)
}

func TestParseScopeTrimmed(t *testing.T) {
	c := parse("feat( api ): trim me")
	require.Equal(t, "api", c.Scope)
}

func TestParseNonConformingNeverFails(t *testing.T) {
	messages := []string{
		"",
		"update readme",
		"Merge branch 'main' into develop",
		"feat:no space after colon",
		"just some words\n\nwith a body",
		"!!!",
	}
	for _, msg := range messages {
		c := parse(msg)
		require.Equal(t, models.TypeUnknown, c.Type, "message %q", msg)
	}
}

func TestParseNonConformingKeepsFullMessage(t *testing.T) {
	c := parse("update readme\n\nsome details")
	require.Equal(t, models.TypeUnknown, c.Type)
	require.Equal(t, "update readme\n\nsome details", c.Description)
}

func TestParseUnrecognizedTypeIsUnknown(t *testing.T) {
	c := parse("wip: half done")
	require.Equal(t, models.TypeUnknown, c.Type)
	require.Equal(t, "wip: half done", c.Description)
}

func TestParseUnrecognizedTypeBreakingStillCounts(t *testing.T) {
	c := parse("wip!: rework everything")
	require.Equal(t, models.TypeUnknown, c.Type)
	require.True(t, c.Breaking)

	c = parse("tweak: adjust buffers\n\nBREAKING CHANGE: buffers are no longer shared")
	require.Equal(t, models.TypeUnknown, c.Type)
	require.True(t, c.Breaking)
}

func TestParseAllPreservesOrder(t *testing.T) {
	raws := []models.RawCommit{
		{Hash: "a", Message: "feat: one"},
		{Hash: "b", Message: "fix: two"},
	}
	parsed := ParseAll(raws)
	require.Len(t, parsed, 2)
	require.Equal(t, "a", parsed[0].Raw.Hash)
	require.Equal(t, "b", parsed[1].Raw.Hash)
}
