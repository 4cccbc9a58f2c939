// Package conventional parses commit messages following the conventional
// commit grammar. Parsing is total: malformed input never fails, it degrades
// to models.TypeUnknown.
package conventional

import (
	"regexp"
	"strings"

	"github.com/cloudoki/donder-release/internal/models"
)

var (
	// type(scope)!: description
	headerRe = regexp.MustCompile(`^([A-Za-z]+)(\(([^)]*)\))?(!)?: (.+)$`)

	// key: value or key #value trailer lines
	footerRe = regexp.MustCompile(`^(BREAKING CHANGE|BREAKING-CHANGE|[A-Za-z][A-Za-z0-9-]*)(: | #)(.+)$`)
)

// knownTypes indexes the closed commit type enum by its lower-case token.
var knownTypes = func() map[string]models.CommitType {
	m := make(map[string]models.CommitType, len(models.KnownTypes))
	for _, t := range models.KnownTypes {
		m[string(t)] = t
	}
	return m
}()

// Parse converts one raw commit message into exactly one ParsedCommit.
func Parse(raw models.RawCommit) models.ParsedCommit {
	message := strings.ReplaceAll(raw.Message, "\r\n", "\n")
	lines := strings.Split(message, "\n")

	commit := models.ParsedCommit{
		Type: models.TypeUnknown,
		Raw:  raw,
	}

	m := headerRe.FindStringSubmatch(lines[0])
	if m == nil {
		// Not even the header shape matches: retain the whole message as
		// the description. A breaking-change footer still counts.
		commit.Description = strings.TrimRight(message, "\n")
		commit.Footers, commit.Body = trailers(lines[1:])
		commit.Breaking = hasBreakingFooter(commit.Footers)
		return commit
	}

	if t, ok := knownTypes[strings.ToLower(m[1])]; ok {
		commit.Type = t
	}
	commit.Scope = strings.TrimSpace(m[3])
	commit.Bang = m[4] == "!"
	commit.Description = m[5]
	commit.Footers, commit.Body = trailers(lines[1:])
	commit.Breaking = commit.Bang || hasBreakingFooter(commit.Footers)

	if commit.Type == models.TypeUnknown {
		// Header shape matched but the type token is not in the enum: the
		// commit is non-conforming, keep the full message as description.
		commit.Description = strings.TrimRight(message, "\n")
	}

	return commit
}

// ParseAll parses a commit sequence, preserving order.
func ParseAll(raws []models.RawCommit) []models.ParsedCommit {
	parsed := make([]models.ParsedCommit, len(raws))
	for i, raw := range raws {
		parsed[i] = Parse(raw)
	}
	return parsed
}

// trailers splits the lines after the header into body paragraphs and a
// trailing footer block. Footers are the last paragraph when every one of
// its lines matches the trailer grammar; a BREAKING CHANGE line anywhere in
// the body is promoted to a footer as well.
func trailers(rest []string) ([]models.Footer, string) {
	paragraphs := splitParagraphs(rest)
	if len(paragraphs) == 0 {
		return nil, ""
	}

	var footers []models.Footer
	bodyEnd := len(paragraphs)

	last := paragraphs[len(paragraphs)-1]
	if all(last, func(line string) bool { return footerRe.MatchString(line) }) {
		for _, line := range last {
			m := footerRe.FindStringSubmatch(line)
			footers = append(footers, models.Footer{Key: m[1], Value: m[3]})
		}
		bodyEnd--
	}

	var bodyParts []string
	for _, p := range paragraphs[:bodyEnd] {
		for _, line := range p {
			if m := footerRe.FindStringSubmatch(line); m != nil &&
				(m[1] == "BREAKING CHANGE" || m[1] == "BREAKING-CHANGE") {
				footers = append(footers, models.Footer{Key: m[1], Value: m[3]})
				continue
			}
			bodyParts = append(bodyParts, line)
		}
		bodyParts = append(bodyParts, "")
	}

	body := strings.TrimSpace(strings.Join(bodyParts, "\n"))
	return footers, body
}

func splitParagraphs(lines []string) [][]string {
	var paragraphs [][]string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}
	return paragraphs
}

func all(lines []string, match func(string) bool) bool {
	for _, line := range lines {
		if !match(line) {
			return false
		}
	}
	return true
}

func hasBreakingFooter(footers []models.Footer) bool {
	for _, f := range footers {
		if f.Key == "BREAKING CHANGE" || f.Key == "BREAKING-CHANGE" {
			return true
		}
	}
	return false
}
