// Package markdown converts notes to and from Markdown documents with a
// YAML frontmatter header.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notely/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

type frontmatter struct {
	Title    string     `yaml:"title"`
	Tags     *[]string  `yaml:"tags"` // nil when the header has no tags key
	Favorite bool       `yaml:"favorite,omitempty"`
	Summary  string     `yaml:"summary,omitempty"`
	Created  *time.Time `yaml:"created,omitempty"`
}

// Document is a parsed Markdown note.
type Document struct {
	Title    string
	Tags     []string
	Favorite bool
	Summary  string
	Body     string
}

// Input returns the fields needed to create a note from d.
func (d *Document) Input() models.NoteInput {
	return models.NoteInput{
		Title:   d.Title,
		Content: strings.TrimSpace(d.Body),
		Tags:    d.Tags,
	}
}

// Parse reads a Markdown document. The title comes from the frontmatter or,
// failing that, the first H1 heading. A header with a tags key is the whole
// tag list; without one, tags are the inline #tags of the body. A missing or
// malformed header leaves the whole input as body.
func Parse(data []byte) *Document {
	fm, body := splitFrontmatter(data)
	return &Document{
		Title:    deriveTitle(fm, body),
		Tags:     collectTags(fm.Tags, body),
		Favorite: fm.Favorite,
		Summary:  strings.TrimSpace(fm.Summary),
		Body:     body,
	}
}

// Render writes n as a Markdown document that Parse reads back.
func Render(n models.Note) ([]byte, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	fm := frontmatter{
		Title:    n.Title,
		Tags:     &tags,
		Favorite: n.IsFavorite,
	}
	if n.Summary != nil {
		fm.Summary = *n.Summary
	}
	if !n.CreatedAt.IsZero() {
		created := n.CreatedAt.UTC()
		fm.Created = &created
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("markdown: encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(n.Content)
	if !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return frontmatter{}, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return frontmatter{}, string(data)
	}

	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	return fm, body
}

func collectTags(fmTags *[]string, body string) []string {
	if fmTags != nil {
		return dedupeTags(*fmTags)
	}
	var inline []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		inline = append(inline, m[1])
	}
	return dedupeTags(inline)
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func deriveTitle(fm frontmatter, body string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
