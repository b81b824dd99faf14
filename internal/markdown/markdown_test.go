package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/notely/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\nfavorite: true\nsummary: Short.\n---\n# Hello\nBody text.\n")
	d := Parse(input)
	if d.Title != "Hello" {
		t.Errorf("title = %q, want %q", d.Title, "Hello")
	}
	if len(d.Tags) != 2 || d.Tags[0] != "go" || d.Tags[1] != "notes" {
		t.Errorf("tags = %v, want [go notes]", d.Tags)
	}
	if !d.Favorite || d.Summary != "Short." {
		t.Errorf("favorite = %v, summary = %q", d.Favorite, d.Summary)
	}
	if d.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	d := Parse([]byte("# Just a heading\nSome text.\n"))
	if d.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Title, "Just a heading")
	}
	if d.Favorite || d.Summary != "" {
		t.Errorf("unexpected metadata: %+v", d)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	d := Parse([]byte(input))
	// Invalid YAML falls back to treating everything as body.
	if d.Body != input {
		t.Errorf("body = %q, want whole input", d.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := "---\ntitle: x\nno closing fence"
	if d := Parse([]byte(input)); d.Body != input || d.Title != "" {
		t.Errorf("doc = %+v", d)
	}
}

func TestCollectTags_InlineWithoutHeaderTags(t *testing.T) {
	tags := collectTags(nil, "Some text #beta and #alpha, then #beta again.")
	if len(tags) != 2 || tags[0] != "beta" || tags[1] != "alpha" {
		t.Errorf("tags = %v, want [beta alpha]", tags)
	}
}

func TestCollectTags_HeaderTagsWin(t *testing.T) {
	header := []string{"alpha", " ", "alpha"}
	tags := collectTags(&header, "Some text #beta here.")
	if len(tags) != 1 || tags[0] != "alpha" {
		t.Errorf("tags = %v, want [alpha]", tags)
	}

	empty := []string{}
	if tags := collectTags(&empty, "Only #inline here."); len(tags) != 0 {
		t.Errorf("empty header tags = %v, want none", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(frontmatter{Title: "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(frontmatter{}, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestRenderParseRoundtrip(t *testing.T) {
	summary := "Two points."
	n := models.Note{
		Title:      "Plan",
		Content:    "First point.\nSecond point.",
		Tags:       []string{"work", "q3"},
		IsFavorite: true,
		Summary:    &summary,
		CreatedAt:  time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC),
	}
	out, err := Render(n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "---\ntitle: Plan\n") {
		t.Errorf("rendered = %q", out)
	}

	d := Parse(out)
	in := d.Input()
	if in.Title != n.Title || in.Content != n.Content {
		t.Errorf("input = %+v", in)
	}
	if len(in.Tags) != 2 || in.Tags[0] != "work" || in.Tags[1] != "q3" {
		t.Errorf("tags = %v", in.Tags)
	}
	if !d.Favorite || d.Summary != summary {
		t.Errorf("doc = %+v", d)
	}
}

func TestRenderParseRoundtrip_KeepsTagsWithHashtagsInBody(t *testing.T) {
	tests := []struct {
		name string
		tags []string
	}{
		{"with tags", []string{"work"}},
		{"no tags", []string{}},
		{"nil tags", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(models.Note{Title: "Standup", Content: "Meet at #room5 tomorrow.", Tags: tt.tags})
			if err != nil {
				t.Fatal(err)
			}
			got := Parse(out).Input().Tags
			if len(got) != len(tt.tags) {
				t.Fatalf("tags = %v, want %v", got, tt.tags)
			}
			for i := range got {
				if got[i] != tt.tags[i] {
					t.Errorf("tags = %v, want %v", got, tt.tags)
				}
			}
		})
	}
}
