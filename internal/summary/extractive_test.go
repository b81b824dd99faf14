package summary

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/notely/internal/apperr"
)

func numbered(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence %d", i)
	}
	return strings.Join(parts, ". ") + "."
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single sentence", "Just one sentence here", "Just one sentence here."},
		{"three sentences kept whole", "Alpha one! Beta two? Gamma three.", "Alpha one. Beta two. Gamma three."},
		{"five sentences", numbered(5), "Sentence 0. Sentence 2. Sentence 4."},
		{"four sentences", numbered(4), "Sentence 0. Sentence 2. Sentence 3."},
		{"ten sentences", numbered(10), "Sentence 0. Sentence 5. Sentence 9."},
		{"twelve sentences", numbered(12), "Sentence 0. Sentence 3. Sentence 6. Sentence 9. Sentence 11."},
		{"punctuation runs and blanks", "First part!!! ... Second part?! Third.  ", "First part. Second part. Third."},
		{"no terminators", "   no punctuation at all   ", "no punctuation at all."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_TooShort(t *testing.T) {
	for _, text := range []string{"", "Hi", "   short   ", "123456789"} {
		_, err := Extract(text)
		assert.ErrorIs(t, err, apperr.ErrTooShort, "text %q", text)
	}
}

func TestExtract_OnlyPunctuation(t *testing.T) {
	got, err := Extract("..........!!")
	require.NoError(t, err)
	assert.Equal(t, "..........!!", got)
}

func TestExtractive_Provider(t *testing.T) {
	var p Provider = Extractive{}
	got, err := p.Summarize(context.Background(), numbered(5))
	require.NoError(t, err)
	assert.Equal(t, "Sentence 0. Sentence 2. Sentence 4.", got)
}

func TestAnchors(t *testing.T) {
	assert.Equal(t, []int{0}, anchors(1))
	assert.Equal(t, []int{0, 1, 2}, anchors(3))
	assert.Equal(t, []int{0, 2, 3}, anchors(4))
	assert.Equal(t, []int{0, 2, 5, 8, 10}, anchors(11))
}

func TestProperty_ExtractNeverFailsForLongInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[A-Za-z]{10}[A-Za-z .!?]{0,290}`).Draw(t, "text")
		got, err := Extract(text)
		if err != nil {
			t.Fatalf("Extract(%q): %v", text, err)
		}
		if strings.TrimSpace(got) == "" {
			t.Fatalf("Extract(%q) returned empty summary", text)
		}
		n := len(splitSentences(text))
		if n > 0 && strings.Count(got, ". ")+1 > 5 {
			t.Fatalf("more than five sentences picked: %q", got)
		}
	})
}
