package summary

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/starford/notely/internal/apperr"
)

// MinLength is the shortest trimmed input, in characters, that can be summarized.
const MinLength = 10

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// Extractive picks anchor sentences from the text itself. It never calls
// out and never fails for input of at least MinLength characters.
type Extractive struct{}

func (Extractive) Summarize(_ context.Context, text string) (string, error) {
	return Extract(text)
}

// Extract returns up to five sentences of text in their original order:
// all of them when there are three or fewer, first/middle/last for up to
// ten, and first/quarter/middle/three-quarter/last beyond that.
func Extract(text string) (string, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinLength {
		return "", apperr.ErrTooShort
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text, nil
	}

	var picked []string
	for _, i := range anchors(len(sentences)) {
		picked = append(picked, sentences[i])
	}
	return strings.Join(picked, ". ") + ".", nil
}

func splitSentences(text string) []string {
	var out []string
	for _, part := range sentenceBreak.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// anchors returns ascending, distinct sentence indices for n sentences.
func anchors(n int) []int {
	var idx []int
	switch {
	case n <= 3:
		idx = make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	case n <= 10:
		idx = []int{0, n / 2, n - 1}
	default:
		idx = []int{0, n / 4, n / 2, 3 * n / 4, n - 1}
	}

	out := idx[:1]
	for _, i := range idx[1:] {
		if i != out[len(out)-1] {
			out = append(out, i)
		}
	}
	return out
}
