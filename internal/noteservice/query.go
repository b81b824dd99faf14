package noteservice

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notely/internal/models"
)

// WelcomeTitle is the title of the note seeded for new owners.
const WelcomeTitle = "Welcome to AI Notes"

const welcomeContent = `This is your note-taking space. Here's what you can do:

- Create notes with a title, content and tags
- Mark important notes as favorites
- Search across titles, content and tags
- Generate a short summary of any note and save it as a new note

Start by creating your first note!`

const welcomeSummary = "A quick tour of the notes app: create, tag, favorite, search and summarize notes."

// ListByOwner returns every note owned by ownerID in storage order.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	notes, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("noteservice: list: %w", err)
	}
	return notes, nil
}

// ListFavorites returns the owner's favorite notes.
func (s *Service) ListFavorites(ctx context.Context, ownerID string) ([]models.Note, error) {
	notes, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filter(notes, func(n models.Note) bool { return n.IsFavorite }), nil
}

// Search returns the owner's notes whose title, content or any tag contains
// the trimmed query, ignoring case. A blank query matches everything.
func (s *Service) Search(ctx context.Context, ownerID, query string) ([]models.Note, error) {
	notes, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return Filter(notes, query), nil
}

// Filter keeps the notes matching query under the Search rules.
func Filter(notes []models.Note, query string) []models.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return notes
	}
	return filter(notes, func(n models.Note) bool { return matches(n, q) })
}

// ListByTag returns the owner's notes carrying tag (case-insensitive).
func (s *Service) ListByTag(ctx context.Context, ownerID, tag string) ([]models.Note, error) {
	notes, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	tag = strings.TrimSpace(tag)
	return filter(notes, func(n models.Note) bool {
		return slices.ContainsFunc(n.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
	}), nil
}

// Tags returns the owner's distinct tags with usage counts, sorted by name.
func (s *Service) Tags(ctx context.Context, ownerID string) ([]models.TagCount, error) {
	notes, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, n := range notes {
		for _, t := range n.Tags {
			counts[t]++
		}
	}
	out := make([]models.TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, models.TagCount{Tag: t, Count: c})
	}
	slices.SortFunc(out, func(a, b models.TagCount) int { return strings.Compare(a.Tag, b.Tag) })
	return out, nil
}

// SeedWelcome creates the welcome note the first time ownerID is seen by
// the store, provided the owner has no notes yet. The marker is persisted,
// so an owner who deleted every note is not seeded again after a restart.
// It returns nil when nothing was created or seeding is disabled.
func (s *Service) SeedWelcome(ctx context.Context, ownerID string) (*models.Note, error) {
	if !s.seedWelcome || ownerID == "" {
		return nil, nil
	}
	if _, ok := s.seeded.Load(ownerID); ok {
		return nil, nil
	}
	first, err := s.store.MarkSeeded(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("noteservice: seed: %w", err)
	}
	s.seeded.Store(ownerID, struct{}{})
	if !first {
		return nil, nil
	}
	existing, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("noteservice: seed: %w", err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	summary := welcomeSummary
	return s.create(ctx, ownerID, models.NoteInput{
		Title:   WelcomeTitle,
		Content: welcomeContent,
		Tags:    []string{"welcome", "tutorial"},
	}, func(n *models.Note) {
		n.IsFavorite = true
		n.Summary = &summary
	})
}

func matches(n models.Note, q string) bool {
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	return slices.ContainsFunc(n.Tags, func(t string) bool {
		return strings.Contains(strings.ToLower(t), q)
	})
}

func filter(notes []models.Note, keep func(models.Note) bool) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
