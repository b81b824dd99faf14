// Package noteservice implements the note store and the owner-scoped
// query layer on top of a storage.Provider.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/storage"
)

// Event kinds passed to an EventFunc.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// SummaryTag is appended to notes created from a generated summary.
const SummaryTag = "ai-summary"

// EventFunc is called after every successful mutation.
type EventFunc func(kind, ownerID, noteID string)

// Service owns the note collection. Mutations are serialised: each
// read-modify-write-persist sequence completes before the next starts.
// Nothing spans two calls, so a caller doing "get, compute, update" can
// still lose an update to a concurrent caller.
type Service struct {
	store storage.Provider

	clock   func() time.Time
	newID   func() string
	onEvent EventFunc

	mu sync.Mutex

	seedWelcome bool
	seeded      sync.Map // owner ids already checked by SeedWelcome
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithEvents registers a callback for note mutations.
func WithEvents(fn EventFunc) Option {
	return func(s *Service) { s.onEvent = fn }
}

// WithWelcomeNote enables SeedWelcome.
func WithWelcomeNote(enabled bool) Option {
	return func(s *Service) { s.seedWelcome = enabled }
}

// NewService creates a note service over the given provider.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new note for ownerID. Title and content must be non-blank.
func (s *Service) Create(ctx context.Context, ownerID string, in models.NoteInput) (*models.Note, error) {
	return s.create(ctx, ownerID, in, nil)
}

// create validates and inserts a note; decorate, if set, adjusts the note
// before it is persisted.
func (s *Service) create(ctx context.Context, ownerID string, in models.NoteInput, decorate func(n *models.Note)) (*models.Note, error) {
	if err := validateInput(ownerID, in); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := models.Note{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      slices.Clone(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if decorate != nil {
		decorate(&n)
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("noteservice: create: %w", err)
	}
	s.emit(EventCreated, n)
	return &n, nil
}

// GetByID returns the note and true, or nil and false when no such note exists.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Note, bool, error) {
	n, err := s.store.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("noteservice: get: %w", err)
	}
	return &n, true, nil
}

// Update merges the non-nil fields of patch into the note and refreshes
// updated_at. An empty Summary clears the attached summary.
func (s *Service) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(n *models.Note) {
		if patch.Title != nil {
			n.Title = *patch.Title
		}
		if patch.Content != nil {
			n.Content = *patch.Content
		}
		if patch.Tags != nil {
			n.Tags = slices.Clone(*patch.Tags)
			if n.Tags == nil {
				n.Tags = []string{}
			}
		}
		if patch.Summary != nil {
			if *patch.Summary == "" {
				n.Summary = nil
			} else {
				sum := *patch.Summary
				n.Summary = &sum
			}
		}
	})
}

// ToggleFavorite flips the favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*models.Note, error) {
	return s.mutate(ctx, id, func(n *models.Note) {
		n.IsFavorite = !n.IsFavorite
	})
}

// AttachSummary stores summary on the note.
func (s *Service) AttachSummary(ctx context.Context, id, summary string) (*models.Note, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, &apperr.ValidationError{Fields: map[string]string{"summary": "cannot be blank"}}
	}
	return s.Update(ctx, id, models.NotePatch{Summary: &summary})
}

// Delete removes the note. Deleting an unknown id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("noteservice: delete: %w", err)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("noteservice: delete: %w", err)
	}
	s.emit(EventDeleted, n)
	return nil
}

// SaveSummaryAsNote creates a new note for the source note's owner holding
// summary, tagged like the source plus SummaryTag.
func (s *Service) SaveSummaryAsNote(ctx context.Context, sourceID, summary string) (*models.Note, error) {
	src, ok, err := s.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	tags := slices.Clone(src.Tags)
	if !src.HasTag(SummaryTag) {
		tags = append(tags, SummaryTag)
	}
	return s.Create(ctx, src.OwnerID, models.NoteInput{
		Title:   fmt.Sprintf("AI Summary of %q", src.Title),
		Content: strings.TrimSpace(summary),
		Tags:    tags,
	})
}

// mutate runs fn against the current note and persists the result with a
// fresh updated_at. Persistence ignores caller cancellation.
func (s *Service) mutate(ctx context.Context, id string, fn func(n *models.Note)) (*models.Note, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("noteservice: load %s: %w", id, err)
	}
	fn(&n)
	n.UpdatedAt = s.after(n.UpdatedAt)
	if err := s.store.Replace(ctx, n); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("noteservice: save %s: %w", id, err)
	}
	s.emit(EventUpdated, n)
	return &n, nil
}

// now is truncated to microseconds so every backend stores it losslessly.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// after returns a timestamp strictly later than prev.
func (s *Service) after(prev time.Time) time.Time {
	t := s.now()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

func (s *Service) emit(kind string, n models.Note) {
	if s.onEvent != nil {
		s.onEvent(kind, n.OwnerID, n.ID)
	}
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}

func validateInput(ownerID string, in models.NoteInput) error {
	return toValidationError(validation.Errors{
		"owner_id": validation.Validate(ownerID, validation.By(notBlank)),
		"title":    validation.Validate(in.Title, validation.By(notBlank)),
		"content":  validation.Validate(in.Content, validation.By(notBlank)),
		"tags":     validation.Validate(in.Tags, validation.Each(validation.By(notBlank))),
	}.Filter())
}

func validatePatch(p models.NotePatch) error {
	errs := validation.Errors{}
	if p.Title != nil {
		errs["title"] = validation.Validate(*p.Title, validation.By(notBlank))
	}
	if p.Content != nil {
		errs["content"] = validation.Validate(*p.Content, validation.By(notBlank))
	}
	if p.Tags != nil {
		errs["tags"] = validation.Validate(*p.Tags, validation.Each(validation.By(notBlank)))
	}
	return toValidationError(errs.Filter())
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for k, e := range verrs {
		fields[k] = e.Error()
	}
	return &apperr.ValidationError{Fields: fields}
}
