// Package storage defines the note persistence abstraction and its backends.
package storage

import (
	"context"

	"github.com/starford/notely/internal/models"
)

// Provider is the interface every note backend implements.
//
// Implementations return apperr.ErrNotFound from Get and Replace when the
// id is unknown. Remove of an unknown id is not an error. ListByOwner
// returns notes in a stable order (insertion order where the medium keeps
// one). Returned notes are copies owned by the caller.
type Provider interface {
	// Insert stores a new note. The id must not already exist.
	Insert(ctx context.Context, n models.Note) error
	// Get returns the note with the given id.
	Get(ctx context.Context, id string) (models.Note, error)
	// Replace overwrites an existing note.
	Replace(ctx context.Context, n models.Note) error
	// Remove deletes the note with the given id, if present.
	Remove(ctx context.Context, id string) error
	// ListByOwner returns every note owned by ownerID.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error)
	// MarkSeeded records that ownerID has been offered the welcome note.
	// It reports true only for the first call per owner, across restarts.
	MarkSeeded(ctx context.Context, ownerID string) (bool, error)
	// Close releases the backend's resources.
	Close() error
}
