package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notely/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title" example:"Groceries" validate:"required"`
	Content string   `json:"content" example:"milk, eggs" validate:"required"`
	Tags    []string `json:"tags,omitempty" example:"home,errands"`
}

func (r CreateNoteRequest) input() models.NoteInput {
	return models.NoteInput{Title: r.Title, Content: r.Content, Tags: r.Tags}
}

// UpdateNoteRequest is the body for a partial update. Omitted fields are kept.
type UpdateNoteRequest struct {
	Title   *string   `json:"title,omitempty" example:"Groceries"`
	Content *string   `json:"content,omitempty" example:"milk, eggs, bread"`
	Tags    *[]string `json:"tags,omitempty" example:"home"`
	Summary *string   `json:"summary,omitempty"`
}

func (r UpdateNoteRequest) patch() models.NotePatch {
	return models.NotePatch{Title: r.Title, Content: r.Content, Tags: r.Tags, Summary: r.Summary}
}

// SummaryRequest carries a summary to attach or to save as a new note.
type SummaryRequest struct {
	Summary string `json:"summary" example:"A short synopsis." validate:"required"`
}

// Validate checks the request.
func (r SummaryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Summary, validation.Required),
	)
}

// SummarizeRequest is the body of POST /api/summarize.
type SummarizeRequest struct {
	Text string `json:"text" example:"Some long text to condense." validate:"required"`
}

// Validate checks the request.
func (r SummarizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// TagListResponse wraps an owner's tag counts.
type TagListResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}
