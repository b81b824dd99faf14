// Package models defines the domain types for notely.
package models

import (
	"slices"
	"time"
)

// Note is a titled, tagged text document owned by a single user.
type Note struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"is_favorite"`
	Summary    *string   `json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share slices or pointers
// with the store's own records.
func (n Note) Clone() Note {
	out := n
	out.Tags = slices.Clone(n.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if n.Summary != nil {
		s := *n.Summary
		out.Summary = &s
	}
	return out
}

// HasTag reports whether tag is present (exact match).
func (n Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// NoteInput is the form data accepted when creating a note.
type NoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// NotePatch carries the fields of a partial update. Nil means "leave as is".
type NotePatch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Summary *string   `json:"summary,omitempty"`
}

// TagCount is one entry of an owner's tag listing.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// User is the identity handed to the service by the identity provider.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
