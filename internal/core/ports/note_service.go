package ports

import (
	"context"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// AddNoteInput carries the fields of a new note.
type AddNoteInput struct {
	Title   string   `json:"title"   validate:"required"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags"`
}

// NoteService defines use-case operations for notes. The owner is always the
// identity's subject, never a value from the request body.
type NoteService interface {
	Add(ctx context.Context, owner domain.Identity, in AddNoteInput) (*domain.Note, error)
	List(ctx context.Context, owner domain.Identity) ([]*domain.Note, error)
	Edit(ctx context.Context, owner domain.Identity, id string, patch domain.NotePatch) (*domain.Note, error)
	Delete(ctx context.Context, owner domain.Identity, id string) error
}
