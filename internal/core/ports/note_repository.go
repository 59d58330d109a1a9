package ports

import (
	"context"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// NoteRepository persists notes. Every method except Create is scoped by
// owner; a note belonging to another user reports domain.ErrNoteNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) (*domain.Note, error)
	// ListByUser returns the owner's notes, pinned first then newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Note, error)
	Update(ctx context.Context, id, userID string, patch domain.NotePatch) (*domain.Note, error)
	Delete(ctx context.Context, id, userID string) error
}
