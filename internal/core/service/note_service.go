package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
	"github.com/notekeeper/notes-platform/internal/core/validation"
)

type NoteService struct {
	repo     ports.NoteRepository
	validate *validation.Validator
	logger   zerolog.Logger
}

func NewNoteService(repo ports.NoteRepository, logger zerolog.Logger) *NoteService {
	return &NoteService{repo: repo, validate: validation.New(), logger: logger}
}

func (s *NoteService) Add(ctx context.Context, owner domain.Identity, in ports.AddNoteInput) (*domain.Note, error) {
	if owner.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	note, err := s.repo.Create(ctx, &domain.Note{
		UserID:    owner.Subject,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.Debug().Str("note_id", note.ID).Str("user_id", owner.Subject).Msg("note added")
	return note, nil
}

func (s *NoteService) List(ctx context.Context, owner domain.Identity) ([]*domain.Note, error) {
	if owner.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	notes, err := s.repo.ListByUser(ctx, owner.Subject)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return notes, nil
}

// Edit applies the non-nil fields of patch. An empty patch or a blank title
// is a validation error.
func (s *NoteService) Edit(ctx context.Context, owner domain.Identity, id string, patch domain.NotePatch) (*domain.Note, error) {
	if owner.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	if patch.Empty() {
		return nil, domain.NewValidationError("body", "no changes provided")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", "title must not be empty")
		}
		patch.Title = &title
	}
	if patch.Content != nil && *patch.Content == "" {
		return nil, domain.NewValidationError("content", "content must not be empty")
	}

	return s.repo.Update(ctx, id, owner.Subject, patch)
}

func (s *NoteService) Delete(ctx context.Context, owner domain.Identity, id string) error {
	if owner.Subject == "" {
		return domain.ErrUnauthenticated
	}
	return s.repo.Delete(ctx, id, owner.Subject)
}
