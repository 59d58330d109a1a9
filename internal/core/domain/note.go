package domain

import (
	"errors"
	"time"
)

var ErrNoteNotFound = errors.New("note not found")

// Note is a user-owned text record. Every lookup is scoped by UserID, so a
// note owned by someone else is indistinguishable from a missing one.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdOn"`
}

// NotePatch carries the optional fields of an edit. Nil means unchanged.
type NotePatch struct {
	Title    *string
	Content  *string
	Tags     []string
	IsPinned *bool
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.IsPinned == nil
}
