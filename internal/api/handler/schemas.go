package handler

import (
	"time"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type registerRequest struct {
	FullName string `json:"fullName" example:"Ann Example"`
	Email    string `json:"email"    example:"ann@x.com"`
	Password string `json:"password" example:"secret1"`
	Role     string `json:"role,omitempty" example:"user"`
}

type loginRequest struct {
	Email    string `json:"email"    example:"ann@x.com"`
	Password string `json:"password" example:"secret1"`
}

// userResponse is the sanitized projection of domain.User. It has no
// password field by construction.
type userResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedOn time.Time `json:"createdOn"`
}

type authResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        userResponse `json:"user"`
	Message     string       `json:"message"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedOn: u.CreatedAt,
	}
}

// --- Notes ---

type addNoteRequest struct {
	Title   string   `json:"title"   validate:"required" example:"Groceries"`
	Content string   `json:"content" validate:"required" example:"milk, eggs"`
	Tags    []string `json:"tags"`
}

type editNoteRequest struct {
	Title    *string  `json:"title,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	IsPinned *bool    `json:"isPinned,omitempty"`
}

type updatePinnedRequest struct {
	IsPinned *bool `json:"isPinned" validate:"required"`
}

type noteResponse struct {
	Note *domain.Note `json:"note"`
}

type notesResponse struct {
	Notes []*domain.Note `json:"notes"`
}

type messageResponse struct {
	Message string `json:"message"`
}
