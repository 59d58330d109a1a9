package ports

import (
	"context"
	"time"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// RegisterInput carries a registration request. Field order is the order in
// which preconditions are checked.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
	Role     string `json:"role"`
}

// LoginInput carries a login request.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Me(ctx context.Context, subject string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
