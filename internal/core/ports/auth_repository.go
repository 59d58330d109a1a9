package ports

import (
	"context"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// UserRepository defines credential store persistence.
type UserRepository interface {
	// Create inserts user and returns the stored record with its ID set.
	// A uniqueness violation on email is reported as domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
