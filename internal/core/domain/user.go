package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the coarse authorization tag carried by users and tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ResolveRole maps a caller-supplied role to a stored one. Only the exact
// string "admin" yields RoleAdmin; anything else, including "", is RoleUser.
func ResolveRole(requested string) Role {
	if requested == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("access forbidden")
)

// User models a registered account. PasswordHash never leaves the service
// boundary: it is excluded from JSON and from every response projection.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdOn"`
}
