package ports

import (
	"time"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// PasswordHasher produces and checks salted adaptive password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A malformed digest
	// yields false.
	Verify(plaintext, digest string) bool
	// VerifyDummy burns the same CPU as a real Verify against a fixed digest.
	// Used when no stored digest exists so timing does not reveal it.
	VerifyDummy(plaintext string)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(subject string, role domain.Role, ttl time.Duration) (token string, expiresAt time.Time, err error)
}

// TokenVerifier checks a bearer token and decodes its identity.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type TokenService interface {
	TokenIssuer
	TokenVerifier
}
