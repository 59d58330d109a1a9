package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// Token failure kinds. All of them match domain.ErrUnauthenticated, so the
// HTTP layer renders a single 401 while logs keep the distinction.
var (
	ErrTokenMalformed        = fmt.Errorf("token malformed: %w", domain.ErrUnauthenticated)
	ErrTokenExpired          = fmt.Errorf("token expired: %w", domain.ErrUnauthenticated)
	ErrTokenInvalidSignature = fmt.Errorf("token signature invalid: %w", domain.ErrUnauthenticated)
)

// Reason returns a short label for a Verify error, suitable for logs and
// metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}

// Claims is the token payload: the registered claims plus a role snapshot
// taken at issuance.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens with one process-wide secret.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret, issuer string, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	s := &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

func (s *TokenService) Issue(subject string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject must not be empty")
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("token role %q is not a known role", role)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature first, so any alteration of header, payload
// or signature reports ErrTokenInvalidSignature rather than a decode error.
func (s *TokenService) Verify(raw string) (domain.Identity, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return domain.Identity{}, ErrTokenMalformed
	}

	sig, err := s.parser.DecodeSegment(parts[2])
	if err != nil {
		return domain.Identity{}, ErrTokenInvalidSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return domain.Identity{}, ErrTokenInvalidSignature
	}

	claims := &Claims{}
	_, err = s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.Identity{}, ErrTokenInvalidSignature
	default:
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return domain.Identity{}, ErrTokenMalformed
	}
	return domain.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}
