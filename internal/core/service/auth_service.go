package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
	"github.com/notekeeper/notes-platform/internal/core/validation"
)

// AuthOptions holds the policy knobs of AuthService.
type AuthOptions struct {
	TokenTTL time.Duration
	// AllowAdminSignup lets an unauthenticated register request obtain the
	// admin role by sending role "admin". When false such requests fail with
	// domain.ErrForbidden.
	AllowAdminSignup bool
}

// AuthService implements registration, login and identity lookup.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	validate *validation.Validator
	opts     AuthOptions
	logger   zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, opts AuthOptions, logger zerolog.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		validate: validation.New(),
		opts:     opts,
		logger:   logger,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	// Fast path only. Concurrent registrations can both pass this check; the
	// unique index turns the loser's insert into ErrUserExists below.
	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	role := domain.ResolveRole(in.Role)
	if role == domain.RoleAdmin && !s.opts.AllowAdminSignup {
		return nil, domain.ErrForbidden
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &domain.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return s.issue(created)
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong
// password, and spends one bcrypt comparison in either case.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.VerifyDummy(in.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me returns the account behind a verified subject. A subject whose record
// was deleted after issuance yields ErrUserNotFound.
func (s *AuthService) Me(ctx context.Context, subject string) (*domain.User, error) {
	if subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return sanitize(user), nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, sanitize(u))
	}
	return out, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, ExpiresAt: expiresAt, User: sanitize(user)}, nil
}

func sanitize(u *domain.User) *domain.User {
	clone := *u
	clone.PasswordHash = ""
	return &clone
}
