package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	meFn       func(ctx context.Context, subject string) (*domain.User, error)
	listFn     func(ctx context.Context) ([]*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Me(ctx context.Context, subject string) (*domain.User, error) {
	return s.meFn(ctx, subject)
}

func (s *stubAuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func withIdentity(req *http.Request, id domain.Identity) *http.Request {
	return req.WithContext(domain.WithIdentity(req.Context(), id))
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.FullName != "Ann" || in.Email != "ann@x.com" || in.Password != "secret1" || in.Role != "" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				Token:     "token123",
				ExpiresAt: time.Now().Add(time.Hour),
				User:      &domain.User{ID: "u1", FullName: in.FullName, Email: in.Email, PasswordHash: "$2a$secret", Role: domain.RoleUser},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/register", `{"fullName":"Ann","email":"ann@x.com","password":"secret1"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["accessToken"] != "token123" {
		t.Fatalf("expected token, got %v", resp["accessToken"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["id"] != "u1" || user["role"] != "user" || user["email"] != "ann@x.com" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if strings.Contains(rec.Body.String(), "$2a$") || strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_PassesRole(t *testing.T) {
	e := echo.New()
	var got string
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			got = in.Role
			return &ports.AuthResult{Token: "t", User: &domain.User{ID: "u1", Role: domain.RoleAdmin}}, nil
		},
	}
	c := e.NewContext(jsonRequest(http.MethodPost, "/register", `{"fullName":"A","email":"a@x.com","password":"secret1","role":"admin"}`), httptest.NewRecorder())

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got != "admin" {
		t.Fatalf("expected role to be forwarded, got %q", got)
	}
}

func TestAuthHandler_Register_ServiceErrorsPropagate(t *testing.T) {
	e := echo.New()
	for _, want := range []error{domain.ErrUserExists, domain.NewValidationError("email", "email is required")} {
		stub := &stubAuthService{
			registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
				return nil, want
			},
		}
		c := e.NewContext(jsonRequest(http.MethodPost, "/register", `{"fullName":"bob"}`), httptest.NewRecorder())

		if err := NewAuthHandler(stub).Register(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/register", "not-json"), rec)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			if in.Email != "ann@x.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{Token: "token123", User: &domain.User{ID: "u1", FullName: "Ann", Role: domain.RoleAdmin}}, nil
		},
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"ann@x.com","password":"secret1"}`), rec)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "token123" || resp.User.Role != "admin" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", `{"email":"ann@x.com","password":"bad"}`), httptest.NewRecorder())

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/login", "{"), rec)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		meFn: func(ctx context.Context, subject string) (*domain.User, error) {
			if subject != "u1" {
				t.Fatalf("unexpected subject %q", subject)
			}
			return &domain.User{ID: "u1", FullName: "Ann", Email: "ann@x.com", Role: domain.RoleUser}, nil
		},
	}
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/me", nil), domain.Identity{Subject: "u1", Role: domain.RoleUser})
	rec := httptest.NewRecorder()

	if err := NewAuthHandler(stub).Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User.FullName != "Ann" || resp.User.Email != "ann@x.com" || resp.User.Role != "user" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestAuthHandler_Me_UserGone(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		meFn: func(ctx context.Context, subject string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/me", nil), domain.Identity{Subject: "u1", Role: domain.RoleUser})

	if err := NewAuthHandler(stub).Me(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthHandler_Me_WithoutIdentity(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		meFn: func(ctx context.Context, subject string) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), httptest.NewRecorder())

	if err := NewAuthHandler(stub).Me(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_ListUsers(t *testing.T) {
	e := echo.New()
	stub := &stubAuthService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{{ID: "u1", Role: domain.RoleAdmin}, {ID: "u2", Role: domain.RoleUser}}, nil
		},
	}
	rec := httptest.NewRecorder()

	if err := NewAuthHandler(stub).ListUsers(e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp usersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Users) != 2 || resp.Users[1].ID != "u2" {
		t.Fatalf("unexpected users: %+v", resp.Users)
	}
}
