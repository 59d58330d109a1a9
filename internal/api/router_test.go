package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/notekeeper/notes-platform/internal/api/handler"
	"github.com/notekeeper/notes-platform/internal/api/proxy"
	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
	"github.com/notekeeper/notes-platform/internal/core/service"
	"github.com/notekeeper/notes-platform/internal/infrastructure/security"
)

// --- in-memory stores ---

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	seq   int
	clock time.Time
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrUserExists
		}
	}
	m.seq++
	m.clock = m.clock.Add(time.Second)
	stored := *u
	stored.ID = fmt.Sprintf("u%d", m.seq)
	stored.CreatedAt = m.clock
	m.byID[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *memUsers) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memNotes struct {
	mu    sync.Mutex
	notes map[string]*domain.Note
	seq   int
}

func newMemNotes() *memNotes { return &memNotes{notes: map[string]*domain.Note{}} }

func (m *memNotes) Create(_ context.Context, n *domain.Note) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *n
	stored.ID = fmt.Sprintf("n%d", m.seq)
	m.notes[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *memNotes) ListByUser(_ context.Context, userID string) ([]*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Note{}
	for _, n := range m.notes {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memNotes) Update(_ context.Context, id, userID string, p domain.NotePatch) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNoteNotFound
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = p.Tags
	}
	if p.IsPinned != nil {
		n.IsPinned = *p.IsPinned
	}
	out := *n
	return &out, nil
}

func (m *memNotes) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UserID != userID {
		return domain.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (ports.RateDecision, error) {
	return ports.RateDecision{Allowed: false, Limit: 1, RetryAfter: 30 * time.Second}, nil
}

// --- fixture ---

type platform struct {
	auth   *httptest.Server
	notes  *echo.Echo
	tokens *security.TokenService
}

func newPlatform(t *testing.T) *platform {
	t.Helper()

	tokens, err := security.NewTokenService("integration-secret", "notes-auth")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	hasher, err := security.NewBcryptHasher(security.MinBcryptCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	authSvc := service.NewAuthService(newMemUsers(), hasher, tokens, service.AuthOptions{
		TokenTTL:         time.Hour,
		AllowAdminSignup: true,
	}, zerolog.Nop())

	authServer := httptest.NewServer(NewAuthRouter(AuthServer{
		AuthService: authSvc,
		Verifier:    tokens,
		Logger:      zerolog.Nop(),
	}))
	t.Cleanup(authServer.Close)

	p, err := proxy.New(proxy.Config{AuthServiceURL: authServer.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}

	notes := NewNotesRouter(NotesServer{
		NoteService: service.NewNoteService(newMemNotes(), zerolog.Nop()),
		Verifier:    tokens,
		Proxy:       p,
		Logger:      zerolog.Nop(),
	})

	return &platform{auth: authServer, notes: notes, tokens: tokens}
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: non-JSON body %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, out
}

func register(t *testing.T, h http.Handler, path, email, role string) string {
	t.Helper()
	code, body := call(t, h, http.MethodPost, path, "", map[string]string{
		"fullName": "Test " + email, "email": email, "password": "secret1", "role": role,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %v", email, code, body)
	}
	token, _ := body["accessToken"].(string)
	if token == "" {
		t.Fatalf("register %s: missing token in %v", email, body)
	}
	return token
}

// --- tests ---

func TestAuthFlowThroughBackendProxy(t *testing.T) {
	p := newPlatform(t)
	ann := map[string]string{"fullName": "Ann", "email": "ann@x.com", "password": "secret1"}

	code, body := call(t, p.notes, http.MethodPost, "/create-account", "", ann)
	if code != http.StatusCreated {
		t.Fatalf("create-account: expected 201, got %d %v", code, body)
	}
	user := body["user"].(map[string]any)
	if user["role"] != "user" || user["email"] != "ann@x.com" {
		t.Fatalf("unexpected user %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password field leaked")
	}

	code, _ = call(t, p.notes, http.MethodPost, "/create-account", "", ann)
	if code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", code)
	}

	code, wrongPw := call(t, p.notes, http.MethodPost, "/login", "", map[string]string{"email": "ann@x.com", "password": "nope"})
	if code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", code)
	}
	code, unknown := call(t, p.notes, http.MethodPost, "/login", "", map[string]string{"email": "bob@x.com", "password": "secret1"})
	if code != http.StatusUnauthorized {
		t.Fatalf("unknown email: expected 401, got %d", code)
	}
	if wrongPw["error"] != unknown["error"] {
		t.Fatalf("login errors differ: %v vs %v", wrongPw, unknown)
	}

	code, body = call(t, p.notes, http.MethodPost, "/login", "", map[string]string{"email": "ann@x.com", "password": "secret1"})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", code, body)
	}
	token := body["accessToken"].(string)

	id, err := p.tokens.Verify(token)
	if err != nil || id.Role != domain.RoleUser {
		t.Fatalf("issued token does not verify: %+v %v", id, err)
	}

	code, body = call(t, p.notes, http.MethodGet, "/get-user", token, nil)
	if code != http.StatusOK {
		t.Fatalf("get-user: expected 200, got %d %v", code, body)
	}
	me := body["user"].(map[string]any)
	if me["id"] != id.Subject || me["email"] != "ann@x.com" {
		t.Fatalf("unexpected me %v", me)
	}
}

func TestValidationErrorsAreReported(t *testing.T) {
	p := newPlatform(t)

	code, body := call(t, p.notes, http.MethodPost, "/create-account", "", map[string]string{"email": "ann@x.com", "password": "secret1"})
	if code != http.StatusBadRequest || body["error"] != "fullName is required" {
		t.Fatalf("expected fullName error, got %d %v", code, body)
	}
}

func TestMultiByteOverlongPasswordIsRejected(t *testing.T) {
	p := newPlatform(t)

	code, body := call(t, p.notes, http.MethodPost, "/create-account", "", map[string]string{
		"fullName": "Ann", "email": "ann@x.com", "password": strings.Repeat("é", 40),
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", code, body)
	}
	if body["error"] != "password must be at most 72 bytes" {
		t.Fatalf("unexpected error %v", body)
	}
}

func TestGetUserRequiresToken(t *testing.T) {
	p := newPlatform(t)

	cases := map[string]string{
		"missing":  "",
		"garbage":  "not-a-token",
		"tampered": "a.b.c",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			code, _ := call(t, p.notes, http.MethodGet, "/get-user", token, nil)
			if code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", code)
			}
		})
	}
}

func TestAdminRoute(t *testing.T) {
	p := newPlatform(t)
	userToken := register(t, p.notes, "/create-account", "ann@x.com", "")
	adminToken := register(t, p.notes, "/create-account", "root@x.com", "admin")

	if code, _ := call(t, p.notes, http.MethodGet, "/users", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", code)
	}
	if code, _ := call(t, p.notes, http.MethodGet, "/users", userToken, nil); code != http.StatusForbidden {
		t.Fatalf("user token: expected 403, got %d", code)
	}

	code, body := call(t, p.notes, http.MethodGet, "/users", adminToken, nil)
	if code != http.StatusOK {
		t.Fatalf("admin token: expected 200, got %d %v", code, body)
	}
	users := body["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if _, leaked := u.(map[string]any)["password"]; leaked {
			t.Fatal("password field leaked")
		}
	}

	// The auth service enforces the same gate on its own route.
	if code, _ := call(t, p.auth.Config.Handler, http.MethodGet, "/users", userToken, nil); code != http.StatusForbidden {
		t.Fatalf("auth service: expected 403, got %d", code)
	}
}

func TestNotesRoutes(t *testing.T) {
	p := newPlatform(t)
	ann := register(t, p.notes, "/create-account", "ann@x.com", "")
	bob := register(t, p.notes, "/create-account", "bob@x.com", "")

	if code, _ := call(t, p.notes, http.MethodGet, "/get-all-notes", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, body := call(t, p.notes, http.MethodPost, "/add-note", ann, map[string]any{"title": "Groceries", "content": "milk"})
	if code != http.StatusCreated {
		t.Fatalf("add-note: expected 201, got %d %v", code, body)
	}
	noteID := body["note"].(map[string]any)["id"].(string)

	code, body = call(t, p.notes, http.MethodPut, "/update-note-pinned/"+noteID, ann, map[string]any{"isPinned": true})
	if code != http.StatusOK || body["note"].(map[string]any)["isPinned"] != true {
		t.Fatalf("pin: got %d %v", code, body)
	}

	if code, _ := call(t, p.notes, http.MethodDelete, "/delete-note/"+noteID, bob, nil); code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", code)
	}

	code, body = call(t, p.notes, http.MethodGet, "/get-all-notes", bob, nil)
	if code != http.StatusOK || len(body["notes"].([]any)) != 0 {
		t.Fatalf("bob sees foreign notes: %d %v", code, body)
	}

	if code, _ := call(t, p.notes, http.MethodDelete, "/delete-note/"+noteID, ann, nil); code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
}

func TestUpstreamDownIs502(t *testing.T) {
	p := newPlatform(t)
	p.auth.Close()

	code, body := call(t, p.notes, http.MethodPost, "/login", "", map[string]string{"email": "ann@x.com", "password": "secret1"})
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d %v", code, body)
	}
	if body["error"] != "upstream service unavailable" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	tokens, _ := security.NewTokenService("s", "notes-auth")
	e := NewAuthRouter(AuthServer{
		AuthService: service.NewAuthService(newMemUsers(), &plainHasher{}, tokens, service.AuthOptions{TokenTTL: time.Hour}, zerolog.Nop()),
		Verifier:    tokens,
		Limiter:     denyLimiter{},
		Logger:      zerolog.Nop(),
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestOperationalEndpoints(t *testing.T) {
	tokens, _ := security.NewTokenService("s", "notes-auth")
	e := NewAuthRouter(AuthServer{
		AuthService: service.NewAuthService(newMemUsers(), &plainHasher{}, tokens, service.AuthOptions{TokenTTL: time.Hour}, zerolog.Nop()),
		Verifier:    tokens,
		Health: map[string]handler.HealthCheck{
			"mongodb": func(context.Context) error { return errors.New("down") },
		},
		Logger: zerolog.Nop(),
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/health"); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := get("/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness: expected 503, got %d", rec.Code)
	}
	if rec := get("/metrics"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "notes_http_requests_total") {
		t.Fatalf("metrics: unexpected response %d", rec.Code)
	}
	if rec := get("/swagger/doc.json"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/register") {
		t.Fatalf("swagger: unexpected response %d", rec.Code)
	}
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(p, d string) bool       { return d == "h:"+p }
func (plainHasher) VerifyDummy(string)            {}
