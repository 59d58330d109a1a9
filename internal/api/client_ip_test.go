package api

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/notekeeper/notes-platform/internal/api/proxy"
	"github.com/notekeeper/notes-platform/internal/core/service"
	redisdb "github.com/notekeeper/notes-platform/internal/infrastructure/db/redis"
	"github.com/notekeeper/notes-platform/internal/infrastructure/security"
)

func newRedisLimiter(t *testing.T, limit int) *redisdb.RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisdb.NewRateLimiter(client, limit, time.Minute, "test")
}

func newLimitedAuthRouter(t *testing.T, limit int, trusted []*net.IPNet) *echo.Echo {
	t.Helper()
	tokens, err := security.NewTokenService("s", "notes-auth")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return NewAuthRouter(AuthServer{
		AuthService:    service.NewAuthService(newMemUsers(), plainHasher{}, tokens, service.AuthOptions{TokenTTL: time.Hour}, zerolog.Nop()),
		Verifier:       tokens,
		Limiter:        newRedisLimiter(t, limit),
		TrustedProxies: trusted,
		Logger:         zerolog.Nop(),
	})
}

// login posts a failing login from remoteAddr with the given X-Forwarded-For.
func login(h http.Handler, remoteAddr, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set(echo.HeaderXForwardedFor, xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	e := newLimitedAuthRouter(t, 2, nil)

	var codes []int
	for i := 0; i < 4; i++ {
		codes = append(codes, login(e, "203.0.113.9:4000", fmt.Sprintf("198.51.100.%d", i+1)))
	}

	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Fatalf("first two attempts should reach the handler, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests || codes[3] != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For must not reset the limit, got %v", codes)
	}
}

func TestAuthRateLimitTrustsConfiguredProxy(t *testing.T) {
	_, notesHop, _ := net.ParseCIDR("10.0.0.7/32")
	e := newLimitedAuthRouter(t, 1, []*net.IPNet{notesHop})

	if code := login(e, "10.0.0.7:5000", "198.51.100.1"); code != http.StatusUnauthorized {
		t.Fatalf("client A first attempt: expected 401, got %d", code)
	}
	if code := login(e, "10.0.0.7:5000", "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("client A second attempt: expected 429, got %d", code)
	}
	if code := login(e, "10.0.0.7:5000", "198.51.100.2"); code != http.StatusUnauthorized {
		t.Fatalf("client B behind the same proxy: expected 401, got %d", code)
	}

	// An untrusted peer cannot borrow the header.
	if code := login(e, "203.0.113.9:4000", "198.51.100.3"); code != http.StatusUnauthorized {
		t.Fatalf("untrusted peer first attempt: expected 401, got %d", code)
	}
	if code := login(e, "203.0.113.9:4000", "198.51.100.4"); code != http.StatusTooManyRequests {
		t.Fatalf("untrusted peer with new header: expected 429, got %d", code)
	}
}

func TestNotesRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(upstream.Close)

	p, err := proxy.New(proxy.Config{AuthServiceURL: upstream.URL})
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	tokens, _ := security.NewTokenService("s", "notes-auth")
	e := NewNotesRouter(NotesServer{
		NoteService: service.NewNoteService(newMemNotes(), zerolog.Nop()),
		Verifier:    tokens,
		Proxy:       p,
		Limiter:     newRedisLimiter(t, 1),
		Logger:      zerolog.Nop(),
	})

	if code := login(e, "203.0.113.9:4000", "198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", code)
	}
	if code := login(e, "203.0.113.9:4000", "198.51.100.2"); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt with new header: expected 429, got %d", code)
	}
}
