package api

import (
	"net"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/notekeeper/notes-platform/docs"
	"github.com/notekeeper/notes-platform/internal/api/handler"
	"github.com/notekeeper/notes-platform/internal/api/middleware"
	"github.com/notekeeper/notes-platform/internal/api/proxy"
	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
)

// AuthServer holds the collaborators of the auth service HTTP API.
type AuthServer struct {
	AuthService ports.AuthService
	Verifier    ports.TokenVerifier
	// Limiter guards register and login. Nil disables rate limiting.
	Limiter ports.RateLimiter
	// TrustedProxies are the hops (normally the notes API) whose
	// X-Forwarded-For is believed. Empty means the peer address is the client.
	TrustedProxies []*net.IPNet
	Health         map[string]handler.HealthCheck
	Logger         zerolog.Logger
}

// NotesServer holds the collaborators of the public notes API.
type NotesServer struct {
	NoteService ports.NoteService
	Verifier    ports.TokenVerifier
	Proxy       *proxy.AuthProxy
	// Limiter guards create-account and login. Nil disables rate limiting.
	Limiter ports.RateLimiter
	Health  map[string]handler.HealthCheck
	Logger  zerolog.Logger
}

// newEcho builds the Echo instance shared by both processes: global
// middleware, error handling, health probes, metrics and API docs.
func newEcho(log zerolog.Logger, health map[string]handler.HealthCheck, docsInstance string, ipExtractor echo.IPExtractor) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(log))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(health, log)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operational endpoints ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(echoSwagger.InstanceName(docsInstance)))

	return e
}

// authIPExtractor reads X-Forwarded-For only when the peer is one of
// trusted; otherwise the client is the peer itself.
func authIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func rateLimited(limiter ports.RateLimiter, log zerolog.Logger) []echo.MiddlewareFunc {
	if limiter == nil {
		return nil
	}
	return []echo.MiddlewareFunc{middleware.RateLimit(limiter, log)}
}

// NewAuthRouter returns the auth service API: register, login, me and the
// admin-only user listing.
func NewAuthRouter(s AuthServer) *echo.Echo {
	e := newEcho(s.Logger, s.Health, docs.AuthInstance, authIPExtractor(s.TrustedProxies))

	authHandler := handler.NewAuthHandler(s.AuthService)
	authn := middleware.Auth(s.Verifier, s.Logger)
	limited := rateLimited(s.Limiter, s.Logger)

	e.POST("/register", authHandler.Register, limited...)
	e.POST("/login", authHandler.Login, limited...)
	e.GET("/me", authHandler.Me, authn)
	e.GET("/users", authHandler.ListUsers, authn, middleware.RBAC(domain.RoleAdmin))

	return e
}

// NewNotesRouter returns the public notes API. Auth routes are forwarded to
// the auth service; protected routes re-verify the bearer token locally
// before forwarding or serving.
func NewNotesRouter(s NotesServer) *echo.Echo {
	// The notes API is the public edge: client headers are never trusted.
	e := newEcho(s.Logger, s.Health, docs.NotesInstance, echo.ExtractIPDirect())

	authn := middleware.Auth(s.Verifier, s.Logger)
	limited := rateLimited(s.Limiter, s.Logger)
	forward := s.Proxy.Handler()

	// --- Forwarded auth routes ---
	e.POST("/create-account", forward, limited...)
	e.POST("/login", forward, limited...)
	e.GET("/get-user", forward, authn)
	e.GET("/users", forward, authn, middleware.RBAC(domain.RoleAdmin))

	// --- Notes ---
	noteHandler := handler.NewNoteHandler(s.NoteService)
	e.POST("/add-note", noteHandler.Add, authn)
	e.GET("/get-all-notes", noteHandler.List, authn)
	e.PUT("/edit-note/:id", noteHandler.Edit, authn)
	e.PUT("/update-note-pinned/:id", noteHandler.UpdatePinned, authn)
	e.DELETE("/delete-note/:id", noteHandler.Delete, authn)

	return e
}
