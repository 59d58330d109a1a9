package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/notekeeper/notes-platform/internal/api/metrics"
	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
	"github.com/notekeeper/notes-platform/internal/infrastructure/security"
)

// Auth verifies the bearer token and attaches the decoded identity to the
// request context. Every failure is a 401; the reason is only logged.
func Auth(verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return reject(c, log, "missing_header", domain.ErrUnauthenticated)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return reject(c, log, "bad_header", domain.ErrUnauthenticated)
			}

			id, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return reject(c, log, security.Reason(err), err)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func reject(c echo.Context, log zerolog.Logger, reason string, cause error) error {
	metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
	log.Debug().
		Str("reason", reason).
		Str("path", c.Path()).
		Msg("bearer token rejected")
	return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated").SetInternal(cause)
}
