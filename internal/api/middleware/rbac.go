package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/notekeeper/notes-platform/internal/api/metrics"
	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth; a request
// without an identity is unauthenticated, one with a role outside the
// allowed set is forbidden.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := domain.IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated").SetInternal(domain.ErrUnauthenticated)
			}
			if !id.HasRole(allowedRoles...) {
				metrics.ForbiddenTotal.WithLabelValues(c.Path()).Inc()
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden").SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
