package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/notekeeper/notes-platform/internal/core/domain"
)

// identityFrom returns the identity attached by the Auth middleware. A
// missing identity means the route was registered without Auth, and the
// request is treated as unauthenticated rather than trusted.
func identityFrom(c echo.Context) (domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok || id.Subject == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
