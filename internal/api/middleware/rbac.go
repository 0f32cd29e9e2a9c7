package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/petfarm/identity-api/internal/core/domain"
)

// RequireRole lets the request through only when the principal holds role.
// It must run after Auth.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			if !domain.Authorize(p, "", role) {
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
			return next(c)
		}
	}
}
