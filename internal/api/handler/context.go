package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/petfarm/identity-api/internal/api/middleware"
	"github.com/petfarm/identity-api/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware and
// fails fast with 401 when the route was mounted without it.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.Principal(c)
	if !ok {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// bindAndValidate decodes the body into req and runs the struct validator.
// Malformed JSON is a 400; a well-formed body that breaks a rule is a 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
