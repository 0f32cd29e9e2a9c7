package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/petfarm/identity-api/internal/api/metrics"
	"github.com/petfarm/identity-api/internal/core/domain"
)

const principalKey = "principal"

// Authenticator turns a bearer token into a principal.
type Authenticator interface {
	Authenticate(token string) (domain.Principal, error)
}

// Auth validates the bearer token and injects the principal into context.
// Every rejection is a 401; the cause is kept as the internal error.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("malformed").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			p, err := authn.Authenticate(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(tokenResult(err)).Inc()
				msg := "invalid token"
				if errors.Is(err, domain.ErrExpiredToken) {
					msg = "token expired"
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg).SetInternal(err)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
			SetPrincipal(c, p)
			return next(c)
		}
	}
}

// SetPrincipal stores the authenticated principal on the request context.
func SetPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// Principal returns the principal stored by Auth, if any.
func Principal(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	if !ok || p.ID == "" {
		return domain.Principal{}, false
	}
	return p, true
}

func tokenResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
