package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/service"
)

func newAuthority(t *testing.T, secret string, ttl time.Duration) *service.TokenAuthority {
	t.Helper()
	a, err := service.NewTokenAuthority(secret, service.TokenConfig{IncludeRole: true, TTL: ttl})
	if err != nil {
		t.Fatalf("token authority: %v", err)
	}
	return a
}

func runAuth(t *testing.T, authn Authenticator, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(authn)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	authority := newAuthority(t, "secret", time.Hour)
	tok, err := authority.Issue(domain.Principal{ID: "u1", Email: "alice@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(authority)(func(c echo.Context) error {
		called = true
		p, ok := Principal(c)
		if !ok {
			t.Fatalf("principal not set")
		}
		if p.ID != "u1" || p.Email != "alice@example.com" || p.Role != domain.RoleAdmin {
			t.Fatalf("unexpected principal: %+v", p)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_LowercaseScheme(t *testing.T) {
	authority := newAuthority(t, "secret", time.Hour)
	tok, _ := authority.Issue(domain.Principal{ID: "u1", Role: domain.RoleUser})

	rec, called := runAuth(t, authority, "bearer "+tok.Value)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected lowercase scheme to be accepted, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	authority := newAuthority(t, "secret", time.Hour)
	other := newAuthority(t, "other-secret", time.Hour)
	forged, _ := other.Issue(domain.Principal{ID: "u1", Role: domain.RoleAdmin})

	cases := map[string]string{
		"missing header":        "",
		"wrong scheme":          "Token abc",
		"scheme only":           "Bearer ",
		"not a token":           "Bearer not-a-token",
		"signed with other key": "Bearer " + forged.Value,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, called := runAuth(t, authority, header)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

type expiredAuthn struct{}

func (expiredAuthn) Authenticate(string) (domain.Principal, error) {
	return domain.Principal{}, domain.ErrExpiredToken
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	rec, called := runAuth(t, expiredAuthn{}, "Bearer a.b.c")
	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTokenResult(t *testing.T) {
	cases := map[error]string{
		domain.ErrExpiredToken:     "expired",
		domain.ErrInvalidSignature: "invalid_signature",
		domain.ErrMalformedToken:   "malformed",
	}
	for err, want := range cases {
		if got := tokenResult(err); got != want {
			t.Errorf("tokenResult(%v) = %q, want %q", err, got, want)
		}
	}
}
