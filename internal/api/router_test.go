package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/petfarm/identity-api/internal/api/middleware"
	"github.com/petfarm/identity-api/internal/core/service"
	"github.com/petfarm/identity-api/internal/infrastructure/db/memory"
)

type testApp struct {
	e     *echo.Echo
	users *service.UserService
}

func newTestApp(t *testing.T, limiter *middleware.IPRateLimiter) testApp {
	t.Helper()
	hasher, err := service.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := service.NewTokenAuthority("router-test-secret", service.TokenConfig{IncludeRole: true, TTL: time.Hour})
	require.NoError(t, err)

	store := service.NewCredentialStore(memory.NewUserRepository(), hasher, zerolog.Nop())
	users := service.NewUserService(store, zerolog.Nop())
	auth := service.NewAuthService(store, tokens, nil, zerolog.Nop())

	e := NewRouter(Deps{
		AuthService:  auth,
		UserService:  users,
		LoginLimiter: limiter,
		Log:          zerolog.Nop(),
	})
	return testApp{e: e, users: users}
}

func (a testApp) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (a testApp) login(t *testing.T, email, password string) (token, id string) {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

// tamper swaps one character inside the signature segment.
func tamper(token string) string {
	b := []byte(token)
	i := len(b) - 5
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestRouter_RegisterLoginAndProfile(t *testing.T) {
	app := newTestApp(t, nil)

	rec, body := app.do(t, http.MethodPost, "/auth/register", `{"email":"Alice@Example.com","username":"alice","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec, body = app.do(t, http.MethodPost, "/auth/register", `{"email":"alice@example.com","username":"other","password":"secret123"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email or username already in use", body["error"])

	rec, _ = app.do(t, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = app.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	rec, body = app.do(t, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	token, id := app.login(t, "alice@example.com", "secret123")

	rec, body = app.do(t, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["id"])

	rec, _ = app.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/auth/me", "", tamper(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, http.MethodPost, "/auth/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// tokens are stateless and survive logout
	rec, _ = app.do(t, http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UserManagement(t *testing.T) {
	app := newTestApp(t, nil)
	created, err := app.users.EnsureAdmin(context.Background(), "root@example.com", "root", "rootpass")
	require.NoError(t, err)
	require.True(t, created)

	rec, _ := app.do(t, http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = app.do(t, http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	adminToken, adminID := app.login(t, "root@example.com", "rootpass")
	aliceToken, aliceID := app.login(t, "alice@example.com", "secret123")
	_, bobID := app.login(t, "bob@example.com", "secret123")

	rec, body := app.do(t, http.MethodGet, "/users?limit=2", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["total_pages"])

	rec, _ = app.do(t, http.MethodGet, "/users", "", aliceToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/users/"+bobID, "", aliceToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/users/"+aliceID, "", aliceToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/users/does-not-exist", "", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = app.do(t, http.MethodPut, "/users/"+aliceID, `{"username":"alicia","role":"admin"}`, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alicia", body["username"])
	assert.Equal(t, "user", body["role"])

	rec, _ = app.do(t, http.MethodPut, "/users/"+aliceID, `{"email":"bob@example.com"}`, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = app.do(t, http.MethodPut, "/users/me/password", `{"current_password":"secret123","new_password":"newsecret"}`, aliceToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	app.login(t, "alice@example.com", "newsecret")

	rec, _ = app.do(t, http.MethodDelete, "/users/"+bobID, "", aliceToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = app.do(t, http.MethodDelete, "/users/"+adminID, "", adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot perform this action on your own account", body["error"])

	rec, _ = app.do(t, http.MethodDelete, "/users/"+bobID, "", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = app.do(t, http.MethodDelete, "/users/"+bobID, "", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code, "deactivation is idempotent")

	rec, _ = app.do(t, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LoginRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app := newTestApp(t, middleware.NewIPRateLimiter(ctx, 0.001, 1))

	rec, _ := app.do(t, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"x"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_Ops(t *testing.T) {
	app := newTestApp(t, nil)

	rec, body := app.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = app.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "identity_http_requests_total")

	rec, _ = app.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
