package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/petfarm/identity-api/internal/api/handler"
	"github.com/petfarm/identity-api/internal/api/middleware"
	"github.com/petfarm/identity-api/internal/core/domain"
	"github.com/petfarm/identity-api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. LoginLimiter and
// Readiness may be nil.
type Deps struct {
	AuthService  ports.AuthService
	UserService  ports.UserService
	LoginLimiter *middleware.IPRateLimiter
	Readiness    map[string]handler.Pinger
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit("64K"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.AuthService, d.UserService)
	userHandler := handler.NewUserHandler(d.UserService)
	requireAuth := middleware.Auth(d.AuthService)

	// --- Auth routes ---
	loginMiddleware := []echo.MiddlewareFunc{}
	if d.LoginLimiter != nil {
		loginMiddleware = append(loginMiddleware, middleware.RateLimit(d.LoginLimiter))
	}
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, loginMiddleware...)
	auth.POST("/login", authHandler.Login, loginMiddleware...)
	auth.POST("/logout", authHandler.Logout, requireAuth)
	auth.GET("/me", authHandler.Me, requireAuth)

	// --- User routes ---
	users := e.Group("/users", requireAuth)
	users.PUT("/me/password", userHandler.ChangePassword)
	users.GET("", userHandler.List, middleware.RequireRole(domain.RoleAdmin))
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Deactivate, middleware.RequireRole(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})

	return e
}
