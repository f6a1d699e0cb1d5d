// Package router assembles the Echo instance: global middleware, the
// error handler and every route.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Env           string
	Service       handler.AuthService
	Authenticator middleware.Authenticator
	// RateLimit guards /api/auth; nil disables it.
	RateLimit   echo.MiddlewareFunc
	CORSOrigins []string
	Log         *zap.Logger
}

// New returns a ready to start Echo instance.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Recover(d.Log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, d.Env)
	RegisterAuth(e, handler.NewAuthHandler(d.Service), d.Authenticator, d.RateLimit)
	RegisterUsers(e, handler.NewUserHandler(d.Service), d.Authenticator)
	return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, env string) {
	e.GET("/health", handler.Health(env))
}

// RegisterAuth mounts /api/auth. Register, login and refresh are open;
// logout takes an optional bearer token; /me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalAuth(authn))
	g.GET("/me", a.Me, middleware.RequireAuth(authn))
}

// RegisterUsers mounts the self-service account routes.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, authn middleware.Authenticator) {
	g := e.Group("/api/users", middleware.RequireAuth(authn))
	g.PUT("/me", u.UpdateMe)
	g.PUT("/me/password", u.ChangePassword)
	g.DELETE("/me", u.DeleteMe)
}
