package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/evnet/event-network-api/internal/handler"
	mw "github.com/evnet/event-network-api/internal/middleware"
	"github.com/evnet/event-network-api/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring poll this endpoint.
	e.GET("/api/health", handler.Health)
}

// RegisterAuth wires the full auth surface.  Unauthenticated operations
// (register, login, refresh) live directly under /api/auth; login
// additionally passes through the rate limiter before any credential check
// runs.  Guarded operations share the session guard, which enforces
// "valid, non-blacklisted, non-idle" and touches the activity timestamp
// before any handler executes.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, loginLimiter, guard echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login, loginLimiter)
	g.POST("/refresh", a.Refresh)

	// Guarded endpoints: every request revalidates the session.
	p := e.Group("/api/auth", guard)
	p.GET("/me", a.Me)
	p.GET("/verify", a.Verify)
	p.POST("/logout", a.Logout)
	p.PUT("/updatepassword", a.UpdatePassword)
}

// RegisterAdmin wires the admin dashboard routes: session guard first, then
// the role gate restricting access to admins.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, guard echo.MiddlewareFunc) {
	g := e.Group("/api/admin", guard, mw.RequireRole(model.RoleAdmin))
	g.GET("/users", h.ListUsers)
}
