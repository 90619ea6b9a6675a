package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CodeForbidden marks authorization failures, distinct from the 401 codes
// the session guard emits.
const CodeForbidden = "FORBIDDEN"

// RequireRole returns middleware enforcing that the authenticated user holds
// one of the given roles.  It assumes SessionGuard already resolved the
// identity; a missing identity is treated the same as a wrong role.
// Stateless, no side effects.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "User role is not authorized to access this route",
					"code":  CodeForbidden,
				})
			}
			return next(c)
		}
	}
}
