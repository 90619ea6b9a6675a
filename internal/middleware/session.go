package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evnet/event-network-api/internal/model"
	"github.com/evnet/event-network-api/internal/utils"
)

// Machine-readable failure codes returned by the session guard.  Clients
// branch on the code, never the message: TOKEN_EXPIRED triggers a silent
// refresh-and-retry, everything else forces a re-login.
const (
	CodeNoToken          = "NO_TOKEN"
	CodeTokenBlacklisted = "TOKEN_BLACKLISTED"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeSessionTimeout   = "SESSION_TIMEOUT"
)

// Context keys populated by SessionGuard for downstream handlers.
const (
	CtxUser        = "user"         // model.User of the authenticated caller
	CtxAccessToken = "access_token" // raw bearer string (logout blacklists it)
)

// UserStore is the slice of the user repository the guard needs: resolving
// the token's subject and touching the activity timestamp.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	TouchActivity(ctx context.Context, id uint64, at time.Time) error
}

// RevocationStore answers whether an exact access-token string has been
// blacklisted before its natural expiry.
type RevocationStore interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// SessionGuard returns middleware that decides ALLOW or DENY for every
// guarded request.  The checks run in a fixed order: bearer extraction,
// revocation ledger, signature/expiry, subject resolution, idle window.
// On success the caller's activity timestamp is touched and the resolved
// identity is attached to the request context.
func SessionGuard(secret string, idleTimeout time.Duration, users UserStore, revoked RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return authError(c, "Not authorized to access this route", CodeNoToken)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			// Ledger first, then signature: a blacklisted token is dead even
			// while its signature and expiry are still valid.
			listed, err := revoked.IsBlacklisted(ctx, raw)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "blacklist lookup failed"})
			}
			if listed {
				return authError(c, "Token has been invalidated", CodeTokenBlacklisted)
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return authError(c, "Token has expired", CodeTokenExpired)
				}
				return authError(c, "Invalid token", CodeInvalidToken)
			}

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				return authError(c, "User not found", CodeUserNotFound)
			}

			now := time.Now().UTC()
			if now.Sub(u.LastActivity) > idleTimeout {
				return authError(c, "Session expired due to inactivity", CodeSessionTimeout)
			}

			// Lightweight timestamp touch; a failed write is logged but does
			// not reject an otherwise valid request.
			if err := users.TouchActivity(ctx, u.ID, now); err != nil {
				c.Logger().Warnf("session: touch activity for user %d failed: %v", u.ID, err)
			}
			u.LastActivity = now

			c.Set(CtxUser, u)
			c.Set(CtxAccessToken, raw)
			return next(c)
		}
	}
}

func authError(c echo.Context, msg, code string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": code})
}

// CurrentUser returns the identity stashed by SessionGuard.  The second
// return is false when the guard did not run on this route.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(CtxUser).(model.User)
	return u, ok
}
