package handler

import (
	"context"  // context with cancellation for DB calls
	"errors"   // sentinel comparisons against repository errors
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // DB call timeouts and event timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/evnet/event-network-api/internal/config"
	"github.com/evnet/event-network-api/internal/middleware"
	"github.com/evnet/event-network-api/internal/model"
	"github.com/evnet/event-network-api/internal/queue"
	"github.com/evnet/event-network-api/internal/repository"
	queue_publisher "github.com/evnet/event-network-api/internal/service"
	"github.com/evnet/event-network-api/internal/utils"
)

// Machine-readable failure codes for the auth endpoints.  The guard's codes
// live in the middleware package; these cover the unauthenticated surface.
const (
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeIncorrectPassword   = "INCORRECT_PASSWORD"
)

// AuthHandler bundles dependencies for the auth endpoints.  Publish is the
// audit-event sink; it defaults to the RabbitMQ publisher and is swappable
// in tests.  Audit publishing is best-effort and never fails a request.
type AuthHandler struct {
	Cfg       config.Config
	Users     UserStore
	Tokens    RefreshTokenStore
	Blacklist BlacklistStore
	Publish   func(ctx context.Context, ev queue.AuthActivityEvent) error
}

func NewAuthHandler(cfg config.Config, u UserStore, t RefreshTokenStore, b BlacklistStore) *AuthHandler {
	return &AuthHandler{
		Cfg:       cfg,
		Users:     u,
		Tokens:    t,
		Blacklist: b,
		Publish:   queue_publisher.PublishAuthActivity,
	}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // user | admin, defaults to user
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type updatePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         userPart `json:"user"`
}

func publicUser(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// issuePair creates an access+refresh pair for a user and persists the
// refresh token's hash.  The raw refresh value leaves the server exactly
// once, in the response that carries it.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (utils.AccessToken, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return access, refresh, nil
}

func (h *AuthHandler) audit(c echo.Context, event string, u model.User) {
	if h.Publish == nil {
		return
	}
	_ = h.Publish(c.Request().Context(), queue.AuthActivityEvent{
		Event:  event,
		UserID: u.ID,
		Email:  u.Email,
		IP:     c.RealIP(),
		At:     time.Now().UTC().Format(time.RFC3339),
	})
}

// Register creates a user and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != model.RoleAdmin && role != model.RoleUser {
		role = model.RoleUser
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already registered", "code": CodeEmailTaken})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u := model.User{ID: uid, Name: req.Name, Email: req.Email, Role: role}
	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	h.audit(c, queue.EventRegistered, u)
	return c.JSON(http.StatusCreated, authResp{
		Token:        access.Token,
		RefreshToken: refresh.Raw, // raw back to client, only the hash is stored
		User:         publicUser(u),
	})
}

// Login verifies credentials and returns a new token pair.  Unknown email
// and wrong password produce the same response so account existence never
// leaks.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidCredentials(c)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return invalidCredentials(c)
	}

	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if err := h.Users.TouchActivity(ctx, u.ID, time.Now().UTC()); err != nil {
		c.Logger().Warnf("login: touch activity for user %d failed: %v", u.ID, err)
	}

	h.audit(c, queue.EventLoggedIn, u)
	return c.JSON(http.StatusOK, authResp{
		Token:        access.Token,
		RefreshToken: refresh.Raw,
		User:         publicUser(u),
	})
}

func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials", "code": CodeInvalidCredentials})
}

// Refresh exchanges a valid refresh token for a brand-new pair.  The old
// token is revoked the moment the new one is issued (single-use rotation),
// so replaying it fails with INVALID_REFRESH_TOKEN.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired refresh token", "code": CodeInvalidRefreshToken})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	// Issuing a replacement while the old token is still live would break
	// single-use rotation, so a failed revoke aborts the exchange.
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate refresh failed"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired refresh token", "code": CodeInvalidRefreshToken})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if err := h.Users.TouchActivity(ctx, u.ID, time.Now().UTC()); err != nil {
		c.Logger().Warnf("refresh: touch activity for user %d failed: %v", u.ID, err)
	}

	h.audit(c, queue.EventRefreshed, u)
	return c.JSON(http.StatusOK, echo.Map{
		"token":        access.Token,
		"refreshToken": refresh.Raw,
	})
}

// Logout blacklists the presented access token until its natural expiry and
// revokes every refresh token the user holds, so a stolen refresh token is
// useless afterwards.  Requires the session guard.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized to access this route", "code": middleware.CodeNoToken})
	}
	raw, _ := c.Get(middleware.CtxAccessToken).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The guard already verified the token; decode its expiry so the
	// blacklist entry dies exactly when the token would have.
	exp, err := utils.DecodeAccessExpiry(raw)
	if err != nil {
		exp = time.Now().UTC().Add(time.Duration(h.Cfg.AccessTTLMin) * time.Minute)
	}
	if err := h.Blacklist.Add(ctx, raw, u.ID, model.BlacklistReasonLogout, exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	h.audit(c, queue.EventLoggedOut, u)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated user's public fields.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized to access this route", "code": middleware.CodeNoToken})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(u)})
}

// Verify reports that the presented token passed the session guard.  No
// additional state; the guard did all the work.
func (h *AuthHandler) Verify(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized to access this route", "code": middleware.CodeNoToken})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "user": publicUser(u)})
}

// UpdatePassword verifies the current password, stores the new hash and
// returns a fresh access token.  Existing sessions and refresh tokens stay
// valid; whether a password change should force a global logout is a
// stakeholder decision that has deliberately not been made here.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized to access this route", "code": middleware.CodeNoToken})
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "currentPassword and newPassword are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Re-fetch for the stored hash; the context copy may be stale.
	cur, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !utils.VerifyPassword(cur.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Password is incorrect", "code": CodeIncorrectPassword})
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, cur.ID, cur.Email, cur.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	h.audit(c, queue.EventPasswordChange, cur)
	return c.JSON(http.StatusOK, echo.Map{"token": access.Token})
}
