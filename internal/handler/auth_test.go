package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evnet/event-network-api/internal/config"
	mw "github.com/evnet/event-network-api/internal/middleware"
	"github.com/evnet/event-network-api/internal/model"
	"github.com/evnet/event-network-api/internal/queue"
	"github.com/evnet/event-network-api/internal/utils"
)

// testServer wires the real middleware and handlers around the in-memory
// store, mirroring what cmd/server does in production.
type testServer struct {
	e      *echo.Echo
	store  *memStore
	events []queue.AuthActivityEvent
}

const testJWTSecret = "handler-test-secret"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      testJWTSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		SessionTimeout: 30 * time.Minute,
		BcryptCost:     4,
	}
	store := newMemStore()
	ts := &testServer{e: echo.New(), store: store}

	h := NewAuthHandler(cfg, store, store, store)
	h.Publish = func(_ context.Context, ev queue.AuthActivityEvent) error {
		ts.events = append(ts.events, ev)
		return nil
	}

	guard := mw.SessionGuard(cfg.JWTSecret, cfg.SessionTimeout, store, store)
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	g := ts.e.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login, passthrough)
	g.POST("/refresh", h.Refresh)

	p := ts.e.Group("/api/auth", guard)
	p.GET("/me", h.Me)
	p.GET("/verify", h.Verify)
	p.POST("/logout", h.Logout)
	p.PUT("/updatepassword", h.UpdatePassword)

	admin := ts.e.Group("/api/admin", guard, mw.RequireRole(model.RoleAdmin))
	admin.GET("/users", NewAdminHandler(store).ListUsers)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (ts *testServer) register(t *testing.T, name, email, password, role string) map[string]any {
	t.Helper()
	rec, body := ts.do(t, http.MethodPost, "/api/auth/register",
		echo.Map{"name": name, "email": email, "password": password, "role": role}, "")
	require.Equal(t, http.StatusCreated, rec.Code, "register: %s", rec.Body.String())
	return body
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	require.NotEmpty(t, reg["token"])
	require.NotEmpty(t, reg["refreshToken"])
	regUser := reg["user"].(map[string]any)
	assert.Equal(t, "a@x.com", regUser["email"])
	assert.Equal(t, "user", regUser["role"], "role defaults to user")

	rec, body := ts.do(t, http.MethodPost, "/api/auth/login",
		echo.Map{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	loginUser := body["user"].(map[string]any)
	assert.Equal(t, regUser["id"], loginUser["id"], "login subject matches the created record")

	rec, body = ts.do(t, http.MethodGet, "/api/auth/me", nil, body["token"].(string))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Ada", "a@x.com", "secret1", "")

	// Same address with different casing must collide.
	rec, body := ts.do(t, http.MethodPost, "/api/auth/register",
		echo.Map{"name": "Ada2", "email": "A@X.com", "password": "secret2"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeEmailTaken, body["code"])
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Ada", "a@x.com", "secret1", "")

	recWrongPass, bodyWrongPass := ts.do(t, http.MethodPost, "/api/auth/login",
		echo.Map{"email": "a@x.com", "password": "nope"}, "")
	recNoUser, bodyNoUser := ts.do(t, http.MethodPost, "/api/auth/login",
		echo.Map{"email": "ghost@x.com", "password": "nope"}, "")

	assert.Equal(t, http.StatusUnauthorized, recWrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, recNoUser.Code)
	assert.Equal(t, CodeInvalidCredentials, bodyWrongPass["code"])
	// Identical response shape: account existence must not leak.
	assert.Equal(t, bodyWrongPass, bodyNoUser)
}

func TestRefreshRotation(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	oldRefresh := reg["refreshToken"].(string)

	rec, body := ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": oldRefresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body["token"])
	newRefresh := body["refreshToken"].(string)
	assert.NotEqual(t, oldRefresh, newRefresh)

	// The rotated-out token is single-use: replaying it fails.
	rec, body = ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": oldRefresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidRefreshToken, body["code"])

	// The replacement still works.
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": newRefresh}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshGarbageToken(t *testing.T) {
	ts := newTestServer(t)
	rec, body := ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": "deadbeef"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidRefreshToken, body["code"])
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	token := reg["token"].(string)
	refresh := reg["refreshToken"].(string)

	rec, _ := ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token's signature and expiry are still valid; only the ledger
	// rejects it now.
	rec, body := ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, mw.CodeTokenBlacklisted, body["code"])

	// Logout also kills the refresh token.
	rec, body = ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidRefreshToken, body["code"])
}

func TestExpiredBlacklistEntryDoesNotOutliveToken(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	uid := uint64(reg["user"].(map[string]any)["id"].(float64))

	// A token that has itself expired, with a ledger entry whose expiry has
	// also passed (the entry carries the token's own exp claim).
	at, err := utils.NewAccessToken(testJWTSecret, uid, "a@x.com", "user", -1)
	require.NoError(t, err)
	require.NoError(t, ts.store.Add(context.Background(), at.Token, uid,
		model.BlacklistReasonLogout, time.Now().UTC().Add(-time.Minute)))

	listed, err := ts.store.IsBlacklisted(context.Background(), at.Token)
	require.NoError(t, err)
	assert.False(t, listed, "an entry past its expiry no longer blacklists anything")

	// The guard falls through the ledger to ordinary expiry verification.
	rec, body := ts.do(t, http.MethodGet, "/api/auth/me", nil, at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, mw.CodeTokenExpired, body["code"])
}

func TestRefreshAbortsWhenRevokeFails(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	refresh := reg["refreshToken"].(string)

	ts.store.revokeErr = errors.New("lock wait timeout")
	rec, _ := ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code,
		"no replacement may be issued while the old token is still live")

	// The failed exchange consumed nothing; once the store recovers the
	// same token rotates normally.
	ts.store.revokeErr = nil
	rec, _ = ts.do(t, http.MethodPost, "/api/auth/refresh",
		echo.Map{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionIdleTimeout(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	token := reg["token"].(string)
	uid := uint64(reg["user"].(map[string]any)["id"].(float64))

	// Simulate 45 idle minutes against the 30-minute window.
	ts.store.setLastActivity(uid, time.Now().UTC().Add(-45*time.Minute))

	rec, body := ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, mw.CodeSessionTimeout, body["code"])
}

func TestVerify(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")

	rec, body := ts.do(t, http.MethodGet, "/api/auth/verify", nil, reg["token"].(string))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])
}

func TestUpdatePassword(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	token := reg["token"].(string)

	rec, body := ts.do(t, http.MethodPut, "/api/auth/updatepassword",
		echo.Map{"currentPassword": "wrong", "newPassword": "secret2"}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeIncorrectPassword, body["code"])

	rec, body = ts.do(t, http.MethodPut, "/api/auth/updatepassword",
		echo.Map{"currentPassword": "secret1", "newPassword": "secret2"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login",
		echo.Map{"email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old password no longer works")

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/login",
		echo.Map{"email": "a@x.com", "password": "secret2"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleGate(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.register(t, "Root", "root@x.com", "secret1", "admin")
	user := ts.register(t, "Ada", "a@x.com", "secret1", "")

	rec, body := ts.do(t, http.MethodGet, "/api/admin/users", nil, admin["token"].(string))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 2)

	rec, body = ts.do(t, http.MethodGet, "/api/admin/users", nil, user["token"].(string))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, mw.CodeForbidden, body["code"])
}

func TestAuditEventsPublished(t *testing.T) {
	ts := newTestServer(t)
	reg := ts.register(t, "Ada", "a@x.com", "secret1", "")
	_, _ = ts.do(t, http.MethodPost, "/api/auth/logout", nil, reg["token"].(string))

	require.Len(t, ts.events, 2)
	assert.Equal(t, queue.EventRegistered, ts.events[0].Event)
	assert.Equal(t, queue.EventLoggedOut, ts.events[1].Event)
	assert.Equal(t, "a@x.com", ts.events[0].Email)
}
