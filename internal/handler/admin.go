package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AdminHandler exposes the admin-only surface backing the dashboard.
type AdminHandler struct {
	Users UserStore
}

func NewAdminHandler(u UserStore) *AdminHandler { return &AdminHandler{Users: u} }

type adminUserPart struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListUsers returns every registered user's public fields.  Route is gated
// behind RequireRole(admin).
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]adminUserPart, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserPart{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
			LastActivity: u.LastActivity, CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}
