package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/users"
)

// UsersHandler manages user accounts over REST.
type UsersHandler struct {
	service *users.Service
	logger  *slog.Logger
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// NewUsersHandler creates a UsersHandler.
func NewUsersHandler(log *slog.Logger, service *users.Service) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{
		service: service,
		logger:  log.With(slog.String("handler", "users")),
	}
}

func (h *UsersHandler) Register(e *echo.Echo) {
	group := e.Group("/api/users")
	group.GET("/me", h.GetMe)
	group.POST("", h.CreateUser)
	group.GET("", h.ListUsers)
	group.GET("/:id", h.GetUser)
	group.PUT("/:id", h.UpdateUser)
	group.PUT("/:id/password", h.SetPassword)
	group.DELETE("/:id", h.DeleteUser)
}

// GetMe returns the caller's own profile.
func (h *UsersHandler) GetMe(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser creates a user. Principals may only create users in their own
// school; admins are unrestricted.
func (h *UsersHandler) CreateUser(c echo.Context) error {
	identity, err := requireRole(c, users.RolePrincipal)
	if err != nil {
		return err
	}
	var req users.CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if identity.Role == users.RolePrincipal {
		req.SchoolID = identity.SchoolID
	}
	user, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers lists users. Principals see their own school only.
func (h *UsersHandler) ListUsers(c echo.Context) error {
	identity, err := requireRole(c, users.RolePrincipal)
	if err != nil {
		return err
	}
	schoolID := strings.TrimSpace(c.QueryParam("school_id"))
	if identity.Role == users.RolePrincipal {
		schoolID = identity.SchoolID
	}
	items, err := h.service.List(c.Request().Context(), schoolID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users.ListResponse{Items: items})
}

// GetUser returns a user by id (self, principal, or admin).
func (h *UsersHandler) GetUser(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if targetID != identity.UserID &&
		identity.Role != users.RoleAdmin && identity.Role != users.RolePrincipal {
		return echo.NewHTTPError(http.StatusForbidden, "user access denied")
	}
	user, err := h.service.Get(c.Request().Context(), targetID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser updates profile fields, chat ids, and model preference.
func (h *UsersHandler) UpdateUser(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if targetID != identity.UserID &&
		identity.Role != users.RoleAdmin && identity.Role != users.RolePrincipal {
		return echo.NewHTTPError(http.StatusForbidden, "user access denied")
	}
	var req users.UpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	// Only admins may move a user between schools.
	if identity.Role != users.RoleAdmin {
		req.SchoolID = nil
	}
	user, err := h.service.Update(c.Request().Context(), targetID, req)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// SetPassword replaces a user's password (self, principal, or admin).
func (h *UsersHandler) SetPassword(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if targetID != identity.UserID &&
		identity.Role != users.RoleAdmin && identity.Role != users.RolePrincipal {
		return echo.NewHTTPError(http.StatusForbidden, "user access denied")
	}
	var req setPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.SetPassword(c.Request().Context(), targetID, req.Password); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser removes a user (principal or admin).
func (h *UsersHandler) DeleteUser(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	targetID := strings.TrimSpace(c.Param("id"))
	if targetID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}
	if err := h.service.Delete(c.Request().Context(), targetID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
