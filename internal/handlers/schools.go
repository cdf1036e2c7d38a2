package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/messenger"
	"github.com/dabirhq/dabir/internal/schools"
	"github.com/dabirhq/dabir/internal/users"
)

// SchoolsHandler manages schools and their messenger bot credentials.
type SchoolsHandler struct {
	service *schools.Service
	logger  *slog.Logger
}

// NewSchoolsHandler creates a SchoolsHandler.
func NewSchoolsHandler(log *slog.Logger, service *schools.Service) *SchoolsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SchoolsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "schools")),
	}
}

func (h *SchoolsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/schools")
	group.POST("", h.CreateSchool)
	group.GET("", h.ListSchools)
	group.GET("/:id", h.GetSchool)
	group.PUT("/:id", h.UpdateSchool)
	group.DELETE("/:id", h.DeleteSchool)
	group.PUT("/:id/credentials", h.UpsertCredential)
	group.DELETE("/:id/credentials/:provider", h.DeleteCredential)
}

// CreateSchool creates a school (admin only).
func (h *SchoolsHandler) CreateSchool(c echo.Context) error {
	if _, err := requireRole(c, users.RoleAdmin); err != nil {
		return err
	}
	var req schools.CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	school, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, school)
}

// ListSchools lists all schools.
func (h *SchoolsHandler) ListSchools(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, schools.ListResponse{Items: items})
}

// GetSchool returns a school by id.
func (h *SchoolsHandler) GetSchool(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal, users.RoleTeacher); err != nil {
		return err
	}
	school, err := h.service.Get(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, schools.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "school not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, school)
}

// UpdateSchool updates name/city.
func (h *SchoolsHandler) UpdateSchool(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	var req schools.UpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	school, err := h.service.Update(c.Request().Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		if errors.Is(err, schools.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "school not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, school)
}

// DeleteSchool removes a school (admin only).
func (h *SchoolsHandler) DeleteSchool(c echo.Context) error {
	if _, err := requireRole(c, users.RoleAdmin); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		if errors.Is(err, schools.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "school not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// UpsertCredential stores the bot token for a messenger provider.
func (h *SchoolsHandler) UpsertCredential(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	schoolID := strings.TrimSpace(c.Param("id"))
	var req schools.UpsertCredentialRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.UpsertCredential(c.Request().Context(), schoolID, req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("bot credential updated",
		slog.String("school_id", schoolID),
		slog.String("provider", req.Provider),
	)
	return c.NoContent(http.StatusNoContent)
}

// DeleteCredential removes the bot token for a provider.
func (h *SchoolsHandler) DeleteCredential(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	provider := messenger.Provider(strings.TrimSpace(c.Param("provider")))
	if !provider.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown provider")
	}
	if err := h.service.DeleteCredential(c.Request().Context(), strings.TrimSpace(c.Param("id")), provider); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
