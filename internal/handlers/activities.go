package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/activities"
	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/users"
)

// ActivitiesHandler records and serves educational activities.
type ActivitiesHandler struct {
	service *activities.Service
	logger  *slog.Logger
}

// NewActivitiesHandler creates an ActivitiesHandler.
func NewActivitiesHandler(log *slog.Logger, service *activities.Service) *ActivitiesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ActivitiesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "activities")),
	}
}

func (h *ActivitiesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/activities")
	group.POST("", h.CreateActivity)
	group.GET("", h.ListActivities)
	group.GET("/:id", h.GetActivity)
	group.PUT("/:id", h.UpdateActivity)
	group.DELETE("/:id", h.DeleteActivity)
}

// CreateActivity records a new activity. Teachers record under their own id.
func (h *ActivitiesHandler) CreateActivity(c echo.Context) error {
	identity, err := requireRole(c, users.RolePrincipal, users.RoleTeacher)
	if err != nil {
		return err
	}
	var req activities.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if identity.Role == users.RoleTeacher {
		req.TeacherID = identity.UserID
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	activity, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, activity)
}

// ListActivities lists activities filtered by student and/or class. Students
// are pinned to their own account; parents pass an explicit student_id since
// no parent-child relation is stored.
func (h *ActivitiesHandler) ListActivities(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	filter := activities.Filter{
		StudentID: strings.TrimSpace(c.QueryParam("student_id")),
		ClassID:   strings.TrimSpace(c.QueryParam("class_id")),
	}
	if identity.Role == users.RoleStudent {
		filter.StudentID = identity.UserID
	}
	items, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, activities.ListResponse{Items: items})
}

// GetActivity returns one activity.
func (h *ActivitiesHandler) GetActivity(c echo.Context) error {
	if _, err := auth.IdentityFromContext(c); err != nil {
		return err
	}
	activity, err := h.service.Get(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, activities.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "activity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, activity)
}

// UpdateActivity amends title, description, or score.
func (h *ActivitiesHandler) UpdateActivity(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal, users.RoleTeacher); err != nil {
		return err
	}
	var req activities.UpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	activity, err := h.service.Update(c.Request().Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		if errors.Is(err, activities.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "activity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, activity)
}

// DeleteActivity removes an activity.
func (h *ActivitiesHandler) DeleteActivity(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal, users.RoleTeacher); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		if errors.Is(err, activities.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "activity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
