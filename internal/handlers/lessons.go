package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/lessons"
	"github.com/dabirhq/dabir/internal/users"
)

// LessonsHandler manages the lesson catalog of a school.
type LessonsHandler struct {
	service *lessons.Service
	logger  *slog.Logger
}

// NewLessonsHandler creates a LessonsHandler.
func NewLessonsHandler(log *slog.Logger, service *lessons.Service) *LessonsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LessonsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "lessons")),
	}
}

func (h *LessonsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/lessons")
	group.POST("", h.CreateLesson)
	group.GET("", h.ListLessons)
	group.GET("/:id", h.GetLesson)
	group.DELETE("/:id", h.DeleteLesson)
}

// CreateLesson adds a lesson to a school.
func (h *LessonsHandler) CreateLesson(c echo.Context) error {
	identity, err := requireRole(c, users.RolePrincipal)
	if err != nil {
		return err
	}
	var req lessons.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if identity.Role == users.RolePrincipal {
		req.SchoolID = identity.SchoolID
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lesson, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, lesson)
}

// ListLessons lists the lessons of a school.
func (h *LessonsHandler) ListLessons(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	schoolID := strings.TrimSpace(c.QueryParam("school_id"))
	if schoolID == "" {
		schoolID = identity.SchoolID
	}
	if schoolID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "school_id is required")
	}
	items, err := h.service.ListBySchool(c.Request().Context(), schoolID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, lessons.ListResponse{Items: items})
}

// GetLesson returns a lesson by id.
func (h *LessonsHandler) GetLesson(c echo.Context) error {
	if _, err := auth.IdentityFromContext(c); err != nil {
		return err
	}
	lesson, err := h.service.Get(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, lessons.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lesson not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, lesson)
}

// DeleteLesson removes a lesson.
func (h *LessonsHandler) DeleteLesson(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		if errors.Is(err, lessons.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lesson not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
