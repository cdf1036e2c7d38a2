package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/classes"
	"github.com/dabirhq/dabir/internal/users"
)

// ClassesHandler manages classes, enrollment, and teacher assignments.
type ClassesHandler struct {
	service *classes.Service
	logger  *slog.Logger
}

// NewClassesHandler creates a ClassesHandler.
func NewClassesHandler(log *slog.Logger, service *classes.Service) *ClassesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ClassesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "classes")),
	}
}

func (h *ClassesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/classes")
	group.POST("", h.CreateClass)
	group.GET("", h.ListClasses)
	group.GET("/:id", h.GetClass)
	group.DELETE("/:id", h.DeleteClass)
	group.POST("/:id/students", h.EnrollStudent)
	group.DELETE("/:id/students/:student_id", h.RemoveStudent)
	group.POST("/:id/teachers", h.AssignTeacher)
	group.GET("/:id/teachers", h.ListAssignments)
	group.DELETE("/:id/teachers/:assignment_id", h.UnassignTeacher)
}

// CreateClass creates a class in a school.
func (h *ClassesHandler) CreateClass(c echo.Context) error {
	identity, err := requireRole(c, users.RolePrincipal)
	if err != nil {
		return err
	}
	var req classes.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if identity.Role == users.RolePrincipal {
		req.SchoolID = identity.SchoolID
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	class, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, class)
}

// ListClasses lists the classes of a school.
func (h *ClassesHandler) ListClasses(c echo.Context) error {
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
	return c.JSON(http.StatusOK, classes.ListResponse{Items: items})
}

// GetClass returns a class by id.
func (h *ClassesHandler) GetClass(c echo.Context) error {
	if _, err := auth.IdentityFromContext(c); err != nil {
		return err
	}
	class, err := h.service.Get(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, classes.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "class not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, class)
}

// DeleteClass removes a class.
func (h *ClassesHandler) DeleteClass(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		if errors.Is(err, classes.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "class not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// EnrollStudent adds a student to a class.
func (h *ClassesHandler) EnrollStudent(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal, users.RoleTeacher); err != nil {
		return err
	}
	var req classes.EnrollStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.EnrollStudent(c.Request().Context(), strings.TrimSpace(c.Param("id")), req.StudentID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveStudent drops a student from a class.
func (h *ClassesHandler) RemoveStudent(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal, users.RoleTeacher); err != nil {
		return err
	}
	if err := h.service.RemoveStudent(c.Request().Context(),
		strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("student_id"))); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignTeacher binds a teacher and lesson to a class.
func (h *ClassesHandler) AssignTeacher(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	var req classes.AssignTeacherRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	assignment, err := h.service.AssignTeacher(c.Request().Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, assignment)
}

// ListAssignments returns the teacher assignments of a class.
func (h *ClassesHandler) ListAssignments(c echo.Context) error {
	if _, err := auth.IdentityFromContext(c); err != nil {
		return err
	}
	items, err := h.service.ListAssignments(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, classes.AssignmentsResponse{Items: items})
}

// UnassignTeacher removes a teacher assignment.
func (h *ClassesHandler) UnassignTeacher(c echo.Context) error {
	if _, err := requireRole(c, users.RolePrincipal); err != nil {
		return err
	}
	if err := h.service.UnassignTeacher(c.Request().Context(), strings.TrimSpace(c.Param("assignment_id"))); err != nil {
		if errors.Is(err, classes.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "assignment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
