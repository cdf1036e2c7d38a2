package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/users"
)

// AuthHandler issues and refreshes JWTs.
type AuthHandler struct {
	users     *users.Service
	secret    string
	expiresIn time.Duration
	logger    *slog.Logger
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      users.User `json:"user,omitempty"`
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(log *slog.Logger, service *users.Service, jwtSecret string, expiresIn time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &AuthHandler{
		users:     service,
		secret:    jwtSecret,
		expiresIn: expiresIn,
		logger:    log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	group := e.Group("/api/auth")
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
}

// Login verifies a username/password pair and returns a signed token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	token, expiresAt, err := auth.GenerateToken(auth.Identity{
		UserID:   user.ID,
		Role:     user.Role,
		SchoolID: user.SchoolID,
	}, h.secret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return c.JSON(http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// Refresh mints a new token for the caller, keeping the original lifespan.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, expiresAt, err := auth.RefreshTokenFromContext(c, h.secret, h.expiresIn)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
