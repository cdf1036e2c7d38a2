// Package handlers exposes the REST and webhook surface over echo.
package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/auth"
	"github.com/dabirhq/dabir/internal/users"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

var validate = validator.New()

// bindAndValidate decodes the request body into req and runs struct
// validation, mapping both failure modes to 400.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// requireRole extracts the caller identity and checks it against the allowed
// roles. An empty allow list only requires a valid token.
func requireRole(c echo.Context, roles ...string) (auth.Identity, error) {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return auth.Identity{}, err
	}
	if len(roles) == 0 || identity.Role == users.RoleAdmin {
		return identity, nil
	}
	for _, role := range roles {
		if identity.Role == role {
			return identity, nil
		}
	}
	return auth.Identity{}, echo.NewHTTPError(http.StatusForbidden, "insufficient role")
}
