package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject  = "sub"
	claimUserID   = "user_id"
	claimRole     = "role"
	claimSchoolID = "school_id"
)

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// Identity is the authenticated caller extracted from JWT claims.
type Identity struct {
	UserID   string
	Role     string
	SchoolID string
}

// UserIDFromContext extracts the user id from JWT claims.
func UserIDFromContext(c echo.Context) (string, error) {
	identity, err := IdentityFromContext(c)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

// IdentityFromContext extracts the full identity from JWT claims.
func IdentityFromContext(c echo.Context) (Identity, error) {
	claims, err := claimsFromContext(c)
	if err != nil {
		return Identity{}, err
	}
	identity := Identity{
		UserID:   claimString(claims, claimUserID),
		Role:     claimString(claims, claimRole),
		SchoolID: claimString(claims, claimSchoolID),
	}
	if identity.UserID == "" {
		identity.UserID = claimString(claims, claimSubject)
	}
	if identity.UserID == "" {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "user id missing")
	}
	return identity, nil
}

// GenerateToken creates a signed JWT carrying the user's id, role and school.
func GenerateToken(identity Identity, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject:  identity.UserID,
		claimUserID:   identity.UserID,
		claimRole:     identity.Role,
		claimSchoolID: identity.SchoolID,
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// RefreshTokenFromContext mints a new token for the caller, preserving the
// original token's lifespan when it can be derived from its claims.
func RefreshTokenFromContext(c echo.Context, secret string, defaultExpiresIn time.Duration) (string, time.Time, error) {
	claims, err := claimsFromContext(c)
	if err != nil {
		return "", time.Time{}, err
	}
	identity := Identity{
		UserID:   claimString(claims, claimUserID),
		Role:     claimString(claims, claimRole),
		SchoolID: claimString(claims, claimSchoolID),
	}
	if identity.UserID == "" {
		identity.UserID = claimString(claims, claimSubject)
	}
	if identity.UserID == "" {
		return "", time.Time{}, echo.NewHTTPError(http.StatusUnauthorized, "user id missing")
	}

	expiresIn := defaultExpiresIn
	if iat, ok := claimUnix(claims, "iat"); ok {
		if exp, ok := claimUnix(claims, "exp"); ok && exp > iat {
			expiresIn = time.Duration(exp-iat) * time.Second
		}
	}
	return GenerateToken(identity, secret, expiresIn)
}

func claimsFromContext(c echo.Context) (jwt.MapClaims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}

func claimUnix(claims jwt.MapClaims, key string) (int64, bool) {
	raw, ok := claims[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
