// Package server assembles the echo HTTP server from the registered handlers.
package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dabirhq/dabir/internal/auth"
)

// Handler is anything that can register routes on the echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

type Server struct {
	echo *echo.Echo
	addr string
}

// skipAuth marks the routes that must stay reachable without a JWT: health
// probes, login, provider webhooks, and the internal assistant endpoint the
// bot pipeline calls (identified by header, not token).
func skipAuth(c echo.Context) bool {
	path := c.Request().URL.Path
	if path == "/ping" || path == "/health" || path == "/api/auth/login" || path == "/api/assistant/chat" {
		return true
	}
	return strings.HasPrefix(path, "/webhooks/")
}

// NewServer builds the echo instance with recovery, request logging, and JWT
// auth, then lets every handler register its routes.
func NewServer(log *slog.Logger, addr, jwtSecret string, routeHandlers []Handler) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
				log.Error("request", attrs...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, skipAuth))

	for _, h := range routeHandlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
