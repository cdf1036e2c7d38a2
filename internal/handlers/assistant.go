package handlers

import (
	"bufio"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/assistant"
	"github.com/dabirhq/dabir/internal/users"
)

// AssistantHandler is the internal chat endpoint the bot pipeline proxies to.
// It forwards the conversation to an OpenAI-compatible upstream chosen by the
// caller's model preference and streams the reply back as plain text.
type AssistantHandler struct {
	local  *assistant.UpstreamClient
	cloud  *assistant.UpstreamClient
	logger *slog.Logger
}

type assistantChatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

// NewAssistantHandler creates the assistant chat handler.
func NewAssistantHandler(log *slog.Logger, local, cloud *assistant.UpstreamClient) *AssistantHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AssistantHandler{
		local:  local,
		cloud:  cloud,
		logger: log.With(slog.String("handler", "assistant")),
	}
}

func (h *AssistantHandler) Register(e *echo.Echo) {
	e.POST("/api/assistant/chat", h.Chat)
}

// Chat streams the upstream's reply. Errors before the first byte map to a
// JSON error envelope; errors mid-stream truncate the response.
func (h *AssistantHandler) Chat(c echo.Context) error {
	var req assistantChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages are required")
	}

	upstream := h.cloud
	if strings.TrimSpace(c.Request().Header.Get("X-Model-Preference")) == users.ModelPreferenceLocal {
		upstream = h.local
	}
	if upstream == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "upstream not configured")
	}

	log := h.logger.With(slog.String("user_id", c.Request().Header.Get("X-User-ID")))

	ctx := c.Request().Context()
	deltas, errs := upstream.StreamChat(ctx, req.Messages)

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	writer := bufio.NewWriter(c.Response().Writer)
	started := false
	flush := func() {
		writer.Flush()
		c.Response().Flush()
	}

	for {
		select {
		case delta, ok := <-deltas:
			if !ok {
				// The stream goroutine reports its error before closing the
				// delta channel, so a drain here cannot block.
				if !started && errs != nil {
					if err, ok := <-errs; ok && err != nil {
						log.Error("upstream chat failed", slog.Any("error", err))
						return echo.NewHTTPError(http.StatusBadGateway, err.Error())
					}
				}
				if !started {
					c.Response().WriteHeader(http.StatusOK)
				}
				flush()
				return nil
			}
			if !started {
				c.Response().WriteHeader(http.StatusOK)
				started = true
			}
			if _, err := writer.WriteString(delta); err != nil {
				log.Warn("write delta failed", slog.Any("error", err))
				return nil
			}
			flush()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			log.Error("upstream chat failed", slog.Any("error", err))
			if !started {
				return echo.NewHTTPError(http.StatusBadGateway, err.Error())
			}
			flush()
			return nil
		case <-ctx.Done():
			flush()
			return nil
		}
	}
}
