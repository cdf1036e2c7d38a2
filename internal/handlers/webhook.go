package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/messenger"
)

// messagePipeline is the slice of the bot pipeline webhooks need.
type messagePipeline interface {
	Handle(ctx context.Context, msg messenger.InboundMessage)
}

// chatID carries the chat identifier in either shape providers send it:
// a JSON number or a quoted string.
type chatID string

func (c *chatID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = chatID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = chatID(n.String())
	return nil
}

// empty reports whether the payload carried no usable chat id.
func (c chatID) empty() bool {
	return c == "" || c == "0"
}

// webhookUpdate is the Telegram-shaped update both providers deliver.
type webhookUpdate struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID chatID `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// WebhookHandler receives inbound messenger updates for one provider. It
// always acknowledges with 200 so the provider never retries; every failure
// path is logged instead.
type WebhookHandler struct {
	provider messenger.Provider
	pipeline messagePipeline
	logger   *slog.Logger
}

// NewTelegramWebhookHandler creates the Telegram webhook handler.
func NewTelegramWebhookHandler(log *slog.Logger, pipeline messagePipeline) *WebhookHandler {
	return newWebhookHandler(log, messenger.ProviderTelegram, pipeline)
}

// NewBaleWebhookHandler creates the Bale webhook handler.
func NewBaleWebhookHandler(log *slog.Logger, pipeline messagePipeline) *WebhookHandler {
	return newWebhookHandler(log, messenger.ProviderBale, pipeline)
}

func newWebhookHandler(log *slog.Logger, provider messenger.Provider, pipeline messagePipeline) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		provider: provider,
		pipeline: pipeline,
		logger:   log.With(slog.String("handler", string(provider)+"_webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	path := "/webhooks/" + string(h.provider)
	e.POST(path, h.Receive)
	e.GET(path, h.Health)
}

// Receive accepts one provider update. Malformed or empty updates are
// acknowledged and dropped; valid messages are handed to the pipeline off the
// request goroutine so the provider gets its 200 immediately.
func (h *WebhookHandler) Receive(c echo.Context) error {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("webhook panic recovered", slog.Any("panic", r))
		}
	}()

	ack := func() error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}

	var update webhookUpdate
	if err := c.Bind(&update); err != nil {
		h.logger.Warn("undecodable webhook payload", slog.Any("error", err))
		return ack()
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" || update.Message.Chat.ID.empty() {
		return ack()
	}

	msg := messenger.InboundMessage{
		Provider:   h.provider,
		ChatID:     string(update.Message.Chat.ID),
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("pipeline panic recovered", slog.Any("panic", r))
			}
		}()
		// Detached from the request context: the ack must not cancel the reply.
		h.pipeline.Handle(context.Background(), msg)
	}()

	return ack()
}

// Health reports the webhook as reachable.
func (h *WebhookHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "active",
		"service":   string(h.provider) + "-webhook",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
