// Package bale sends outbound messages through the Bale Bot API, which is
// wire-compatible with Telegram's.
package bale

import (
	"log/slog"

	"github.com/dabirhq/dabir/internal/messenger/telegram"
)

// APIEndpoint is Bale's Telegram-compatible Bot API endpoint.
const APIEndpoint = "https://tapi.bale.ai/bot%s/%s"

// NewSender creates a Bale sender.
func NewSender(log *slog.Logger) *telegram.Sender {
	return telegram.NewSenderWithEndpoint(log, APIEndpoint, "bale")
}
