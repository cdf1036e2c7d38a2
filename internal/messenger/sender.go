package messenger

import "context"

// Sender delivers outbound calls to one messenger provider's Bot API.
// Implementations must be safe for concurrent use; webhook invocations are
// not serialized per chat.
type Sender interface {
	// SendText delivers one message. The caller has already chunked the text
	// to the provider's safe maximum length.
	SendText(ctx context.Context, botToken, chatID, text string) error
	// SendTyping fires the provider's typing indicator, best-effort.
	SendTyping(ctx context.Context, botToken, chatID string) error
}
