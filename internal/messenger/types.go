package messenger

import "time"

// Provider identifies a messenger transport.
type Provider string

const (
	ProviderTelegram Provider = "telegram"
	ProviderBale     Provider = "bale"
)

// Valid reports whether the provider is one of the supported transports.
func (p Provider) Valid() bool {
	return p == ProviderTelegram || p == ProviderBale
}

// MaxMessageLength is the hard Bot API limit; SafeMessageLength leaves margin
// so formatting never pushes a chunk over the limit.
const (
	MaxMessageLength  = 4096
	SafeMessageLength = 4000
)

// InboundMessage is one webhook delivery, request-scoped and never persisted.
type InboundMessage struct {
	Provider   Provider
	ChatID     string
	Text       string
	ReceivedAt time.Time
}
