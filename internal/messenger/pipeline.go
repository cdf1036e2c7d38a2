package messenger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/dabirhq/dabir/internal/assistant"
	"github.com/dabirhq/dabir/internal/i18n"
)

// ResolvedUser is the slice of a user record the pipeline needs.
type ResolvedUser struct {
	ID              string
	SchoolID        string
	ModelPreference string
}

// UserResolver maps a provider chat id to an application user. found=false
// is a normal outcome for chats that never registered.
type UserResolver interface {
	ResolveChat(ctx context.Context, provider Provider, chatID string) (user ResolvedUser, found bool, err error)
}

// CredentialSource looks up the bot token for a school on a provider.
// found=false means the school never configured a bot; not an error.
type CredentialSource interface {
	BotToken(ctx context.Context, schoolID string, provider Provider) (token string, found bool, err error)
}

// UnknownRecorder logs inbound traffic the pipeline cannot answer.
type UnknownRecorder interface {
	RecordUnknown(ctx context.Context, provider Provider, chatID, message, reason string) error
}

// Asker produces the assistant's reply stream for a user message.
type Asker interface {
	Ask(ctx context.Context, req assistant.AskRequest) assistant.Reply
}

// Reasons passed to the unknown recorder.
const (
	reasonUnknownChat  = "unknown_chat_id"
	reasonNoSchool     = "user_without_school"
	reasonNoCredential = "bot_credential_missing"
)

// Pipeline runs one inbound webhook message end to end: identity, credential,
// assistant proxy, formatting, chunked delivery. It never returns an error;
// every failure is logged and the webhook acknowledges regardless.
type Pipeline struct {
	logger      *slog.Logger
	users       UserResolver
	credentials CredentialSource
	unknown     UnknownRecorder
	assistant   Asker
	senders     map[Provider]Sender
	catalog     *i18n.Catalog
	chunkSize   int
}

// NewPipeline assembles the inbound pipeline.
func NewPipeline(log *slog.Logger, users UserResolver, credentials CredentialSource, unknown UnknownRecorder, asker Asker, senders map[Provider]Sender, catalog *i18n.Catalog) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		logger:      log.With(slog.String("component", "pipeline")),
		users:       users,
		credentials: credentials,
		unknown:     unknown,
		assistant:   asker,
		senders:     senders,
		catalog:     catalog,
		chunkSize:   SafeMessageLength,
	}
}

// Handle processes one inbound message. A recognized user always receives at
// least one chunk, even when the assistant is down; unrecognized chats are
// logged and never answered.
func (p *Pipeline) Handle(ctx context.Context, msg InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.TrimSpace(msg.ChatID) == "" {
		return
	}
	log := p.logger.With(
		slog.String("provider", string(msg.Provider)),
		slog.String("chat_id", msg.ChatID),
	)

	user, found, err := p.users.ResolveChat(ctx, msg.Provider, msg.ChatID)
	if err != nil {
		log.Error("user lookup failed", slog.Any("error", err))
		return
	}
	if !found {
		p.recordUnknown(ctx, log, msg, reasonUnknownChat)
		return
	}
	if strings.TrimSpace(user.SchoolID) == "" {
		p.recordUnknown(ctx, log, msg, reasonNoSchool)
		return
	}

	token, found, err := p.credentials.BotToken(ctx, user.SchoolID, msg.Provider)
	if err != nil {
		log.Error("bot credential lookup failed", slog.Any("error", err))
		return
	}
	if !found {
		p.recordUnknown(ctx, log, msg, reasonNoCredential)
		return
	}

	sender, ok := p.senders[msg.Provider]
	if !ok {
		log.Error("no sender registered for provider")
		return
	}

	if err := sender.SendTyping(ctx, token, msg.ChatID); err != nil {
		log.Warn("typing indicator failed", slog.Any("error", err))
	}

	reply := p.assistant.Ask(ctx, assistant.AskRequest{
		UserID:          user.ID,
		ModelPreference: user.ModelPreference,
		Text:            text,
	})
	body := p.bufferReply(log, reply)

	formatted := FormatPlain(body)
	if formatted == "" {
		formatted = p.catalog.T(i18n.KeyEmptyReply)
	}
	for i, chunk := range SplitChunks(formatted, p.chunkSize) {
		if err := sender.SendText(ctx, token, msg.ChatID, chunk); err != nil {
			// Already-delivered chunks stay delivered; there is no retry.
			log.Error("send failed",
				slog.Int("chunk", i),
				slog.Any("error", err),
			)
			return
		}
	}
}

// bufferReply drains the assistant stream fully; the provider APIs cannot
// stream to the end user.
func (p *Pipeline) bufferReply(log *slog.Logger, reply assistant.Reply) string {
	defer reply.Body.Close()
	raw, err := io.ReadAll(reply.Body)
	if err != nil {
		log.Error("read assistant reply failed", slog.Any("error", err))
		return p.catalog.T(i18n.KeyAssistantUnavailable)
	}
	return string(raw)
}

func (p *Pipeline) recordUnknown(ctx context.Context, log *slog.Logger, msg InboundMessage, reason string) {
	log.Info("unrecognized interaction", slog.String("reason", reason))
	if p.unknown == nil {
		return
	}
	if err := p.unknown.RecordUnknown(ctx, msg.Provider, msg.ChatID, msg.Text, reason); err != nil {
		log.Warn("record unknown interaction failed", slog.Any("error", err))
	}
}
