// Package telegram sends outbound messages through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dabirhq/dabir/internal/messenger"
)

// Sender implements messenger.Sender for Telegram. Bot clients are cached
// per token; schools share nothing.
type Sender struct {
	logger   *slog.Logger
	endpoint string
	mu       sync.RWMutex
	bots     map[string]*tgbotapi.BotAPI // keyed by bot token
}

var _ messenger.Sender = (*Sender)(nil)

// NewSender creates a Telegram sender.
func NewSender(log *slog.Logger) *Sender {
	return newSender(log, tgbotapi.APIEndpoint, "telegram")
}

func newSender(log *slog.Logger, endpoint, name string) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		logger:   log.With(slog.String("sender", name)),
		endpoint: endpoint,
		bots:     make(map[string]*tgbotapi.BotAPI),
	}
}

// NewSenderWithEndpoint creates a sender against a Telegram-compatible Bot
// API endpoint, e.g. Bale's.
func NewSenderWithEndpoint(log *slog.Logger, endpoint, name string) *Sender {
	return newSender(log, endpoint, name)
}

func (s *Sender) getOrCreateBot(token string) (*tgbotapi.BotAPI, error) {
	s.mu.RLock()
	bot, ok := s.bots[token]
	s.mu.RUnlock()
	if ok {
		return bot, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bot, ok := s.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, s.endpoint)
	if err != nil {
		s.logger.Error("create bot failed", slog.Any("error", err))
		return nil, err
	}
	s.bots[token] = bot
	return bot, nil
}

// SendText delivers one already-chunked message to the chat.
func (s *Sender) SendText(_ context.Context, botToken, chatID, text string) error {
	chat, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	bot, err := s.getOrCreateBot(botToken)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chat, text)
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendTyping fires the typing chat action.
func (s *Sender) SendTyping(_ context.Context, botToken, chatID string) error {
	chat, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	bot, err := s.getOrCreateBot(botToken)
	if err != nil {
		return err
	}
	action := tgbotapi.NewChatAction(chat, tgbotapi.ChatTyping)
	if _, err := bot.Request(action); err != nil {
		return fmt.Errorf("chat action: %w", err)
	}
	return nil
}

func parseChatID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("chat id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return id, nil
}
