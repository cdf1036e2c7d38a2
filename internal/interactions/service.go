// Package interactions records inbound messenger traffic that could not be
// matched to a known user, so principals can audit who is knocking.
package interactions

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/messenger"
)

// DefaultRetention is how long unknown-interaction rows are kept.
const DefaultRetention = 90 * 24 * time.Hour

// Service persists and prunes unknown-interaction records.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates an interaction log service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "interactions")),
	}
}

// RecordUnknown stores one unrecognized inbound message. Callers treat a
// failure here as log-only; it never blocks the webhook response.
func (s *Service) RecordUnknown(ctx context.Context, provider messenger.Provider, chatID, message, reason string) error {
	const maxStoredMessage = 1000
	message = strings.TrimSpace(message)
	if len(message) > maxStoredMessage {
		cut := maxStoredMessage
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO unknown_interactions (provider, chat_id, message, reason)
		VALUES ($1, $2, $3, $4)`,
		string(provider), strings.TrimSpace(chatID), message, reason)
	if err != nil {
		return err
	}
	s.logger.Info("unknown interaction",
		slog.String("provider", string(provider)),
		slog.String("chat_id", chatID),
		slog.String("reason", reason),
	)
	return nil
}

// PruneOlderThan removes records past the retention window.
func (s *Service) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		age = DefaultRetention
	}
	tag, err := s.conn.Exec(ctx,
		`DELETE FROM unknown_interactions WHERE created_at < now() - $1::interval`,
		age.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
