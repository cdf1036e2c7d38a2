package schools

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/messenger"
)

var (
	ErrNotFound      = errors.New("school not found")
	ErrNotConfigured = errors.New("bot credential not configured")
)

// Service provides school CRUD and bot credential lookup.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates a school service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "schools")),
	}
}

// Create inserts a new school.
func (s *Service) Create(ctx context.Context, req CreateRequest) (School, error) {
	row := s.conn.QueryRow(ctx, `
		INSERT INTO schools (name, city)
		VALUES ($1, $2)
		RETURNING id, name, city, created_at, updated_at`,
		strings.TrimSpace(req.Name), db.Text(req.City))
	return scanSchool(row)
}

// Get returns a school by id.
func (s *Service) Get(ctx context.Context, id string) (School, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return School{}, err
	}
	row := s.conn.QueryRow(ctx,
		`SELECT id, name, city, created_at, updated_at FROM schools WHERE id = $1`, pgID)
	school, err := scanSchool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return School{}, ErrNotFound
	}
	return school, err
}

// List returns all schools.
func (s *Service) List(ctx context.Context) ([]School, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, city, created_at, updated_at FROM schools ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []School{}
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, school)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of req to the school.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (School, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return School{}, err
	}
	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	if req.City != nil {
		current.City = strings.TrimSpace(*req.City)
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return School{}, err
	}
	row := s.conn.QueryRow(ctx, `
		UPDATE schools SET name = $2, city = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, city, created_at, updated_at`,
		pgID, current.Name, db.Text(current.City))
	school, err := scanSchool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return School{}, ErrNotFound
	}
	return school, err
}

// Delete removes a school and everything hanging off it.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM schools WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BotToken returns the bot token configured for the school on the given
// provider. ErrNotConfigured is a normal outcome, not a failure.
func (s *Service) BotToken(ctx context.Context, schoolID string, provider messenger.Provider) (string, error) {
	pgID, err := db.ParseUUID(schoolID)
	if err != nil {
		return "", err
	}
	var token string
	err = s.conn.QueryRow(ctx, `
		SELECT bot_token FROM school_bot_credentials
		WHERE school_id = $1 AND provider = $2`,
		pgID, string(provider)).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrNotConfigured
	}
	return token, nil
}

// UpsertCredential stores or replaces the bot token for a provider.
func (s *Service) UpsertCredential(ctx context.Context, schoolID string, req UpsertCredentialRequest) error {
	pgID, err := db.ParseUUID(schoolID)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO school_bot_credentials (school_id, provider, bot_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (school_id, provider)
		DO UPDATE SET bot_token = EXCLUDED.bot_token, updated_at = now()`,
		pgID, req.Provider, strings.TrimSpace(req.BotToken))
	return err
}

// DeleteCredential removes the bot token for a provider.
func (s *Service) DeleteCredential(ctx context.Context, schoolID string, provider messenger.Provider) error {
	pgID, err := db.ParseUUID(schoolID)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, `
		DELETE FROM school_bot_credentials WHERE school_id = $1 AND provider = $2`,
		pgID, string(provider))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchool(row scanner) (School, error) {
	var (
		id        pgtype.UUID
		name      string
		city      pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &city, &createdAt, &updatedAt); err != nil {
		return School{}, err
	}
	return School{
		ID:        db.UUIDString(id),
		Name:      name,
		City:      city.String,
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}, nil
}
