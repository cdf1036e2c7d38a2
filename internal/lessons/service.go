package lessons

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dabirhq/dabir/internal/db"
)

var ErrNotFound = errors.New("lesson not found")

// Service provides lesson CRUD.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates a lesson service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "lessons")),
	}
}

// Create inserts a new lesson for a school.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Lesson, error) {
	schoolID, err := db.ParseUUID(req.SchoolID)
	if err != nil {
		return Lesson{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO lessons (school_id, name)
		VALUES ($1, $2)
		RETURNING id, school_id, name, created_at, updated_at`,
		schoolID, strings.TrimSpace(req.Name))
	return scanLesson(row)
}

// Get returns a lesson by id.
func (s *Service) Get(ctx context.Context, id string) (Lesson, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Lesson{}, err
	}
	row := s.conn.QueryRow(ctx,
		`SELECT id, school_id, name, created_at, updated_at FROM lessons WHERE id = $1`, pgID)
	lesson, err := scanLesson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lesson{}, ErrNotFound
	}
	return lesson, err
}

// ListBySchool returns the lessons of a school.
func (s *Service) ListBySchool(ctx context.Context, schoolID string) ([]Lesson, error) {
	pgID, err := db.ParseUUID(schoolID)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, school_id, name, created_at, updated_at
		FROM lessons WHERE school_id = $1 ORDER BY name`, pgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Lesson{}
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lesson)
	}
	return items, rows.Err()
}

// Delete removes a lesson.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLesson(row scanner) (Lesson, error) {
	var (
		id        pgtype.UUID
		schoolID  pgtype.UUID
		name      string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &schoolID, &name, &createdAt, &updatedAt); err != nil {
		return Lesson{}, err
	}
	return Lesson{
		ID:        db.UUIDString(id),
		SchoolID:  db.UUIDString(schoolID),
		Name:      name,
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}, nil
}
