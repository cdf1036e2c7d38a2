package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dabirhq/dabir/internal/db"
)

var ErrNotFound = errors.New("activity not found")

const activityColumns = `id, student_id, class_id, lesson_id, teacher_id, title,
	description, score, recorded_at, created_at, updated_at`

// Service provides educational activity CRUD.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates an activity service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "activities")),
	}
}

// Create records a new activity.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Activity, error) {
	studentID, err := db.ParseUUID(req.StudentID)
	if err != nil {
		return Activity{}, err
	}
	classID, err := db.ParseUUID(req.ClassID)
	if err != nil {
		return Activity{}, err
	}
	lessonID, err := db.ParseUUID(req.LessonID)
	if err != nil {
		return Activity{}, err
	}
	teacherID, err := db.ParseUUID(req.TeacherID)
	if err != nil {
		return Activity{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO activities (student_id, class_id, lesson_id, teacher_id, title, description, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+activityColumns,
		studentID, classID, lessonID, teacherID,
		strings.TrimSpace(req.Title), db.Text(req.Description), scoreArg(req.Score))
	return scanActivity(row)
}

// Get returns an activity by id.
func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Activity{}, err
	}
	row := s.conn.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1`, pgID)
	activity, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return activity, err
}

// List returns activities matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	clauses := []string{}
	args := []any{}
	if strings.TrimSpace(filter.StudentID) != "" {
		pgID, err := db.ParseUUID(filter.StudentID)
		if err != nil {
			return nil, err
		}
		args = append(args, pgID)
		clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if strings.TrimSpace(filter.ClassID) != "" {
		pgID, err := db.ParseUUID(filter.ClassID)
		if err != nil {
			return nil, err
		}
		args = append(args, pgID)
		clauses = append(clauses, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY recorded_at DESC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, activity)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of req to the activity.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Activity, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if req.Title != nil {
		current.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		current.Description = strings.TrimSpace(*req.Description)
	}
	if req.Score != nil {
		current.Score = req.Score
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Activity{}, err
	}
	row := s.conn.QueryRow(ctx, `
		UPDATE activities
		SET title = $2, description = $3, score = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+activityColumns,
		pgID, current.Title, db.Text(current.Description), scoreArg(current.Score))
	activity, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return activity, err
}

// Delete removes an activity.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM activities WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scoreArg(score *float64) pgtype.Float8 {
	if score == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *score, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (Activity, error) {
	var (
		id          pgtype.UUID
		studentID   pgtype.UUID
		classID     pgtype.UUID
		lessonID    pgtype.UUID
		teacherID   pgtype.UUID
		title       string
		description pgtype.Text
		score       pgtype.Float8
		recordedAt  pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&id, &studentID, &classID, &lessonID, &teacherID, &title,
		&description, &score, &recordedAt, &createdAt, &updatedAt); err != nil {
		return Activity{}, err
	}
	activity := Activity{
		ID:          db.UUIDString(id),
		StudentID:   db.UUIDString(studentID),
		ClassID:     db.UUIDString(classID),
		LessonID:    db.UUIDString(lessonID),
		TeacherID:   db.UUIDString(teacherID),
		Title:       title,
		Description: description.String,
		RecordedAt:  recordedAt.Time,
		CreatedAt:   createdAt.Time,
		UpdatedAt:   updatedAt.Time,
	}
	if score.Valid {
		value := score.Float64
		activity.Score = &value
	}
	return activity, nil
}
