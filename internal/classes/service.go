package classes

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dabirhq/dabir/internal/db"
)

var ErrNotFound = errors.New("class not found")

// Service provides class CRUD, enrollment, and teacher assignment.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates a class service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "classes")),
	}
}

// Create inserts a new class for a school.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Class, error) {
	schoolID, err := db.ParseUUID(req.SchoolID)
	if err != nil {
		return Class{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO classes (school_id, name, grade_level)
		VALUES ($1, $2, $3)
		RETURNING id, school_id, name, grade_level, created_at, updated_at`,
		schoolID, strings.TrimSpace(req.Name), db.Text(req.GradeLevel))
	return scanClass(row)
}

// Get returns a class by id.
func (s *Service) Get(ctx context.Context, id string) (Class, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Class{}, err
	}
	row := s.conn.QueryRow(ctx, `
		SELECT id, school_id, name, grade_level, created_at, updated_at
		FROM classes WHERE id = $1`, pgID)
	class, err := scanClass(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Class{}, ErrNotFound
	}
	return class, err
}

// ListBySchool returns the classes of a school.
func (s *Service) ListBySchool(ctx context.Context, schoolID string) ([]Class, error) {
	pgID, err := db.ParseUUID(schoolID)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, school_id, name, grade_level, created_at, updated_at
		FROM classes WHERE school_id = $1 ORDER BY name`, pgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Class{}
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, class)
	}
	return items, rows.Err()
}

// Delete removes a class.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM classes WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnrollStudent adds a student to a class; re-enrolling is a no-op.
func (s *Service) EnrollStudent(ctx context.Context, classID, studentID string) error {
	classUUID, err := db.ParseUUID(classID)
	if err != nil {
		return err
	}
	studentUUID, err := db.ParseUUID(studentID)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO class_students (class_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, classUUID, studentUUID)
	return err
}

// RemoveStudent drops a student from a class.
func (s *Service) RemoveStudent(ctx context.Context, classID, studentID string) error {
	classUUID, err := db.ParseUUID(classID)
	if err != nil {
		return err
	}
	studentUUID, err := db.ParseUUID(studentID)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`,
		classUUID, studentUUID)
	return err
}

// AssignTeacher binds a teacher to the lesson they teach in this class.
func (s *Service) AssignTeacher(ctx context.Context, classID string, req AssignTeacherRequest) (TeacherAssignment, error) {
	classUUID, err := db.ParseUUID(classID)
	if err != nil {
		return TeacherAssignment{}, err
	}
	teacherUUID, err := db.ParseUUID(req.TeacherID)
	if err != nil {
		return TeacherAssignment{}, err
	}
	lessonUUID, err := db.ParseUUID(req.LessonID)
	if err != nil {
		return TeacherAssignment{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO teacher_assignments (teacher_id, class_id, lesson_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id, class_id, lesson_id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id
		RETURNING id, teacher_id, class_id, lesson_id, created_at`,
		teacherUUID, classUUID, lessonUUID)
	return scanAssignment(row)
}

// ListAssignments returns the teacher assignments of a class.
func (s *Service) ListAssignments(ctx context.Context, classID string) ([]TeacherAssignment, error) {
	classUUID, err := db.ParseUUID(classID)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, teacher_id, class_id, lesson_id, created_at
		FROM teacher_assignments WHERE class_id = $1 ORDER BY created_at`, classUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TeacherAssignment{}
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, assignment)
	}
	return items, rows.Err()
}

// UnassignTeacher removes a teacher assignment.
func (s *Service) UnassignTeacher(ctx context.Context, assignmentID string) error {
	pgID, err := db.ParseUUID(assignmentID)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM teacher_assignments WHERE id = $1`, pgID)
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

func scanClass(row scanner) (Class, error) {
	var (
		id         pgtype.UUID
		schoolID   pgtype.UUID
		name       string
		gradeLevel pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &schoolID, &name, &gradeLevel, &createdAt, &updatedAt); err != nil {
		return Class{}, err
	}
	return Class{
		ID:         db.UUIDString(id),
		SchoolID:   db.UUIDString(schoolID),
		Name:       name,
		GradeLevel: gradeLevel.String,
		CreatedAt:  createdAt.Time,
		UpdatedAt:  updatedAt.Time,
	}, nil
}

func scanAssignment(row scanner) (TeacherAssignment, error) {
	var (
		id        pgtype.UUID
		teacherID pgtype.UUID
		classID   pgtype.UUID
		lessonID  pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &teacherID, &classID, &lessonID, &createdAt); err != nil {
		return TeacherAssignment{}, err
	}
	return TeacherAssignment{
		ID:        db.UUIDString(id),
		TeacherID: db.UUIDString(teacherID),
		ClassID:   db.UUIDString(classID),
		LessonID:  db.UUIDString(lessonID),
		CreatedAt: createdAt.Time,
	}, nil
}
