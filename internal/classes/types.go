package classes

import "time"

// Class is one classroom within a school.
type Class struct {
	ID         string    `json:"id"`
	SchoolID   string    `json:"school_id"`
	Name       string    `json:"name"`
	GradeLevel string    `json:"grade_level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TeacherAssignment links a teacher to the lesson they teach in a class.
// This is a plain foreign-key relation; there is no fallback resolution.
type TeacherAssignment struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	ClassID   string    `json:"class_id"`
	LessonID  string    `json:"lesson_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the input for creating a class.
type CreateRequest struct {
	SchoolID   string `json:"school_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level,omitempty"`
}

// AssignTeacherRequest binds a teacher and lesson to a class.
type AssignTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	LessonID  string `json:"lesson_id" validate:"required,uuid"`
}

// EnrollStudentRequest adds a student to a class.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
}

// ListResponse wraps a list of classes.
type ListResponse struct {
	Items []Class `json:"items"`
}

// AssignmentsResponse wraps a list of teacher assignments.
type AssignmentsResponse struct {
	Items []TeacherAssignment `json:"items"`
}
