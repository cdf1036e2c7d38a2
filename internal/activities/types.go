package activities

import "time"

// Activity is one recorded educational activity or grade entry.
type Activity struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassID     string    `json:"class_id"`
	LessonID    string    `json:"lesson_id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest is the input for recording an activity.
type CreateRequest struct {
	StudentID   string   `json:"student_id" validate:"required,uuid"`
	ClassID     string   `json:"class_id" validate:"required,uuid"`
	LessonID    string   `json:"lesson_id" validate:"required,uuid"`
	TeacherID   string   `json:"teacher_id" validate:"required,uuid"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Score       *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// UpdateRequest is the input for amending an activity.
type UpdateRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Score       *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Filter narrows activity listings.
type Filter struct {
	StudentID string
	ClassID   string
}

// ListResponse wraps a list of activities.
type ListResponse struct {
	Items []Activity `json:"items"`
}
