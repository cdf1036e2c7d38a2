package lessons

import "time"

// Lesson is a subject taught at a school (ریاضی، علوم، ...).
type Lesson struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a lesson.
type CreateRequest struct {
	SchoolID string `json:"school_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required"`
}

// ListResponse wraps a list of lessons.
type ListResponse struct {
	Items []Lesson `json:"items"`
}
