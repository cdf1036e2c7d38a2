package users

import "time"

// Role values mirror the role column check constraint.
const (
	RolePrincipal = "principal"
	RoleTeacher   = "teacher"
	RoleStudent   = "student"
	RoleParent    = "parent"
	RoleAdmin     = "admin"
)

// Model preference values for the assistant proxy.
const (
	ModelPreferenceLocal = "local"
	ModelPreferenceCloud = "cloud"
)

// User represents an application user.
type User struct {
	ID                string    `json:"id"`
	SchoolID          string    `json:"school_id,omitempty"`
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	Role              string    `json:"role"`
	Phone             string    `json:"phone,omitempty"`
	TelegramChatID    string    `json:"telegram_chat_id,omitempty"`
	BaleChatID        string    `json:"bale_chat_id,omitempty"`
	AIModelPreference string    `json:"ai_model_preference"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a user.
type CreateRequest struct {
	Username          string `json:"username" validate:"required,min=3"`
	Password          string `json:"password" validate:"required,min=8"`
	FullName          string `json:"full_name" validate:"required"`
	Role              string `json:"role" validate:"required,oneof=principal teacher student parent admin"`
	SchoolID          string `json:"school_id,omitempty"`
	Phone             string `json:"phone,omitempty"`
	TelegramChatID    string `json:"telegram_chat_id,omitempty"`
	BaleChatID        string `json:"bale_chat_id,omitempty"`
	AIModelPreference string `json:"ai_model_preference,omitempty" validate:"omitempty,oneof=local cloud"`
}

// UpdateRequest is the input for updating a user; nil fields are untouched.
type UpdateRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	SchoolID          *string `json:"school_id,omitempty"`
	TelegramChatID    *string `json:"telegram_chat_id,omitempty"`
	BaleChatID        *string `json:"bale_chat_id,omitempty"`
	AIModelPreference *string `json:"ai_model_preference,omitempty" validate:"omitempty,oneof=local cloud"`
}

// ListResponse wraps a list of users.
type ListResponse struct {
	Items []User `json:"items"`
}
