package schools

import "time"

// School represents one school tenant.
type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a school.
type CreateRequest struct {
	Name string `json:"name" validate:"required"`
	City string `json:"city,omitempty"`
}

// UpdateRequest is the input for updating a school.
type UpdateRequest struct {
	Name *string `json:"name,omitempty"`
	City *string `json:"city,omitempty"`
}

// UpsertCredentialRequest sets the bot token for a (school, provider) pair.
type UpsertCredentialRequest struct {
	Provider string `json:"provider" validate:"required,oneof=telegram bale"`
	BotToken string `json:"bot_token" validate:"required"`
}

// ListResponse wraps a list of schools.
type ListResponse struct {
	Items []School `json:"items"`
}
