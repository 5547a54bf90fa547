package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MessageStatus string

const (
	MessageNew     MessageStatus = "new"
	MessageHandled MessageStatus = "handled"
)

func (s MessageStatus) Valid() bool {
	return s == MessageNew || s == MessageHandled
}

// ContactMessage is a note left through the public contact form.
type ContactMessage struct {
	bun.BaseModel `bun:"table:contact_messages"`

	ID        string        `bun:"id,pk" json:"id"`
	Name      string        `bun:"name,nullzero" json:"name,omitempty"`
	Email     string        `bun:"email,notnull" json:"email"`
	Message   string        `bun:"message,notnull" json:"message"`
	Status    MessageStatus `bun:"status,notnull" json:"status"`
	CreatedAt time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// UpdateProfileRequest replaces the caller's display fields. Empty values
// clear the field.
type UpdateProfileRequest struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}
