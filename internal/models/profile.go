package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	FullName  string    `bun:"full_name,nullzero" json:"full_name,omitempty"`
	AvatarURL string    `bun:"avatar_url,nullzero" json:"avatar_url,omitempty"`
	IsAdmin   bool      `bun:"is_admin,notnull,default:false" json:"is_admin"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
