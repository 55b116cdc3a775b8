package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a chat participant. ID is the stable numeric identity supplied by
// the chat transport.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk" json:"id"`
	City      string    `bun:"city,nullzero" json:"city,omitempty"`
	Banned    bool      `bun:"banned,notnull" json:"banned"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// UserProfile is the read view handed to the ordering core.
type UserProfile struct {
	City   string `json:"city,omitempty"`
	Banned bool   `json:"banned"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{City: u.City, Banned: u.Banned}
}
