package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents an account in the user directory. Authentication and
// profile management belong to other subsystems; this engine only looks
// users up and enumerates the notification audience.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserRepository defines the read-only surface over the user directory
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// ListNonAdmins retrieves every user not flagged as administrator
	ListNonAdmins(ctx context.Context) ([]*User, error)
}
