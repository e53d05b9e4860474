package domain

import "time"

// User roles.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is a back-office account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
