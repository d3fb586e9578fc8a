package models

import "time"

// User represents a registered account. The struct round-trips through the
// store as JSON, so the hash keeps a tag; API responses go through PublicUser,
// which carries no credential field.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// PublicUser is the API-facing view of a User.
type PublicUser struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// Public strips credentials from a User.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		IsActive:    u.IsActive,
	}
}
