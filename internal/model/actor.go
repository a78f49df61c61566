package model

import "time"

// ActorStatus gates login for the authentication boundary.
type ActorStatus string

const (
	ActorStatusActive ActorStatus = "active"
	ActorStatusLocked ActorStatus = "locked"
)

// Actor is an authenticated principal. The core only ever sees its resolved
// (id, roles) pair; credentials live at the auth boundary.
type Actor struct {
	Base
	Name             string      `json:"name" db:"name"`
	Email            string      `json:"email" db:"email"`
	PasswordHash     string      `json:"-" db:"password_hash"`
	Status           ActorStatus `json:"status" db:"status"`
	LoginAttempts    int         `json:"-" db:"login_attempts"`
	LastLoginAttempt time.Time   `json:"-" db:"last_login_attempt"`
	LastLoginAt      *time.Time  `json:"last_login_at,omitempty" db:"last_login_at"`
}

// RegisterRequest creates a new actor.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
