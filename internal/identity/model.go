package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserExists indicates the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User represents a registered account holder.
type User struct {
	ID              string
	Email           string
	Name            string
	PasswordHash    []byte
	BankAccessToken string
	CreatedAt       time.Time
}

// Signup captures the details needed to register.
type Signup struct {
	Email    string
	Password string
	Name     string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}
