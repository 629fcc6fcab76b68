// Package auth registers users, checks passwords and issues JWTs.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when no user has the given id
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken is returned for malformed, expired or forged tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// User is a row of the users table
type User struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Email     string  `db:"email" json:"email"`
	Password  string  `db:"password" json:"-"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
	Verified  bool    `db:"verified" json:"verified"`
	CreatedAt int64   `db:"created_at" json:"created_at"`
	UpdatedAt int64   `db:"updated_at" json:"updated_at"`
}

// RegisterInput is the registration payload
type RegisterInput struct {
	Name     string  `json:"name" validate:"required,min=2,max=100,personname"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72,strongpassword"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
}

// LoginInput is the login payload
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Claims are the JWT claims issued at login
type Claims struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// Session is returned by Register and Login
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
